package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/tunesmith/internal/config"
)

type envConfig struct {
	Env                 string        `env:"ENV" envDefault:"production"`
	Transport           string        `env:"TRANSPORT" envDefault:"telegram"`
	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	DiscordToken        string        `env:"DISCORD_TOKEN"`
	BotUsername         string        `env:"BOT_USERNAME"`
	DatabaseURL         string        `env:"DATABASE_URL,required"`
	SessionStore        string        `env:"SESSION_STORE" envDefault:"database"`
	RedisURL            string        `env:"REDIS_URL"`
	WorkDir             string        `env:"WORK_DIR" envDefault:"./data/users"`
	DefaultLanguage     string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	OwnerUserIDs        []int64       `env:"OWNER_USER_IDS" envSeparator:","`
	MaxAudioDurationSec int           `env:"MAX_AUDIO_DURATION_SEC" envDefault:"3600"`
	FFmpegPath          string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath         string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	TranscodeTimeout    time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"2m"`
	VoiceBitrateKbps    int           `env:"VOICE_BITRATE_KBPS" envDefault:"32"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		Transport:           raw.Transport,
		TelegramBotToken:    raw.TelegramBotToken,
		DiscordToken:        raw.DiscordToken,
		BotUsername:         raw.BotUsername,
		DatabaseURL:         raw.DatabaseURL,
		SessionStore:        raw.SessionStore,
		RedisURL:            raw.RedisURL,
		WorkDir:             raw.WorkDir,
		DefaultLanguage:     raw.DefaultLanguage,
		OwnerUserIDs:        raw.OwnerUserIDs,
		MaxAudioDurationSec: raw.MaxAudioDurationSec,
		FFmpegPath:          raw.FFmpegPath,
		FFprobePath:         raw.FFprobePath,
		TranscodeTimeout:    raw.TranscodeTimeout,
		VoiceBitrateKbps:    raw.VoiceBitrateKbps,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
