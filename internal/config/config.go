package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	TransportTelegram = "telegram"
	TransportDiscord  = "discord"

	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

type Config struct {
	Env                 string
	Transport           string
	TelegramBotToken    string
	DiscordToken        string
	BotUsername         string
	DatabaseURL         string
	SessionStore        string
	RedisURL            string
	WorkDir             string
	DefaultLanguage     string
	OwnerUserIDs        []int64
	MaxAudioDurationSec int
	FFmpegPath          string
	FFprobePath         string
	TranscodeTimeout    time.Duration
	VoiceBitrateKbps    int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.Transport {
	case TransportTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TRANSPORT=%s", TransportTelegram)
		}
	case TransportDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required when TRANSPORT=%s", TransportDiscord)
		}
	default:
		return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportTelegram, TransportDiscord, c.Transport)
	}
	switch c.SessionStore {
	case SessionStoreDatabase, SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=%s", SessionStoreRedis)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of database, redis, memory, got %q", c.SessionStore)
	}
	if c.MaxAudioDurationSec <= 0 {
		return fmt.Errorf("MAX_AUDIO_DURATION_SEC must be positive, got %d", c.MaxAudioDurationSec)
	}
	if c.TranscodeTimeout <= 0 {
		return fmt.Errorf("TRANSCODE_TIMEOUT must be positive, got %s", c.TranscodeTimeout)
	}
	if c.VoiceBitrateKbps <= 0 {
		return fmt.Errorf("VOICE_BITRATE_KBPS must be positive, got %d", c.VoiceBitrateKbps)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "WORK_DIR", value: strings.TrimSpace(c.WorkDir)},
		{name: "DEFAULT_LANGUAGE", value: c.DefaultLanguage},
		{name: "FFMPEG_PATH", value: c.FFmpegPath},
		{name: "FFPROBE_PATH", value: c.FFprobePath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsOwner reports whether userID is listed in OWNER_USER_IDS.
func (c *Config) IsOwner(userID int64) bool {
	return slices.Contains(c.OwnerUserIDs, userID)
}
