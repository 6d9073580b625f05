package workflow

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/foxseedlab/tunesmith/internal/session"
)

// formatDuration renders seconds as MM:SS, or HH:MM:SS from one hour up.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func buildTagInfo(tr func(i18n.Key) string, ed session.TagEditor, signature string) string {
	fields := []struct {
		label i18n.Key
		value string
	}{
		{i18n.LabelArtist, ed.Artist},
		{i18n.LabelTitle, ed.Title},
		{i18n.LabelAlbum, ed.Album},
		{i18n.LabelGenre, ed.Genre},
		{i18n.LabelYear, ed.Year},
		{i18n.LabelDiskNumber, ed.DiskNumber},
		{i18n.LabelTrackNumber, ed.TrackNumber},
	}
	lines := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		value := f.value
		if value == "" {
			value = "-"
		}
		lines = append(lines, fmt.Sprintf("*%s:* %s", tr(f.label), value))
	}
	if signature != "" {
		lines = append(lines, "", signature)
	}
	return strings.Join(lines, "\n")
}

func cutCaption(tr func(i18n.Key) string, start, end int, signature string) string {
	caption := fmt.Sprintf("*%s*: %s\n*%s*: %s", tr(i18n.CutFrom), formatDuration(start), tr(i18n.CutTo), formatDuration(end))
	if signature != "" {
		caption += "\n\n" + signature
	}
	return caption
}

// acknowledgement builds "<lead> <preview hint> OR <done hint>".
func acknowledgement(tr func(i18n.Key) string, lead i18n.Key) string {
	return fmt.Sprintf("%s %s %s %s",
		tr(lead),
		tr(i18n.ClickPreview),
		strings.ToUpper(tr(i18n.Or)),
		strings.ToLower(tr(i18n.ClickDone)),
	)
}
