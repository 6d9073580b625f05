package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseButtonID(t *testing.T) {
	id, ok := ParseButtonID("tag:artist")
	assert.True(t, ok)
	assert.Equal(t, ButtonArtist, id)

	_, ok = ParseButtonID("🗣 Artist")
	assert.False(t, ok)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "audio", EventAudio.String())
	assert.Equal(t, "other_media", EventOtherMedia.String())
}
