package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	prompt, err := Get("analyzers.json", "narrative")
	require.NoError(t, err)
	assert.Contains(t, prompt, "brand storyteller")
}

func TestGetMissing(t *testing.T) {
	_, err := Get("analyzers.json", "no-such-key")
	assert.Error(t, err)

	_, err = Get("no-such-file.json", "narrative")
	assert.Error(t, err)
}

func TestMustGetPanics(t *testing.T) {
	assert.Panics(t, func() { MustGet("analyzers.json", "no-such-key") })
	assert.NotPanics(t, func() { MustGet("analyzers.json", "voice") })
}

func TestFormat(t *testing.T) {
	out := Format("Analyze {{.Name}} for {{.Audience}}.", map[string]string{
		"Name":     "Lumen Coffee",
		"Audience": "night owls",
	})
	assert.Equal(t, "Analyze Lumen Coffee for night owls.", out)

	// Unknown placeholders are left alone.
	assert.Equal(t, "{{.Other}}", Format("{{.Other}}", map[string]string{"Name": "x"}))
}

func TestList(t *testing.T) {
	keys, err := List("analyzers.json")
	require.NoError(t, err)
	assert.Len(t, keys, 6)
	assert.Contains(t, keys, "web_scraper")
	assert.Contains(t, keys, "synthesis")
}
