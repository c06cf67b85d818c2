package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.WarnLevel,
		"1":       zerolog.InfoLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		" DEBUG ": zerolog.DebugLevel,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvLevel)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel)

	log.Debug().Msg("hidden debug")
	log.Warn().Str("path", "/tmp/x").Msg("visible warning")

	out := buf.String()
	assert.NotContains(t, out, "hidden debug")
	assert.Contains(t, out, "visible warning")
	assert.Contains(t, out, "/tmp/x")
}

func TestLogger_ConsoleIgnoresLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.ErrorLevel)

	log.Consolef("Updating %s to %s", "runner", "v2")

	assert.Equal(t, "Updating runner to v2\n", buf.String())
}

func TestLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel).Quiet()

	log.Consolef("Completed.")
	log.Warn().Msg("still here")

	assert.False(t, strings.Contains(buf.String(), "Completed."))
	assert.Contains(t, buf.String(), "still here")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Consolef("nothing")
	log.Warn().Msg("nothing")
}
