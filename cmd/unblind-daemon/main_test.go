// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/unblind-daemon/internal/config"
	"github.com/shini4i/unblind-daemon/internal/sun"
)

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	tests := []struct {
		name      string
		cfg       config.LogConfig
		verbose   bool
		wantLevel zerolog.Level
		wantJSON  bool
	}{
		{name: "default level", cfg: config.LogConfig{}, wantLevel: zerolog.InfoLevel},
		{name: "configured level", cfg: config.LogConfig{Level: "warn"}, wantLevel: zerolog.WarnLevel},
		{name: "invalid level", cfg: config.LogConfig{Level: "chatty"}, wantLevel: zerolog.InfoLevel},
		{name: "verbose wins", cfg: config.LogConfig{Level: "error"}, verbose: true, wantLevel: zerolog.DebugLevel},
		{name: "json output", cfg: config.LogConfig{Level: "info", JSON: true}, wantLevel: zerolog.InfoLevel, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			setupLogging(tt.cfg, tt.verbose, &buf)
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())

			log.WithLevel(tt.wantLevel).Msg("probe")
			out := buf.String()
			assert.Contains(t, out, "probe")
			assert.Equal(t, tt.wantJSON, strings.HasPrefix(out, "{"))
		})
	}
}

func TestPrintSunTimes(t *testing.T) {
	now := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

	t.Run("equator", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printSunTimes(&buf, "0", "0", now))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "sunrise 06:"), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "sunset  18:"), lines[1])
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		var buf bytes.Buffer
		err := printSunTimes(&buf, "north", "0", now)
		assert.ErrorIs(t, err, sun.ErrInvalidCoordinate)
		assert.Empty(t, buf.String())
	})
}
