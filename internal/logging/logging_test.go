package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/bgv-gateway/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONOutsideDev(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logging.Setup(&buf, "debug", "PROD")
	log.Debug().Str("component", "test").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "test", line["component"])
	require.Equal(t, "debug", line["level"])
}

func TestSetup_LevelFiltering(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logging.Setup(&buf, "warn", "PROD")
	log.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	logging.Setup(&buf, "not-a-level", "PROD")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
