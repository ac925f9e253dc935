package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestWithDevelopment(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithDevelopment("notify-engine"),
		logger.WithOutput(buf),
	)
	require.NotNil(t, log)

	log.Debug("quiet hours evaluated")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "service=notify-engine")
}

func TestWithProduction(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithProduction("notify-engine"),
		logger.WithOutput(buf),
	)
	require.NotNil(t, log)

	log.Info("worker pool started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notify-engine", entry["service"])
	assert.Equal(t, "production", entry["env"])
}

func TestEnvironmentOptions(t *testing.T) {
	dev := logger.New(logger.WithDevelopment("notify-engine"))
	prod := logger.New(logger.WithProduction("notify-engine"))
	require.NotNil(t, dev)
	require.NotNil(t, prod)
}

func TestWithExtractors(t *testing.T) {
	buf := &bytes.Buffer{}
	type ctxKey string
	userKey := ctxKey("user_id")
	extractor := func(ctx context.Context) (slog.Attr, bool) {
		if v := ctx.Value(userKey); v != nil {
			return slog.String("user_id", v.(string)), true
		}
		return slog.Attr{}, false
	}
	log := logger.New(
		logger.WithProduction("notify-engine"),
		logger.WithOutput(buf),
		logger.WithContextExtractors(extractor),
	)

	ctx := context.WithValue(context.Background(), userKey, "usr_7")
	log.InfoContext(ctx, "preferences gate passed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "usr_7", entry["user_id"])
}
