package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", FormatJSON, &buf)

	log.Debug("debug message")
	assert.Zero(t, buf.Len(), "debug should not be logged at info level")

	log.Info("info message")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "info message", entry["msg"])
}

func TestNewLogger_Defaults(t *testing.T) {
	log := NewLogger("bogus", "", nil)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	text := NewLogger("DEBUG", "TEXT", &bytes.Buffer{})
	assert.Equal(t, logrus.DebugLevel, text.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, text.Formatter)
}

func TestFromContext(t *testing.T) {
	t.Run("carries request id", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger("info", FormatJSON, &buf)

		ctx := WithLogger(context.Background(), log)
		ctx = WithRequestID(ctx, "req-123")
		FromContext(ctx).Info("test message")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "req-123", entry["request_id"])
		assert.NotContains(t, entry, "trace_id")
	})

	t.Run("falls back to standard logger", func(t *testing.T) {
		entry := FromContext(context.Background())
		assert.Same(t, logrus.StandardLogger(), entry.Logger)
	})

	t.Run("missing values", func(t *testing.T) {
		assert.Empty(t, GetRequestID(context.Background()))
		assert.Nil(t, GetLogger(context.Background()))
	})
}
