package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/pkg/logger"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestNew(t *testing.T) {
	t.Run("json output with static attrs", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithService("checkout", "test"),
		)

		log.Info("hello")

		rec := logLine(t, &buf)
		assert.Equal(t, "hello", rec["msg"])
		assert.Equal(t, "checkout", rec["service"])
		assert.Equal(t, "test", rec["env"])
	})

	t.Run("level filters records", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithLevel(slog.LevelWarn),
		)

		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.NotZero(t, buf.Len())
	})

	t.Run("context extractor injects attribute", func(t *testing.T) {
		type ctxKey struct{}

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
				if v, ok := ctx.Value(ctxKey{}).(string); ok {
					return slog.String("process_id", v), true
				}
				return slog.Attr{}, false
			}),
		)

		ctx := context.WithValue(context.Background(), ctxKey{}, "proc-123")
		log.InfoContext(ctx, "processing")

		rec := logLine(t, &buf)
		assert.Equal(t, "proc-123", rec["process_id"])
	})
}

func TestAttrs(t *testing.T) {
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.ProcessID(""))
	assert.Equal(t, "process_id", logger.ProcessID("abc").Key)
	assert.Equal(t, "provider", logger.Provider("stripe").Key)
}
