package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/pkg/httpserver"
)

func TestServerRun(t *testing.T) {
	t.Run("serves requests and stops on context cancel", func(t *testing.T) {
		srv := httpserver.New(httpserver.Config{
			Addr:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
		}()

		// Give the listener a moment to bind before cancelling.
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop after context cancellation")
		}
	})

	t.Run("fails to bind an occupied address", func(t *testing.T) {
		occupied := httptest.NewServer(http.NotFoundHandler())
		defer occupied.Close()

		srv := httpserver.New(httpserver.Config{
			Addr:            occupied.Listener.Addr().String(),
			ShutdownTimeout: time.Second,
		}, nil)

		err := srv.Run(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, httpserver.ErrStart))
	})
}

func TestHealthCheckHandler(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		h := httpserver.HealthCheckHandler(nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "ALIVE", string(body))
	})

	t.Run("readiness passes", func(t *testing.T) {
		h := httpserver.HealthCheckHandler(nil, func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness fails", func(t *testing.T) {
		h := httpserver.HealthCheckHandler(nil,
			func(context.Context) error { return nil },
			func(context.Context) error { return errors.New("db down") },
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
