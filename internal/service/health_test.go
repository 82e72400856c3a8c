package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthService_Check(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("refused") })

	t.Run("all healthy", func(t *testing.T) {
		report, healthy := NewHealthService(map[string]Pinger{"database": ok, "cache": ok, "storage": nil}, time.Second).
			Check(context.Background())

		assert.True(t, healthy)
		assert.Equal(t, "healthy", report.Status)
		assert.Equal(t, map[string]string{"database": "ok", "cache": "ok"}, report.Checks)
	})

	t.Run("one down", func(t *testing.T) {
		report, healthy := NewHealthService(map[string]Pinger{"database": ok, "storage": down}, time.Second).
			Check(context.Background())

		assert.False(t, healthy)
		assert.Equal(t, "unhealthy", report.Status)
		assert.Equal(t, "unavailable", report.Checks["storage"])
	})

	t.Run("timeout applies", func(t *testing.T) {
		slow := PingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		_, healthy := NewHealthService(map[string]Pinger{"database": slow}, 10*time.Millisecond).
			Check(context.Background())

		assert.False(t, healthy)
	})
}
