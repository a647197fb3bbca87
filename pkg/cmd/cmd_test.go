package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ryxhub/flowengine/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file", parsePersistenceProvider("./data"))
	assert.Equal(t, "file", parsePersistenceProvider("file://./data"))
	assert.Equal(t, "postgres", parsePersistenceProvider("postgres://user@localhost/db"))
	assert.Equal(t, "redis", parsePersistenceProvider("redis://localhost:6379/0"))
}

func TestNewPersistence_File(t *testing.T) {
	t.Parallel()

	p, err := NewPersistence(context.Background(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestNewPersistence_InvalidRedisURL(t *testing.T) {
	t.Parallel()

	_, err := NewPersistence(context.Background(), slog.Default(), "redis://localhost:notaport/x/y")
	require.Error(t, err)
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("", "", "flowengine", slog.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, bus.GenerateID())
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", "flowengine", slog.Default())
	require.Error(t, err)

	_, err = NewEventBus("rabbitmq", "", "flowengine", slog.Default())
	require.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())

	message, ok := reg.HealthCheck()
	assert.True(t, ok, message)
	assert.Len(t, reg.Components(), 4)
}
