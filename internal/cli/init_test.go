package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/amqp"
	"finboard/internal/config"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("finboard", "debug")
	assert.Equal(t, "finboard", logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = SetupLogger("finboard", "loud")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug), "unknown levels fall back to info")
}

func TestPublisher_NilStaysNil(t *testing.T) {
	assert.Nil(t, Publisher(nil))

	var client *amqp.Client
	assert.Nil(t, Publisher(client))
}

func TestConnectAMQP_Disabled(t *testing.T) {
	client, err := ConnectAMQP(SetupLogger("test", "error"), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOpenBackend_Memory(t *testing.T) {
	res, err := OpenBackend(context.Background(), SetupLogger("test", "error"), &config.Config{
		DataBackend:   "memory",
		DataDirectory: t.TempDir(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Store)
	assert.NoError(t, res.Ready(context.Background()))

	_, err = OpenBackend(context.Background(), SetupLogger("test", "error"), &config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
}

func TestSignalContext_Cancel(t *testing.T) {
	ctx, cancel := SignalContext(SetupLogger("test", "error"))
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
