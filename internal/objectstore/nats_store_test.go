// Package objectstore_test tests the NATS JetStream audio store.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/book-expert/translation-service/internal/objectstore"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *objectstore.AudioStore {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "TEST_AUDIO")
	require.NoError(t, err)

	return store
}

func TestAudioStore_UploadDownloadRoundTrip(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	payload := []byte("RIFF fake wav payload")

	err := store.Upload(ctx, "result.wav", payload)
	require.NoError(t, err)

	data, err := store.Download(ctx, "result.wav")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestAudioStore_DownloadMissingKey(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	_, err := store.Download(context.Background(), "does-not-exist.wav")
	require.Error(t, err)
}
