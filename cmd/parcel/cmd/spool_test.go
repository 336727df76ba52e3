package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/parcel/pkg/api"
	"github.com/ssargent/parcel/pkg/cache"
	"github.com/ssargent/parcel/pkg/clock"
	"github.com/ssargent/parcel/pkg/di"
	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/storage"
	"github.com/ssargent/parcel/pkg/telemetry"
)

func openTestSpool(t *testing.T, rt *runtime) api.SpoolCloser {
	t.Helper()
	spool, err := openSpool(di.NewContainer(), rt.cfg, rt)
	require.NoError(t, err)
	t.Cleanup(func() { spool.Close() })
	return spool
}

func TestListAndShowSpool(t *testing.T) {
	rt := testRuntime(t)
	spool := openTestSpool(t, rt)

	event := telemetry.NewEvent(telemetry.LevelInfo, "queued")
	env := envelope.FromEvent(event, nil, nil)
	id, err := spool.Enqueue(env)
	require.NoError(t, err)
	env.Close()

	var out bytes.Buffer
	require.NoError(t, listSpool(spool, &out))
	assert.Contains(t, out.String(), id.String())
	assert.Contains(t, out.String(), event.EventID.String())
	assert.Contains(t, out.String(), "1 items")
	assert.Contains(t, out.String(), "1 envelope(s)")

	out.Reset()
	now := clock.NewFixed(testTime)
	require.NoError(t, showSpooled(spool, id.String(), &out, envelope.WithClock(now)))
	header, _, _ := strings.Cut(out.String(), "\n")
	assert.Contains(t, header, `"sent_at":"2024-05-06T07:08:09.000Z"`)

	shown, err := envelope.Deserialize(&out)
	require.NoError(t, err)
	defer shown.Close()
	assert.Equal(t, 1, shown.Len())
}

func TestShowSpooledErrors(t *testing.T) {
	rt := testRuntime(t)
	spool := openTestSpool(t, rt)

	err := showSpooled(spool, "nope", &bytes.Buffer{})
	assert.Error(t, err)

	err = showSpooled(spool, ksuid.New().String(), &bytes.Buffer{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPushCache(t *testing.T) {
	rt := testRuntime(t)
	spool := openTestSpool(t, rt)

	c, err := cache.Open(cache.Config{Dir: rt.cfg.CacheDir(), Logger: rt.logger})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Store(envelope.FromSession(&telemetry.SessionUpdate{SessionID: "s"}))
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, pushCache(c, spool, &out))
	assert.Equal(t, 3, strings.Count(out.String(), "->"))

	names, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	n, err := spool.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

type recordingStarter struct {
	config api.ServerConfig
	spool  api.ISpool
}

func (r *recordingStarter) StartServer(ctx context.Context, spool api.ISpool, config api.ServerConfig) error {
	r.config = config
	r.spool = spool
	return nil
}

type recordingServerFactory struct {
	starter *recordingStarter
}

func (f recordingServerFactory) CreateServerStarter() api.ServerStarter { return f.starter }

func TestServe(t *testing.T) {
	rt := testRuntime(t)
	rt.cfg.Server.Port = 9123

	starter := &recordingStarter{}
	c := di.NewContainer()
	c.SetServerFactory(recordingServerFactory{starter: starter})

	require.NoError(t, serve(context.Background(), c, rt))
	assert.Equal(t, 9123, starter.config.Port)
	assert.Equal(t, "test-key", starter.config.APIKey)
	assert.Equal(t, rt.cfg.Server.MaxEnvelopeBytes, starter.config.MaxEnvelopeBytes)
	assert.NotNil(t, starter.spool)
	assert.DirExists(t, rt.cfg.SpoolDir())
}

func TestServeRequiresAPIKey(t *testing.T) {
	rt := testRuntime(t)
	rt.cfg.Server.APIKey = "auto"

	err := serve(context.Background(), di.NewContainer(), rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parcel init")
}
