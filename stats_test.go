package memcache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStats(t *testing.T) {
	client, dialer := newTestClient(t, Config{})
	conn := dialer.Conn(testAddr)
	ctx := context.Background()

	conn.AddResponse("VALUE k 0 1", "v", "END", "END", "STORED", "DELETED", "TOUCHED", "5", "SERVER_ERROR boom")

	_, err := client.Get(ctx, "k")
	require.NoError(t, err)
	_, err = client.Get(ctx, "missing")
	require.NoError(t, err)
	_, err = client.Set(ctx, "k", "v")
	require.NoError(t, err)
	_, err = client.Delete(ctx, "k")
	require.NoError(t, err)
	_, err = client.Touch(ctx, "k")
	require.NoError(t, err)
	_, _, err = client.Incr(ctx, "n", 1)
	require.NoError(t, err)
	_, err = client.Set(ctx, "k", "v")
	require.Error(t, err)

	dialer.FailDial(testAddr, errors.New("down"))
	conn.FailReads(errors.New("reset"))
	_, err = client.Get(ctx, "k")
	require.NoError(t, err)

	assert.Equal(t, ClientStats{
		Gets:              3,
		GetHits:           1,
		Sets:              2,
		Deletes:           1,
		Touches:           1,
		Increments:        1,
		Errors:            1,
		SoftFailures:      1,
		ServersMarkedDead: 1,
	}, client.Stats())
}

func TestPoolStats(t *testing.T) {
	client, dialer := newTestClient(t, Config{})
	conn := dialer.Conn(testAddr)
	ctx := context.Background()

	conn.AddResponse("END", "END")
	_, err := client.Get(ctx, "a")
	require.NoError(t, err)
	_, err = client.Get(ctx, "b")
	require.NoError(t, err)

	stats := client.ServerPoolStats()
	require.Len(t, stats, 1)
	assert.Equal(t, testAddr, stats[0].Addr)
	assert.Equal(t, uint64(2), stats[0].PoolStats.AcquireCount)
	assert.Equal(t, uint64(1), stats[0].PoolStats.CreatedConns)
	assert.Equal(t, int32(1), stats[0].PoolStats.IdleConns)
	assert.Equal(t, int32(0), stats[0].PoolStats.ActiveConns)
}
