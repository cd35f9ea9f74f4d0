package redis

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/los-insight/pkg/options/redis"
)

func optionsFor(t *testing.T, addr string) *options.Options {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	opts := options.NewOptions()
	opts.Host = host
	opts.Port = p
	return opts
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), optionsFor(t, mr.Addr()))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "redis", c.Name())
	assert.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), optionsFor(t, addr))
	assert.Error(t, err)
}

func TestNew_NilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}
