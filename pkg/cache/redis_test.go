package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// port 1 is never a Redis server
	_, err := New(ctx, WithAddress("127.0.0.1:1"), WithDialTimeout(100*time.Millisecond))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping 127.0.0.1:1")
}

func TestKeyPrefix(t *testing.T) {
	c := &Cache{prefix: "audit:"}
	assert.Equal(t, "audit:grpc:ranking:10:team:-:-", c.key("grpc:ranking:10:team:-:-"))

	bare := &Cache{}
	assert.Equal(t, "k", bare.key("k"))
}
