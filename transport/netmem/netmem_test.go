package netmem

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/remotemem/transport"
)

func newTestPair(t *testing.T) (*Client, *transport.Mem) {
	t.Helper()

	mem := transport.NewMem(256)
	for i := range mem.Bytes() {
		mem.Bytes()[i] = byte(i)
	}

	clientConn, serverConn := net.Pipe()
	srv := NewServer(mem)
	go srv.ServeConn(context.Background(), serverConn)

	client := NewClient(clientConn)
	t.Cleanup(func() {
		client.Close()
		serverConn.Close()
	})
	return client, mem
}

func TestClientRead(t *testing.T) {
	ctx := context.Background()
	client, mem := newTestPair(t)

	data, err := client.ReadBytes(ctx, 40, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{40, 41, 42, 43}, data)
	assert.Equal(t, 1, mem.Reads)
}

func TestClientWrite(t *testing.T) {
	ctx := context.Background()
	client, mem := newTestPair(t)

	require.NoError(t, client.WriteBytes(ctx, 10, []byte{0xAA, 0xBB}))
	assert.Equal(t, []byte{0xAA, 0xBB}, mem.Bytes()[10:12])

	data, err := client.ReadBytes(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
}

func TestClientRemoteError(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestPair(t)

	// Out-of-bounds reads fail on the server and surface as RemoteError;
	// the connection stays usable.
	_, err := client.ReadBytes(ctx, 1000, 4)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Msg, "out of bounds")

	data, err := client.ReadBytes(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, data)
}

func TestClientFrameLimit(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestPair(t)

	_, err := client.ReadBytes(ctx, 0, MaxPayload+1)
	assert.ErrorIs(t, err, ErrProtocol)

	err = client.WriteBytes(ctx, 0, make([]byte, MaxPayload+1))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestServeOverTCP(t *testing.T) {
	mem := transport.NewMem(64)
	srv := NewServer(mem)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, l) }()

	client, err := Dial(l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteBytes(ctx, 0, []byte{1, 2, 3}))
	data, err := client.ReadBytes(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	cancel()
	assert.NoError(t, <-done)
}

func TestHeaderRoundTrip(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		_ = writeHeader(c1, header{op: opWrite, addr: 0xDEADBEEF, n: 42})
	}()

	h, err := readHeader(c2)
	require.NoError(t, err)
	assert.Equal(t, byte(opWrite), h.op)
	assert.Equal(t, uint64(0xDEADBEEF), h.addr)
	assert.Equal(t, uint32(42), h.n)
}
