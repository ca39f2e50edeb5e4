package netmem

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/hupe1980/remotemem/transport"
)

// Client is a transport.Transport backed by a stream connection to a
// netmem server. It is safe for concurrent use; requests are serialized on
// the connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to a netmem server over TCP.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netmem: dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// DialVsock connects to a netmem server over a vsock channel, as exposed
// by a hypervisor to its guests.
func DialVsock(contextID, port uint32) (*Client, error) {
	conn, err := vsock.Dial(contextID, port, nil)
	if err != nil {
		return nil, fmt.Errorf("netmem: dial vsock %d:%d: %w", contextID, port, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ReadBytes requests count bytes starting at addr from the server.
func (c *Client) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	if count > MaxPayload {
		return nil, fmt.Errorf("%w: read of %d bytes exceeds frame limit", ErrProtocol, count)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	if err := writeHeader(c.conn, header{op: opRead, addr: addr, n: uint32(count)}); err != nil {
		return nil, fmt.Errorf("netmem: send read: %w", err)
	}
	data, err := readResponse(c.conn)
	if err != nil {
		return nil, fmt.Errorf("netmem: read %#x+%d: %w", addr, count, err)
	}
	if len(data) != count {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrProtocol, len(data), count)
	}
	return data, nil
}

// WriteBytes sends data to be stored at addr on the server.
func (c *Client) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("%w: write of %d bytes exceeds frame limit", ErrProtocol, len(data))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	if err := writeHeader(c.conn, header{op: opWrite, addr: addr, n: uint32(len(data))}); err != nil {
		return fmt.Errorf("netmem: send write: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("netmem: send write payload: %w", err)
	}
	if _, err := readResponse(c.conn); err != nil {
		return fmt.Errorf("netmem: write %#x+%d: %w", addr, len(data), err)
	}
	return nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(deadline)
	}
	return c.conn.SetDeadline(time.Time{})
}
