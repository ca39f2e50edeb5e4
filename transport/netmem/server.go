package netmem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mdlayher/vsock"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/remotemem/transport"
)

// Server exposes a transport.Transport over the netmem protocol. Each
// connection is served on its own goroutine; requests within a connection
// are handled in order.
type Server struct {
	backend transport.Transport
}

// NewServer creates a Server answering requests from the given backend.
func NewServer(backend transport.Transport) *Server {
	return &Server{backend: backend}
}

// ListenVsock listens on a vsock port, for exposing memory to sibling VMs
// or the host. Pass the listener to Serve.
func ListenVsock(port uint32) (net.Listener, error) {
	l, err := vsock.Listen(port, nil)
	if err != nil {
		return nil, fmt.Errorf("netmem: listen vsock %d: %w", port, err)
	}
	return l, nil
}

// Serve accepts connections from l until ctx is canceled or the listener
// fails. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})
	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("netmem: accept: %w", err)
			}
			g.Go(func() error {
				defer conn.Close()
				stop := context.AfterFunc(ctx, func() { conn.Close() })
				defer stop()
				s.ServeConn(ctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeConn handles requests on a single connection until it is closed or
// a protocol error occurs.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	for {
		h, err := readHeader(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, ErrProtocol) {
				_ = writeResponse(conn, statusError, []byte(err.Error()))
			}
			return
		}

		switch h.op {
		case opRead:
			data, err := s.backend.ReadBytes(ctx, h.addr, int(h.n))
			if err != nil {
				err = writeResponse(conn, statusError, []byte(err.Error()))
			} else {
				err = writeResponse(conn, statusOK, data)
			}
			if err != nil {
				return
			}
		case opWrite:
			payload := make([]byte, h.n)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
			if err := s.backend.WriteBytes(ctx, h.addr, payload); err != nil {
				err = writeResponse(conn, statusError, []byte(err.Error()))
				if err != nil {
					return
				}
				continue
			}
			if err := writeResponse(conn, statusOK, nil); err != nil {
				return
			}
		}
	}
}
