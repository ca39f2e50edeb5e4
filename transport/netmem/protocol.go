// Package netmem speaks a minimal framed read/write protocol for remote
// memory over a stream connection. The client side is a
// transport.Transport; the server side exposes any transport.Transport to
// the network. TCP and vsock (for VM guest devices) are supported out of
// the box, and any net.Conn works.
//
// The wire format is deliberately dumb so that tiny device firmware can
// speak it. Requests are a fixed 13-byte header, big endian:
//
//	op   byte    'R' or 'W'
//	addr uint64
//	n    uint32  read count, or write payload length
//
// followed by n payload bytes for writes. Responses are a status byte
// (0 = ok) and a uint32 length, followed by that many bytes: the data for
// reads, an error message for failures.
package netmem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	opRead  = 'R'
	opWrite = 'W'

	statusOK    = 0
	statusError = 1

	headerLen = 13

	// MaxPayload bounds a single frame's payload. Larger requests must be
	// split by the caller; a CachedHandler never comes close.
	MaxPayload = 1 << 20
)

// ErrProtocol is returned when the peer sends a malformed frame.
var ErrProtocol = errors.New("netmem: protocol error")

// RemoteError is a failure reported by the server for a specific request.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return "netmem: remote: " + e.Msg
}

type header struct {
	op   byte
	addr uint64
	n    uint32
}

func writeHeader(w io.Writer, h header) error {
	var buf [headerLen]byte
	buf[0] = h.op
	binary.BigEndian.PutUint64(buf[1:9], h.addr)
	binary.BigEndian.PutUint32(buf[9:13], h.n)
	_, err := w.Write(buf[:])
	return err
}

func readHeader(r io.Reader) (header, error) {
	var buf [headerLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, err
	}
	h := header{
		op:   buf[0],
		addr: binary.BigEndian.Uint64(buf[1:9]),
		n:    binary.BigEndian.Uint32(buf[9:13]),
	}
	if h.op != opRead && h.op != opWrite {
		return header{}, fmt.Errorf("%w: unknown op %#x", ErrProtocol, h.op)
	}
	if h.n > MaxPayload {
		return header{}, fmt.Errorf("%w: payload length %d exceeds %d", ErrProtocol, h.n, MaxPayload)
	}
	return h, nil
}

func writeResponse(w io.Writer, status byte, payload []byte) error {
	var buf [5]byte
	buf[0] = status
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readResponse(r io.Reader) ([]byte, error) {
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(buf[1:5])
	if n > MaxPayload {
		return nil, fmt.Errorf("%w: payload length %d exceeds %d", ErrProtocol, n, MaxPayload)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	switch buf[0] {
	case statusOK:
		return payload, nil
	case statusError:
		return nil, &RemoteError{Msg: string(payload)}
	default:
		return nil, fmt.Errorf("%w: unknown status %#x", ErrProtocol, buf[0])
	}
}
