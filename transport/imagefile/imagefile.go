// Package imagefile serves a remote-memory image from a local file. Raw
// images are memory-mapped where the platform supports it, so opening a
// multi-gigabyte snapshot is cheap. Images compressed with zstd (.zst) or
// lz4 (.lz4) are decompressed into memory at open time.
//
// Writes patch the in-memory image; Save persists it back to disk in the
// original format. Raw memory-mapped images write through to the file via
// the shared mapping.
package imagefile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/remotemem/transport"
)

// Format identifies the on-disk encoding of an image file.
type Format int

const (
	// FormatRaw is an uncompressed image, mapped directly.
	FormatRaw Format = iota
	// FormatZstd is a zstd-compressed image (.zst).
	FormatZstd
	// FormatLZ4 is an lz4-compressed image (.lz4).
	FormatLZ4
)

// Image is a transport.Transport over a local image file.
type Image struct {
	path   string
	format Format
	data   []byte
	mapped bool
}

var _ transport.Transport = (*Image)(nil)

// Open loads the image at path. The format is inferred from the file
// extension. A missing file maps to transport.ErrNotFound.
func Open(path string) (*Image, error) {
	format := detectFormat(path)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("imagefile: %s: %w", path, transport.ErrNotFound)
		}
		return nil, fmt.Errorf("imagefile: open %s: %w", path, err)
	}
	defer f.Close()

	img := &Image{path: path, format: format}
	switch format {
	case FormatRaw:
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("imagefile: stat %s: %w", path, err)
		}
		img.data, img.mapped, err = mapFile(f, int(info.Size()))
		if err != nil {
			return nil, fmt.Errorf("imagefile: map %s: %w", path, err)
		}
	case FormatZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("imagefile: zstd reader: %w", err)
		}
		defer dec.Close()
		img.data, err = io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("imagefile: decompress %s: %w", path, err)
		}
	case FormatLZ4:
		img.data, err = io.ReadAll(lz4.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("imagefile: decompress %s: %w", path, err)
		}
	}
	return img, nil
}

// Create writes size zero bytes to a new image at path and opens it.
func Create(path string, size uint64) (*Image, error) {
	img := &Image{path: path, format: detectFormat(path), data: make([]byte, size)}
	if err := img.Save(); err != nil {
		return nil, err
	}
	if img.format == FormatRaw {
		// Reopen so raw images get the shared mapping.
		return Open(path)
	}
	return img, nil
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return FormatZstd
	case ".lz4":
		return FormatLZ4
	default:
		return FormatRaw
	}
}

// Size returns the image's length in bytes.
func (i *Image) Size() uint64 {
	return uint64(len(i.data))
}

// Format returns the image's on-disk encoding.
func (i *Image) Format() Format {
	return i.format
}

// ReadBytes copies count bytes at addr out of the image.
func (i *Image) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := addr + uint64(count)
	if end > uint64(len(i.data)) {
		return nil, fmt.Errorf("imagefile: read [%#x, %#x) beyond image size %#x: %w",
			addr, end, len(i.data), transport.ErrOutOfBounds)
	}
	out := make([]byte, count)
	copy(out, i.data[addr:end])
	return out, nil
}

// WriteBytes patches the image at addr. Raw mapped images write through
// to the file; compressed images need Save to persist.
func (i *Image) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	end := addr + uint64(len(data))
	if end > uint64(len(i.data)) {
		return fmt.Errorf("imagefile: write [%#x, %#x) beyond image size %#x: %w",
			addr, end, len(i.data), transport.ErrOutOfBounds)
	}
	copy(i.data[addr:end], data)
	return nil
}

// Save writes the image back to its file, recompressing as needed. Raw
// mapped images are flushed via the mapping instead.
func (i *Image) Save() error {
	if i.mapped {
		return flushMapping(i.data)
	}

	var buf bytes.Buffer
	switch i.format {
	case FormatRaw:
		buf.Write(i.data)
	case FormatZstd:
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("imagefile: zstd writer: %w", err)
		}
		if _, err := enc.Write(i.data); err != nil {
			return fmt.Errorf("imagefile: compress: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("imagefile: compress: %w", err)
		}
	case FormatLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(i.data); err != nil {
			return fmt.Errorf("imagefile: compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("imagefile: compress: %w", err)
		}
	}

	if err := os.WriteFile(i.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("imagefile: save %s: %w", i.path, err)
	}
	return nil
}

// Close releases the image. Raw mapped images are unmapped; the Image
// must not be used afterwards.
func (i *Image) Close() error {
	if i.mapped {
		err := unmapFile(i.data)
		i.data = nil
		i.mapped = false
		return err
	}
	i.data = nil
	return nil
}
