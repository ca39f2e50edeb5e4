//go:build windows

package imagefile

import (
	"io"
	"os"
)

// Windows falls back to reading the whole image; Save writes it back.

func mapFile(f *os.File, size int) ([]byte, bool, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func flushMapping([]byte) error { return nil }

func unmapFile([]byte) error { return nil }
