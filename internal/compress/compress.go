// Package compress encodes the JSON payloads written to the database.
package compress

import (
	"errors"
	"fmt"
)

// ErrUnknownCodec is returned by New for an unsupported codec name.
var ErrUnknownCodec = errors.New("unknown compression codec")

type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Name() string
}

// New returns the codec registered under name. An empty name means no compression.
func New(name string) (Compress, error) {
	switch name {
	case "", "nop", "none":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "brotli":
		return NewBrotli(), nil
	case "lz4":
		return NewLZ4(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
}
