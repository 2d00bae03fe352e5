package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression algorithm used for an archived
// blob. The tag is stored as the first byte of each blob; changing the
// values breaks existing cold storage.
type Codec uint8

const (
	// CodecZstd is the default: good ratios for the JSON-encoded
	// sample windows the archiver produces.
	CodecZstd Codec = 1

	// CodecLZ4 trades ratio for speed; useful when rotation windows
	// are large and CPU is contended.
	CodecLZ4 Codec = 2
)

var ErrCodec = errors.New("archive codec error")

func (c Codec) String() string {
	switch c {
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func ParseCodec(name string) (Codec, error) {
	switch name {
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("%w: unknown codec %q", ErrCodec, name)
	}
}

// Blob layout: 1 tag byte, 8 bytes little-endian raw length, payload.
const headerSize = 9

func compress(c Codec, raw []byte) ([]byte, error) {
	out := make([]byte, headerSize, headerSize+len(raw)/2)
	out[0] = byte(c)
	binary.LittleEndian.PutUint64(out[1:], uint64(len(raw)))

	switch c {
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}
		defer enc.Close()

		return enc.EncodeAll(raw, out), nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}

		return append(out, buf.Bytes()...), nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCodec, c)
	}
}

// Decompress decodes a tagged blob produced by any codec.
func Decompress(blob []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, fmt.Errorf("%w: blob too short", ErrCodec)
	}
	tag := Codec(blob[0])
	rawLen := binary.LittleEndian.Uint64(blob[1:headerSize])
	payload := blob[headerSize:]

	switch tag {
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}

		return raw, nil
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		raw := make([]byte, 0, rawLen)
		buf := bytes.NewBuffer(raw)
		if _, err := io.Copy(buf, r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCodec, tag)
	}
}
