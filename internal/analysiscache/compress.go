package analysiscache

import (
	stderrors "errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names the compression applied to a stored payload. The name is
// persisted per row, so rows written under one configuration still decode
// after the configured codec changes.
type Codec string

const (
	// CodecNone stores the serialized payload as-is
	CodecNone Codec = "none"
	// CodecZstd uses zstd at the default level; best ratio for text results
	CodecZstd Codec = "zstd"
	// CodecLZ4 uses LZ4 block compression; faster, lower ratio
	CodecLZ4 Codec = "lz4"
)

// ParseCodec parses a codec name from configuration
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case CodecNone, CodecZstd, CodecLZ4:
		return Codec(name), nil
	case "":
		return CodecZstd, nil
	default:
		return "", fmt.Errorf("unknown compression codec: %q", name)
	}
}

// errIncompressible signals that compression would not shrink the payload.
var errIncompressible = stderrors.New("incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("analysiscache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("analysiscache: zstd decoder initialization failed: " + err.Error())
	}
}

// compress encodes data with the requested codec and returns the codec
// actually used: payloads that do not shrink are stored with CodecNone.
func compress(data []byte, codec Codec) ([]byte, Codec, error) {
	var (
		out []byte
		err error
	)
	switch codec {
	case CodecNone:
		return data, CodecNone, nil
	case CodecZstd:
		out, err = compressZstd(data)
	case CodecLZ4:
		out, err = compressLZ4(data)
	default:
		return nil, "", fmt.Errorf("unsupported codec: %q", codec)
	}
	if err == errIncompressible {
		return data, CodecNone, nil
	}
	if err != nil {
		return nil, "", err
	}
	return out, codec, nil
}

// decompress reverses compress. uncompressedSize must match exactly.
func decompress(data []byte, codec Codec, uncompressedSize int) ([]byte, error) {
	switch codec {
	case CodecNone:
		if len(data) != uncompressedSize {
			return nil, fmt.Errorf("stored payload: size %d does not match expected %d", len(data), uncompressedSize)
		}
		return data, nil
	case CodecZstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), uncompressedSize)
		}
		return out, nil
	case CodecLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, uncompressedSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported codec: %q", codec)
	}
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, errIncompressible
	}
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}
