package object

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic opens every zstd frame. Plain envelopes start with an ASCII
// type name, so Read can tell the two encodings apart.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// zstdCodec holds one encoder and one decoder for the whole process.
// EncodeAll and DecodeAll are safe for concurrent use.
var zstdCodec = sync.OnceValues(func() (*zstdPair, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdPair{enc: enc, dec: dec}, nil
})

type zstdPair struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func compressZstd(data []byte) ([]byte, error) {
	c, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	c, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	return c.dec.DecodeAll(data, nil)
}

func isZstdFrame(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
