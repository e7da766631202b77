package object

import (
	"bytes"
	"fmt"
	"testing"
)

var benchSizes = []int{64, 4 << 10, 256 << 10}

func benchPayload(size, salt int) []byte {
	line := []byte(fmt.Sprintf("line %d of a moderately repetitive source file\n", salt))
	return bytes.Repeat(line, size/len(line)+1)[:size]
}

func BenchmarkStoreWrite(b *testing.B) {
	for _, compress := range []bool{true, false} {
		for _, size := range benchSizes {
			b.Run(fmt.Sprintf("zstd=%v/%dB", compress, size), func(b *testing.B) {
				s := NewStore(b.TempDir(), WithCompression(compress))
				b.SetBytes(int64(size))
				for i := 0; i < b.N; i++ {
					// A fresh salt per iteration keeps every write on the slow path.
					if _, err := s.Write(TypeBlob, benchPayload(size, i)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkStoreRead(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			s := NewStore(b.TempDir())
			h, err := s.Write(TypeBlob, benchPayload(size, 0))
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, data, err := s.Read(h); err != nil || len(data) != size {
					b.Fatalf("Read = %d bytes, %v", len(data), err)
				}
			}
		})
	}
}

func BenchmarkStoreReachable(b *testing.B) {
	s := NewStore(b.TempDir())
	var parent Hash
	for i := 0; i < 200; i++ {
		blob, err := s.WriteBlob(&Blob{Data: benchPayload(128, i)})
		if err != nil {
			b.Fatal(err)
		}
		tree, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "f", Kind: KindBlob, Hash: blob}}})
		if err != nil {
			b.Fatal(err)
		}
		c := &CommitObj{TreeHash: tree, Author: "bench", Timestamp: int64(i), Message: "c"}
		if parent != "" {
			c.Parents = []Hash{parent}
		}
		if parent, err = s.WriteCommit(c); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, missing, err := s.Reachable([]Hash{parent}); err != nil || len(missing) != 0 {
			b.Fatalf("Reachable: missing %v, %v", missing, err)
		}
	}
}
