package cache

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// vectorsMagic identifies the binary vector artifact. The frame is
// magic | u32 count | u32 dim | count*dim float32, little-endian,
// zstd-compressed as a whole.
const vectorsMagic = "CAV1"

const vectorsHeaderSize = 12

func encodeVectors(vectors [][]float32) ([]byte, error) {
	count := len(vectors)
	dim := 0
	if count > 0 {
		dim = len(vectors[0])
	}
	payload := make([]byte, vectorsHeaderSize+4*count*dim)
	copy(payload, vectorsMagic)
	binary.LittleEndian.PutUint32(payload[4:], uint32(count))
	binary.LittleEndian.PutUint32(payload[8:], uint32(dim))
	off := vectorsHeaderSize
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dim)
		}
		for _, x := range vec {
			binary.LittleEndian.PutUint32(payload[off:], math.Float32bits(x))
			off += 4
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(payload, nil), nil
}

func decodeVectors(compressed []byte) ([][]float32, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing vectors: %w", err)
	}
	if len(payload) < vectorsHeaderSize || string(payload[:4]) != vectorsMagic {
		return nil, fmt.Errorf("not a vector artifact (bad magic)")
	}
	count := int(binary.LittleEndian.Uint32(payload[4:]))
	dim := int(binary.LittleEndian.Uint32(payload[8:]))
	want := vectorsHeaderSize + 4*count*dim
	if len(payload) != want {
		return nil, fmt.Errorf("vector artifact truncated: %d bytes, expected %d", len(payload), want)
	}
	vectors := make([][]float32, count)
	off := vectorsHeaderSize
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// SaveVectors writes the embedding matrix as a compressed binary artifact.
func (s *Store) SaveVectors(vectors [][]float32) error {
	data, err := encodeVectors(vectors)
	if err != nil {
		return err
	}
	return s.writeAtomic(vectorsFile, data)
}

// DropVectors removes the vector artifact. An analysis that skips
// embeddings calls this so stale vectors cannot outlive the chunks they
// were aligned with.
func (s *Store) DropVectors() error {
	err := os.Remove(filepath.Join(s.dir, vectorsFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cached vectors: %w", err)
	}
	return nil
}

// LoadVectors reads the embedding matrix. A missing artifact yields
// (nil, nil).
func (s *Store) LoadVectors() ([][]float32, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached vectors: %w", err)
	}
	return decodeVectors(data)
}
