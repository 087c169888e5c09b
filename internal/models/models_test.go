package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockCount(t *testing.T) {
	tests := []struct {
		length    int64
		blockSize int
		want      int
	}{
		{0, 16, 0},
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{100, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BlockCount(tt.length, tt.blockSize), "length=%d block=%d", tt.length, tt.blockSize)
	}
}

func TestBlockKey_Encoding(t *testing.T) {
	key := BlockKey{Sample: 3, Contig: 70000, Block: 12}
	assert.Equal(t, []byte{0, 0, 0, 3, 0, 1, 0x11, 0x70, 0, 0, 0, 12}, key.Bytes())
	assert.Equal(t, "3/70000/12", key.String())
}

func TestBlockKey_OrderMatchesArchiveOrder(t *testing.T) {
	a := BlockKey{Sample: 0, Contig: 1, Block: 300}
	b := BlockKey{Sample: 0, Contig: 2, Block: 0}
	assert.Less(t, string(a.Bytes()), string(b.Bytes()))
}

func TestManifest_Names(t *testing.T) {
	m := &Manifest{
		BlockSize: 4,
		Samples: []*Sample{
			{Name: "zeta", Contigs: []*Contig{{Name: "chr1", Length: 9, Blocks: 3}, {Name: "chr2", Length: 4, Blocks: 1}}},
			{Name: "alpha"},
		},
	}
	assert.Equal(t, []string{"zeta", "alpha"}, m.SampleNames())
	assert.Equal(t, []string{"chr1", "chr2"}, m.Samples[0].ContigNames())
	assert.Empty(t, m.Samples[1].ContigNames())
	assert.Equal(t, int64(13), m.Samples[0].TotalLength())
	assert.Equal(t, 4, m.TotalBlocks())
}
