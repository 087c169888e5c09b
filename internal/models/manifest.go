package models

// Manifest describes everything an archive holds except the sequence blocks themselves.
// It is loaded once when an archive is opened and never changes afterwards.
type Manifest struct {
	Version   int       `json:"version"`
	BlockSize int       `json:"block_size"`
	Codec     string    `json:"codec"`
	Samples   []*Sample `json:"samples"`
}

// SampleNames returns the sample names in archive order
func (m *Manifest) SampleNames() []string {
	names := make([]string, len(m.Samples))
	for i, s := range m.Samples {
		names[i] = s.Name
	}
	return names
}

// TotalBlocks returns the number of compressed blocks across all contigs
func (m *Manifest) TotalBlocks() int {
	total := 0
	for _, s := range m.Samples {
		for _, c := range s.Contigs {
			total += c.Blocks
		}
	}
	return total
}

// BlockCount returns how many blocks of blockSize residues a sequence of the given length spans.
func BlockCount(length int64, blockSize int) int {
	if length <= 0 || blockSize <= 0 {
		return 0
	}
	return int((length + int64(blockSize) - 1) / int64(blockSize))
}
