// Package models defines the core data structures shared by the archive engine,
// the access layer and the CLI: the archive manifest, its samples and contigs,
// and the keys that address compressed sequence blocks.
package models

// Contig is a named contiguous sequence record within a sample
type Contig struct {
	Name   string `json:"name"`
	Length int64  `json:"length"`
	Blocks int    `json:"blocks"`
}

// Sample is a named genome within an archive
type Sample struct {
	Name    string    `json:"name"`
	Contigs []*Contig `json:"contigs"`
}

// ContigNames returns the contig names of the sample in archive order.
func (s *Sample) ContigNames() []string {
	names := make([]string, len(s.Contigs))
	for i, c := range s.Contigs {
		names[i] = c.Name
	}
	return names
}

// TotalLength returns the summed residue count of all contigs in the sample
func (s *Sample) TotalLength() int64 {
	var total int64
	for _, c := range s.Contigs {
		total += c.Length
	}
	return total
}
