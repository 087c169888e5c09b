package cli

import (
	"bufio"
	"fmt"
	"io"
)

// fastaHeader names an extracted region as contig@sample:start-end (zero-based, half-open).
func fastaHeader(sample, contig string, start, end int64) string {
	return fmt.Sprintf(">%s@%s:%d-%d", contig, sample, start, end)
}

// writeFASTA writes header and seq, wrapping the sequence every width residues.
// A width of zero writes the sequence on one line.
func writeFASTA(w io.Writer, header, seq string, width int) error {
	bw := bufio.NewWriter(w)
	if header != "" {
		bw.WriteString(header)
		bw.WriteByte('\n')
	}
	if width <= 0 {
		width = len(seq)
	}
	for off := 0; off < len(seq); off += width {
		end := min(off+width, len(seq))
		bw.WriteString(seq[off:end])
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
