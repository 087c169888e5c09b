// Package fasta reads FASTA files into whole-sequence records for archive building.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrNoHeader is returned when sequence data appears before the first '>' line.
var ErrNoHeader = errors.New("sequence data before first FASTA header")

// Record is one parsed FASTA sequence.
type Record struct {
	ID  string
	Seq []byte
}

var gzipMagic = []byte{0x1f, 0x8b}

// maxLine allows very long single-line sequences (256 MiB).
const maxLine = 256 * 1024 * 1024

// Read parses FASTA from r and calls emit once per record, in file order.
// Line breaks and surrounding whitespace inside sequences are dropped; residues are kept verbatim.
func Read(r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id     string
		seq    []byte
		inRec  bool
		lineNo int
	)

	flush := func() error {
		if !inRec {
			return nil
		}
		return emit(Record{ID: id, Seq: seq})
	}

	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == ';' {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id = parseHeaderID(line[1:])
			if id == "" {
				return fmt.Errorf("line %d: empty FASTA header", lineNo)
			}
			seq = make([]byte, 0, 1<<16)
			inRec = true
			continue
		}
		if !inRec {
			return fmt.Errorf("line %d: %w", lineNo, ErrNoHeader)
		}
		seq = append(seq, line...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// ReadFile parses the FASTA file at path with Read. Gzip input is recognized
// by its magic bytes, whatever the file is called.
func ReadFile(path string, emit func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(bufio.NewReaderSize(f, 64*1024))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := Read(r, emit); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decompress(br *bufio.Reader) (io.Reader, error) {
	magic, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(magic, gzipMagic) {
		return br, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	return gz, nil
}

// SampleName derives a sample name from a FASTA path by stripping the directory
// and any FASTA or gzip extensions: "data/HG002.fa.gz" becomes "HG002".
func SampleName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	for _, ext := range []string{".fasta", ".fna", ".fas", ".fa"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return name
}

func parseHeaderID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}
