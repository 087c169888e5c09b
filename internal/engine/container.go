package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kilupskalvis/seqarc/internal/models"
)

// FormatVersion is the archive layout version written by the builder and accepted by readers.
const FormatVersion = 1

const archiveMagic = "seqarc"

// Format names an on-disk container for archive data.
type Format string

// Supported containers.
const (
	FormatBolt   Format = "bolt"
	FormatSQLite Format = "sqlite"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// ParseFormat validates a format name from configuration or flags.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatBolt, FormatSQLite:
		return Format(s), nil
	case "":
		return FormatBolt, nil
	}
	return "", fmt.Errorf("unknown archive format %q (want %s or %s)", s, FormatBolt, FormatSQLite)
}

// DetectFormat sniffs the container type of an existing archive file.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return "", fmt.Errorf("%w: %s is too small to be an archive", ErrFormat, path)
	}
	if bytes.Equal(header, sqliteHeader) {
		return FormatSQLite, nil
	}
	return FormatBolt, nil
}

// source is the read side of a container. Implementations return records that the
// caller owns; nothing they return may reference transaction-scoped memory.
type source interface {
	readManifest() (*models.Manifest, error)
	readBlock(k models.BlockKey) ([]byte, error)
	Close() error
}

// sink is the write side of a container, used only by Builder.
type sink interface {
	writeContig(sampleOrd, contigOrd int, records [][]byte) error
	writeManifest(m *models.Manifest) error
	Close() error
}

func openSource(path string, format Format) (source, error) {
	switch format {
	case FormatSQLite:
		return openSQLiteSource(path)
	default:
		return openBoltSource(path)
	}
}

func createSink(path string, format Format) (sink, error) {
	switch format {
	case FormatSQLite:
		return createSQLiteSink(path)
	default:
		return createBoltSink(path)
	}
}

// validateManifest checks the structural promises the rest of the engine relies on,
// so that a damaged manifest is rejected at open time instead of surfacing as an
// out-of-range access during extraction.
func validateManifest(m *models.Manifest) error {
	if m.Version != FormatVersion {
		return fmt.Errorf("%w: version %d (supported: %d)", ErrVersion, m.Version, FormatVersion)
	}
	if m.Codec != CodecZstd {
		return fmt.Errorf("%w: unsupported codec %q", ErrFormat, m.Codec)
	}
	if m.BlockSize <= 0 {
		return fmt.Errorf("%w: invalid block size %d", ErrFormat, m.BlockSize)
	}
	seen := make(map[string]bool, len(m.Samples))
	for _, s := range m.Samples {
		if s == nil || s.Name == "" {
			return fmt.Errorf("%w: unnamed sample", ErrCorrupt)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: sample %q listed twice", ErrCorrupt, s.Name)
		}
		seen[s.Name] = true

		contigs := make(map[string]bool, len(s.Contigs))
		for _, c := range s.Contigs {
			if c == nil || c.Name == "" {
				return fmt.Errorf("%w: unnamed contig in sample %q", ErrCorrupt, s.Name)
			}
			if contigs[c.Name] {
				return fmt.Errorf("%w: contig %q listed twice in sample %q", ErrCorrupt, c.Name, s.Name)
			}
			contigs[c.Name] = true
			if c.Length < 0 || c.Blocks != models.BlockCount(c.Length, m.BlockSize) {
				return fmt.Errorf("%w: contig %q in sample %q has inconsistent length/blocks", ErrCorrupt, c.Name, s.Name)
			}
		}
	}
	return nil
}
