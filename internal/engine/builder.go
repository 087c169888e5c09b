package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/kilupskalvis/seqarc/internal/models"
	"go.uber.org/zap"
)

// DefaultBlockSize is the number of residues compressed together in one block.
const DefaultBlockSize = 64 * 1024

// BuildOptions configures a Builder.
type BuildOptions struct {
	Format    Format
	BlockSize int    // residues per block; zero means DefaultBlockSize
	Level     string // zstd level name: fastest, default, better, best
	Logger    *zap.Logger
}

// Builder writes a new archive file. Contigs are compressed and stored as they are
// added; the manifest is written by Close, so an unfinished archive is rejected by readers.
type Builder struct {
	path string
	out  sink
	enc  *blockEncoder
	log  *zap.Logger

	manifest *models.Manifest
	samples  map[string]int
	contigs  []map[string]bool
	done     bool
}

// Create starts a new archive at path. The file must not exist.
func Create(path string, opts BuildOptions) (*Builder, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if opts.BlockSize < 0 {
		return nil, fmt.Errorf("invalid block size %d", opts.BlockSize)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Format == "" {
		opts.Format = FormatBolt
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	enc, err := newBlockEncoder(opts.Level)
	if err != nil {
		return nil, err
	}
	out, err := createSink(path, opts.Format)
	if err != nil {
		enc.Close()
		return nil, err
	}

	return &Builder{
		path: path,
		out:  out,
		enc:  enc,
		log:  log,
		manifest: &models.Manifest{
			Version:   FormatVersion,
			BlockSize: opts.BlockSize,
			Codec:     CodecZstd,
		},
		samples: make(map[string]int),
	}, nil
}

// AddSample registers an empty sample. It fails with ErrDuplicate if the sample exists.
func (b *Builder) AddSample(name string) error {
	if err := b.check(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("sample name must not be empty")
	}
	if _, ok := b.samples[name]; ok {
		return fmt.Errorf("%w: sample %s", ErrDuplicate, name)
	}
	b.addSample(name)
	return nil
}

func (b *Builder) addSample(name string) int {
	ord := len(b.manifest.Samples)
	b.manifest.Samples = append(b.manifest.Samples, &models.Sample{Name: name, Contigs: []*models.Contig{}})
	b.samples[name] = ord
	b.contigs = append(b.contigs, make(map[string]bool))
	return ord
}

// AddContig compresses seq and appends it to sample, creating the sample on first use.
func (b *Builder) AddContig(sample, contig string, seq []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	if sample == "" || contig == "" {
		return fmt.Errorf("sample and contig names must not be empty")
	}
	ord, ok := b.samples[sample]
	if !ok {
		ord = b.addSample(sample)
	}
	if b.contigs[ord][contig] {
		return fmt.Errorf("%w: contig %s in sample %s", ErrDuplicate, contig, sample)
	}

	bs := b.manifest.BlockSize
	n := models.BlockCount(int64(len(seq)), bs)
	records := make([][]byte, 0, n)
	for off := 0; off < len(seq); off += bs {
		end := min(off+bs, len(seq))
		records = append(records, b.enc.encode(seq[off:end]))
	}

	s := b.manifest.Samples[ord]
	if err := b.out.writeContig(ord, len(s.Contigs), records); err != nil {
		return fmt.Errorf("write contig %s@%s: %w", contig, sample, err)
	}
	s.Contigs = append(s.Contigs, &models.Contig{Name: contig, Length: int64(len(seq)), Blocks: n})
	b.contigs[ord][contig] = true

	b.log.Debug("contig added",
		zap.String("sample", sample),
		zap.String("contig", contig),
		zap.Int("length", len(seq)),
		zap.Int("blocks", n))
	return nil
}

// Close writes the manifest and closes the file. If either step fails the
// file is removed, as with Abort.
func (b *Builder) Close() error {
	if err := b.check(); err != nil {
		return err
	}
	b.done = true

	werr := b.out.writeManifest(b.manifest)
	cerr := b.out.Close()
	b.enc.Close()
	if werr != nil {
		os.Remove(b.path)
		return fmt.Errorf("write manifest: %w", werr)
	}
	if cerr != nil {
		os.Remove(b.path)
		return fmt.Errorf("close archive: %w", cerr)
	}

	for _, s := range b.manifest.Samples {
		b.log.Debug("sample written",
			zap.String("sample", s.Name),
			zap.Int("contigs", len(s.Contigs)),
			zap.Int64("residues", s.TotalLength()))
	}
	return nil
}

// Abort closes the file without a manifest and removes it.
func (b *Builder) Abort() error {
	if b.done {
		return nil
	}
	b.done = true
	b.out.Close()
	b.enc.Close()
	return os.Remove(b.path)
}

func (b *Builder) check() error {
	if b.done {
		return fmt.Errorf("builder for %s already finished", b.path)
	}
	return nil
}
