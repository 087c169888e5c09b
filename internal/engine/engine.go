// Package engine implements the archive engine behind the access layer: it opens a
// compressed multi-sample sequence archive, serves its manifest and decodes
// sequence blocks on demand. It also provides the Builder that writes new archives.
//
// A Decompressor is not safe for concurrent use. Open one per goroutine; the
// containers are opened read-only so any number of them may share a file.
package engine

import (
	"fmt"

	"github.com/kilupskalvis/seqarc/internal/models"
	"go.uber.org/zap"
)

// Engine is the capability the access layer wraps.
type Engine interface {
	Open(path string, prefetch bool) error
	Close() error
	IsOpened() bool

	ListSamples() ([]string, error)
	ListContigs(sample string) ([]string, error)
	NumSamples() (int, error)
	NumContigs(sample string) (int, error)

	ContigLength(sample, contig string) (int64, error)
	// ContigString returns residues [start, end). The result may share memory
	// with the engine's block cache and must not be modified or retained.
	ContigString(sample, contig string, start, end int64) ([]byte, error)
}

// Options configures a Decompressor.
type Options struct {
	// CacheBlocks bounds the number of decoded blocks kept for lazy reads.
	// Zero means DefaultCacheBlocks.
	CacheBlocks int
	Logger      *zap.Logger
}

// Decompressor reads archives written by Builder.
type Decompressor struct {
	opts Options
	log  *zap.Logger

	path     string
	src      source
	dec      *blockDecoder
	manifest *models.Manifest
	samples  map[string]*sampleIndex
	cache    *blockCache
}

type sampleIndex struct {
	ord     int
	sample  *models.Sample
	contigs map[string]int
}

var _ Engine = (*Decompressor)(nil)

// New returns an unopened Decompressor. It performs no I/O.
func New(opts Options) *Decompressor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Decompressor{opts: opts, log: log}
}

// Open loads the archive manifest. With prefetch set every block is decoded up
// front and kept resident, so later reads never touch the file.
func (d *Decompressor) Open(path string, prefetch bool) error {
	if d.src != nil {
		return ErrAlreadyOpened
	}

	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	src, err := openSource(path, format)
	if err != nil {
		return err
	}
	m, err := src.readManifest()
	if err == nil {
		err = validateManifest(m)
	}
	if err != nil {
		src.Close()
		return err
	}
	dec, err := newBlockDecoder()
	if err != nil {
		src.Close()
		return err
	}

	d.path = path
	d.src = src
	d.dec = dec
	d.manifest = m
	d.samples = indexSamples(m)
	d.cache = newBlockCache(d.opts.CacheBlocks)

	if prefetch {
		if err := d.prefetch(); err != nil {
			d.Close()
			return fmt.Errorf("prefetch: %w", err)
		}
	}

	d.log.Debug("archive opened",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("samples", len(m.Samples)),
		zap.Int("block_size", m.BlockSize),
		zap.Bool("prefetch", prefetch))
	return nil
}

func indexSamples(m *models.Manifest) map[string]*sampleIndex {
	idx := make(map[string]*sampleIndex, len(m.Samples))
	for i, s := range m.Samples {
		si := &sampleIndex{ord: i, sample: s, contigs: make(map[string]int, len(s.Contigs))}
		for j, c := range s.Contigs {
			si.contigs[c.Name] = j
		}
		idx[s.Name] = si
	}
	return idx
}

func (d *Decompressor) prefetch() error {
	if err := readahead(d.path); err != nil {
		d.log.Debug("read-ahead hint failed", zap.String("path", d.path), zap.Error(err))
	}
	d.cache.grow(d.manifest.TotalBlocks())
	for si, s := range d.manifest.Samples {
		for ci, c := range s.Contigs {
			for b := 0; b < c.Blocks; b++ {
				key := models.BlockKey{Sample: si, Contig: ci, Block: b}
				if _, err := d.loadBlock(key, d.blockLen(c, b)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close releases the container, the decoder and all cached blocks.
func (d *Decompressor) Close() error {
	if d.src == nil {
		return ErrNotOpened
	}
	err := d.src.Close()
	d.dec.Close()
	d.cache.reset()
	d.log.Debug("archive closed", zap.String("path", d.path))

	d.src = nil
	d.dec = nil
	d.manifest = nil
	d.samples = nil
	d.cache = nil
	d.path = ""
	if err != nil {
		return fmt.Errorf("close container: %w", err)
	}
	return nil
}

// IsOpened reports whether Open succeeded and Close has not been called since.
func (d *Decompressor) IsOpened() bool {
	return d.src != nil
}

// ListSamples returns sample names in archive order.
func (d *Decompressor) ListSamples() ([]string, error) {
	if d.src == nil {
		return nil, ErrNotOpened
	}
	return d.manifest.SampleNames(), nil
}

// ListContigs returns the contig names of a sample in archive order.
func (d *Decompressor) ListContigs(sample string) ([]string, error) {
	si, err := d.sample(sample)
	if err != nil {
		return nil, err
	}
	return si.sample.ContigNames(), nil
}

// NumSamples returns the number of samples.
func (d *Decompressor) NumSamples() (int, error) {
	if d.src == nil {
		return 0, ErrNotOpened
	}
	return len(d.manifest.Samples), nil
}

// NumContigs returns the number of contigs in a sample.
func (d *Decompressor) NumContigs(sample string) (int, error) {
	si, err := d.sample(sample)
	if err != nil {
		return 0, err
	}
	return len(si.sample.Contigs), nil
}

// ContigLength returns the residue count of a contig.
func (d *Decompressor) ContigLength(sample, contig string) (int64, error) {
	_, _, c, err := d.contig(sample, contig)
	if err != nil {
		return 0, err
	}
	return c.Length, nil
}

// ContigString decodes residues [start, end) of a contig.
func (d *Decompressor) ContigString(sample, contig string, start, end int64) ([]byte, error) {
	si, ci, c, err := d.contig(sample, contig)
	if err != nil {
		return nil, err
	}
	if start < 0 || start > end || end > c.Length {
		return nil, fmt.Errorf("%w: [%d, %d) on %s@%s of length %d", ErrRange, start, end, contig, sample, c.Length)
	}
	if start == end {
		return []byte{}, nil
	}

	bs := int64(d.manifest.BlockSize)
	first, last := start/bs, (end-1)/bs

	if first == last {
		blk, err := d.loadBlock(models.BlockKey{Sample: si.ord, Contig: ci, Block: int(first)}, d.blockLen(c, int(first)))
		if err != nil {
			return nil, err
		}
		off := first * bs
		return blk[start-off : end-off], nil
	}

	out := make([]byte, 0, end-start)
	for b := first; b <= last; b++ {
		blk, err := d.loadBlock(models.BlockKey{Sample: si.ord, Contig: ci, Block: int(b)}, d.blockLen(c, int(b)))
		if err != nil {
			return nil, err
		}
		off := b * bs
		lo := max(start, off) - off
		hi := min(end, off+bs) - off
		out = append(out, blk[lo:hi]...)
	}
	return out, nil
}

func (d *Decompressor) sample(name string) (*sampleIndex, error) {
	if d.src == nil {
		return nil, ErrNotOpened
	}
	si, ok := d.samples[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSampleNotFound, name)
	}
	return si, nil
}

func (d *Decompressor) contig(sample, contig string) (*sampleIndex, int, *models.Contig, error) {
	si, err := d.sample(sample)
	if err != nil {
		return nil, 0, nil, err
	}
	ci, ok := si.contigs[contig]
	if !ok {
		return nil, 0, nil, fmt.Errorf("%w: %s@%s", ErrContigNotFound, contig, sample)
	}
	return si, ci, si.sample.Contigs[ci], nil
}

// blockLen is the residue count of block b; only the last block may be short.
func (d *Decompressor) blockLen(c *models.Contig, b int) int {
	bs := int64(d.manifest.BlockSize)
	return int(min(bs, c.Length-int64(b)*bs))
}

func (d *Decompressor) loadBlock(k models.BlockKey, wantLen int) ([]byte, error) {
	if blk, ok := d.cache.get(k); ok {
		return blk, nil
	}
	record, err := d.src.readBlock(k)
	if err != nil {
		return nil, err
	}
	blk, err := d.dec.decode(record, wantLen)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", k, err)
	}
	d.cache.put(k, blk)
	return blk, nil
}
