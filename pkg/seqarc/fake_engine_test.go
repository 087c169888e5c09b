package seqarc

import (
	"github.com/kilupskalvis/seqarc/internal/engine"
)

// fakeEngine is an in-memory engine whose behaviour tests can override per call.
type fakeEngine struct {
	opened  bool
	samples []string
	contigs map[string][]string
	seqs    map[string]string // key: sample + "/" + contig

	openFn   func(path string, prefetch bool) error
	closeFn  func() error
	listFn   func() ([]string, error)
	stringFn func(sample, contig string, start, end int64) ([]byte, error)
}

var _ engine.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		samples: []string{"s1", "s2"},
		contigs: map[string][]string{"s1": {"c1"}, "s2": {}},
		seqs:    map[string]string{"s1/c1": "ACGTACGTAC"},
	}
}

func (f *fakeEngine) Open(path string, prefetch bool) error {
	if f.openFn != nil {
		if err := f.openFn(path, prefetch); err != nil {
			return err
		}
	}
	f.opened = true
	return nil
}

func (f *fakeEngine) Close() error {
	f.opened = false
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func (f *fakeEngine) IsOpened() bool { return f.opened }

func (f *fakeEngine) ListSamples() ([]string, error) {
	if f.listFn != nil {
		return f.listFn()
	}
	return f.samples, nil
}

func (f *fakeEngine) ListContigs(sample string) ([]string, error) {
	c, ok := f.contigs[sample]
	if !ok {
		return nil, engine.ErrSampleNotFound
	}
	return c, nil
}

func (f *fakeEngine) NumSamples() (int, error) { return len(f.samples), nil }

func (f *fakeEngine) NumContigs(sample string) (int, error) {
	c, err := f.ListContigs(sample)
	return len(c), err
}

func (f *fakeEngine) ContigLength(sample, contig string) (int64, error) {
	if _, ok := f.contigs[sample]; !ok {
		return 0, engine.ErrSampleNotFound
	}
	seq, ok := f.seqs[sample+"/"+contig]
	if !ok {
		return 0, engine.ErrContigNotFound
	}
	return int64(len(seq)), nil
}

func (f *fakeEngine) ContigString(sample, contig string, start, end int64) ([]byte, error) {
	if f.stringFn != nil {
		return f.stringFn(sample, contig, start, end)
	}
	return []byte(f.seqs[sample+"/"+contig][start:end]), nil
}
