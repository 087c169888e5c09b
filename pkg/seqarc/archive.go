// Package seqarc provides random-access reads from compressed multi-sample
// sequence archives.
//
// An Archive is a handle that owns one archive engine. Create it with New, Open
// it against a file, issue any number of queries and Close it:
//
//	a := seqarc.New()
//	if !a.Open("genomes.arc", false) {
//		log.Fatal(a.Err())
//	}
//	defer a.Close()
//	seq, err := a.ContigString("HG002", "chr1", 10_000, 10_500)
//
// Queries validate in a fixed order: the handle must be open, then the sample
// and contig must exist, then the range must satisfy 0 <= start <= end <= length.
// Failures are *Error values whose kind is one of ErrNotOpen, ErrNotFound,
// ErrRange or ErrDecode. Every returned string and slice is a fresh copy owned
// by the caller.
//
// An Archive is not safe for concurrent use. Use one handle per goroutine;
// any number of handles may open the same file.
package seqarc

import (
	"fmt"

	"github.com/kilupskalvis/seqarc/internal/engine"
	"go.uber.org/zap"
)

// Archive is a handle on one archive file.
type Archive struct {
	engine engine.Engine
	log    *zap.Logger

	opened   bool
	path     string
	prefetch bool
	lastErr  error
}

// New returns a closed handle wrapping a fresh, unopened engine. It performs no I/O.
// A handle that is dropped while open keeps its file descriptors until the
// process exits, so callers must Close it.
func New(opts ...Option) *Archive {
	o := buildOptions(opts)
	e := engine.New(engine.Options{
		CacheBlocks: o.cacheBlocks,
		Logger:      o.logger,
	})
	return newArchive(e, o.logger)
}

func newArchive(e engine.Engine, log *zap.Logger) *Archive {
	return &Archive{engine: e, log: log}
}

// Open opens the archive at path and reports whether it succeeded. With prefetch
// set the whole archive is decoded up front, trading start-up time and memory
// for query latency. Opening an already open handle fails and leaves the current
// archive open. Err reports the cause of a failure.
func (a *Archive) Open(path string, prefetch bool) bool {
	if a.opened {
		a.lastErr = fmt.Errorf("open %s: %w (current: %s)", path, ErrAlreadyOpen, a.path)
		a.log.Warn("open on an already open archive", zap.String("path", path), zap.String("current", a.path))
		return false
	}

	_, err := call(a, "open", func() (struct{}, error) {
		return struct{}{}, a.engine.Open(path, prefetch)
	})
	if err != nil {
		a.lastErr = fmt.Errorf("open %s: %w", path, err)
		a.log.Debug("archive open failed", zap.String("path", path), zap.Error(err))
		a.releasePartialOpen()
		return false
	}

	a.opened = true
	a.path = path
	a.prefetch = prefetch
	a.lastErr = nil
	return true
}

// releasePartialOpen closes an engine that reports itself open after a failed Open.
// Only a panic half way through the engine's Open can leave it in that state.
func (a *Archive) releasePartialOpen() {
	_, _ = call(a, "open", func() (struct{}, error) {
		if a.engine.IsOpened() {
			return struct{}{}, a.engine.Close()
		}
		return struct{}{}, nil
	})
}

// Close releases the engine's resources. Closing a closed handle does nothing and
// returns true. If the engine fails to release cleanly the handle is still
// closed, Close returns false and Err reports the cause.
func (a *Archive) Close() bool {
	if !a.opened {
		a.lastErr = nil
		return true
	}

	_, err := call(a, "close", func() (struct{}, error) {
		return struct{}{}, a.engine.Close()
	})
	a.opened = false
	if err != nil {
		a.lastErr = fmt.Errorf("close %s: %w", a.path, err)
		a.log.Warn("archive close failed", zap.String("path", a.path), zap.Error(err))
		return false
	}
	a.lastErr = nil
	return true
}

// IsOpened reports whether the handle is open.
func (a *Archive) IsOpened() bool {
	return a.opened
}

// Path returns the path given to the most recent successful Open.
func (a *Archive) Path() string {
	return a.path
}

// Prefetch reports whether the archive was opened with prefetch.
func (a *Archive) Prefetch() bool {
	return a.prefetch
}

// Err returns why the most recent Open or Close returned false, or nil.
func (a *Archive) Err() error {
	return a.lastErr
}

func (a *Archive) String() string {
	return fmt.Sprintf("Archive{path: %q, opened: %t, prefetch: %t}", a.path, a.opened, a.prefetch)
}

// ListSamples returns every sample name in archive order, which is not necessarily sorted.
func (a *Archive) ListSamples() ([]string, error) {
	const op = "list samples"
	if !a.opened {
		return nil, &Error{Op: op, Kind: ErrNotOpen}
	}
	names, err := call(a, op, a.engine.ListSamples)
	if err != nil {
		return nil, translate(op, "", "", err)
	}
	return cloneStrings(names), nil
}

// ListContigs returns the contig names of sample in archive order. An unknown
// sample is ErrNotFound; a sample without contigs yields an empty slice.
func (a *Archive) ListContigs(sample string) ([]string, error) {
	const op = "list contigs"
	if !a.opened {
		return nil, &Error{Op: op, Kind: ErrNotOpen, Sample: sample}
	}
	names, err := call(a, op, func() ([]string, error) {
		return a.engine.ListContigs(sample)
	})
	if err != nil {
		return nil, translate(op, sample, "", err)
	}
	return cloneStrings(names), nil
}

// SampleCount returns the number of samples; it always equals len(ListSamples()).
func (a *Archive) SampleCount() (int, error) {
	const op = "count samples"
	if !a.opened {
		return 0, &Error{Op: op, Kind: ErrNotOpen}
	}
	n, err := call(a, op, a.engine.NumSamples)
	if err != nil {
		return 0, translate(op, "", "", err)
	}
	return n, nil
}

// ContigCount returns the number of contigs in sample; it always equals len(ListContigs(sample)).
func (a *Archive) ContigCount(sample string) (int, error) {
	const op = "count contigs"
	if !a.opened {
		return 0, &Error{Op: op, Kind: ErrNotOpen, Sample: sample}
	}
	n, err := call(a, op, func() (int, error) {
		return a.engine.NumContigs(sample)
	})
	if err != nil {
		return 0, translate(op, sample, "", err)
	}
	return n, nil
}

// ContigLength returns the number of residues in a contig.
func (a *Archive) ContigLength(sample, contig string) (int64, error) {
	const op = "contig length"
	if !a.opened {
		return 0, &Error{Op: op, Kind: ErrNotOpen, Sample: sample, Contig: contig}
	}
	return a.contigLength(op, sample, contig)
}

func (a *Archive) contigLength(op, sample, contig string) (int64, error) {
	n, err := call(a, op, func() (int64, error) {
		return a.engine.ContigLength(sample, contig)
	})
	if err != nil {
		return 0, translate(op, sample, contig, err)
	}
	return n, nil
}

// ContigString returns residues [start, end) of a contig. Out-of-bounds ranges
// are ErrRange and are never clamped; start == end yields "". Either the whole
// range is returned or an error is.
func (a *Archive) ContigString(sample, contig string, start, end int64) (string, error) {
	const op = "contig string"
	if !a.opened {
		return "", &Error{Op: op, Kind: ErrNotOpen, Sample: sample, Contig: contig}
	}
	length, err := a.contigLength(op, sample, contig)
	if err != nil {
		return "", err
	}
	if err := checkRange(start, end, length); err != nil {
		return "", &Error{Op: op, Kind: ErrRange, Sample: sample, Contig: contig, Err: err}
	}
	return a.extract(op, sample, contig, start, end, length)
}

// FullContig returns the whole sequence of a contig. An empty contig yields "".
func (a *Archive) FullContig(sample, contig string) (string, error) {
	const op = "full contig"
	if !a.opened {
		return "", &Error{Op: op, Kind: ErrNotOpen, Sample: sample, Contig: contig}
	}
	length, err := a.contigLength(op, sample, contig)
	if err != nil {
		return "", err
	}
	return a.extract(op, sample, contig, 0, length, length)
}

func (a *Archive) extract(op, sample, contig string, start, end, length int64) (string, error) {
	seq, err := call(a, op, func() ([]byte, error) {
		return a.engine.ContigString(sample, contig, start, end)
	})
	if err != nil {
		return "", translate(op, sample, contig, err)
	}
	if int64(len(seq)) != end-start {
		return "", &Error{Op: op, Kind: ErrDecode, Sample: sample, Contig: contig,
			Err: fmt.Errorf("engine returned %d residues for [%d, %d) of %d", len(seq), start, end, length)}
	}
	// string conversion copies, so the result never aliases the engine's block cache.
	return string(seq), nil
}
