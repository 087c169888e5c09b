package seqarc

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kilupskalvis/seqarc/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// contig1 is 100 residues long so that range scenarios read naturally.
var contig1 = strings.Repeat("ACGTTGCAAC", 10)

type fixtureContig struct {
	sample, contig, seq string
}

// Archive order deliberately differs from lexical order.
var fixture = []fixtureContig{
	{"sampleB", "chrX", "NNNNACGTACGTGGGCCCTTTAAA"},
	{"sampleA", "contig1", contig1},
	{"sampleA", "contig2", "GATTACA"},
	{"sampleA", "empty", ""},
}

const emptySample = "sampleEmpty"

func newTestArchiveFile(t *testing.T, format engine.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.arc")
	b, err := engine.Create(path, engine.BuildOptions{Format: format, BlockSize: 16})
	require.NoError(t, err)
	for _, fc := range fixture {
		require.NoError(t, b.AddContig(fc.sample, fc.contig, []byte(fc.seq)))
	}
	require.NoError(t, b.AddSample(emptySample))
	require.NoError(t, b.Close())
	return path
}

func newTestArchive(t *testing.T, format engine.Format, prefetch bool) *Archive {
	t.Helper()
	a := New(WithCacheBlocks(2), WithLogger(zap.NewNop()))
	require.True(t, a.Open(newTestArchiveFile(t, format), prefetch), "open: %v", a.Err())
	t.Cleanup(func() { a.Close() })
	return a
}

// forEachConfig runs fn against both container formats, lazily and with prefetch.
func forEachConfig(t *testing.T, fn func(t *testing.T, a *Archive)) {
	for _, format := range []engine.Format{engine.FormatBolt, engine.FormatSQLite} {
		for _, prefetch := range []bool{false, true} {
			name := string(format) + "/lazy"
			if prefetch {
				name = string(format) + "/prefetch"
			}
			t.Run(name, func(t *testing.T) {
				fn(t, newTestArchive(t, format, prefetch))
			})
		}
	}
}

// ==================== Lifecycle Tests ====================

func TestNew_IsClosed(t *testing.T) {
	a := New()
	assert.False(t, a.IsOpened())
	assert.Empty(t, a.Path())
	assert.NoError(t, a.Err())
	assert.Contains(t, a.String(), "Archive")
	assert.Contains(t, a.String(), "opened: false")
}

func TestOpen_InvalidPath(t *testing.T) {
	a := New()
	assert.False(t, a.Open(filepath.Join(t.TempDir(), "missing.arc"), false))
	assert.False(t, a.IsOpened())
	assert.Error(t, a.Err())

	_, err := a.ListSamples()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestOpen_SetsAttributes(t *testing.T) {
	path := newTestArchiveFile(t, engine.FormatBolt)
	a := New()
	require.True(t, a.Open(path, true))
	defer a.Close()

	assert.True(t, a.IsOpened())
	assert.Equal(t, path, a.Path())
	assert.True(t, a.Prefetch())
	assert.NoError(t, a.Err())
	assert.Contains(t, a.String(), "opened: true")
}

func TestOpen_AlreadyOpen(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)
	first := a.Path()
	other := newTestArchiveFile(t, engine.FormatSQLite)

	assert.False(t, a.Open(other, false))
	assert.ErrorIs(t, a.Err(), ErrAlreadyOpen)

	// The first archive stays open and usable.
	assert.True(t, a.IsOpened())
	assert.Equal(t, first, a.Path())
	n, err := a.SampleCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClose(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)

	assert.True(t, a.Close())
	assert.False(t, a.IsOpened())

	// Closing a closed handle is a no-op success.
	assert.True(t, a.Close())
	assert.NoError(t, a.Err())

	assert.True(t, New().Close())
}

func TestReopenAfterClose(t *testing.T) {
	path := newTestArchiveFile(t, engine.FormatSQLite)
	a := New()
	require.True(t, a.Open(path, false))
	require.True(t, a.Close())
	require.True(t, a.Open(path, true))
	defer a.Close()

	s, err := a.ContigString("sampleA", "contig2", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "GATT", s)
}

// ==================== Not Open Tests ====================

func assertAllQueriesNotOpen(t *testing.T, a *Archive) {
	t.Helper()
	queries := map[string]func() error{
		"ListSamples": func() error { _, err := a.ListSamples(); return err },
		"ListContigs": func() error { _, err := a.ListContigs("sampleA"); return err },
		"SampleCount": func() error { _, err := a.SampleCount(); return err },
		"ContigCount": func() error { _, err := a.ContigCount("sampleA"); return err },
		"ContigLength": func() error {
			_, err := a.ContigLength("sampleA", "contig1")
			return err
		},
		"ContigString": func() error {
			_, err := a.ContigString("sampleA", "contig1", 0, 10)
			return err
		},
		"FullContig": func() error { _, err := a.FullContig("sampleA", "contig1"); return err },
	}
	for name, q := range queries {
		assert.ErrorIs(t, q(), ErrNotOpen, name)
	}
}

func TestQueries_BeforeOpen(t *testing.T) {
	assertAllQueriesNotOpen(t, New())
}

func TestQueries_AfterClose(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)
	require.True(t, a.Close())
	assertAllQueriesNotOpen(t, a)
}

func TestScenario_ListThenClose(t *testing.T) {
	a := New()
	require.True(t, a.Open(newTestArchiveFile(t, engine.FormatBolt), false))

	samples, err := a.ListSamples()
	require.NoError(t, err)
	assert.Equal(t, []string{"sampleB", "sampleA", emptySample}, samples)

	assert.True(t, a.Close())
	_, err = a.ListSamples()
	assert.ErrorIs(t, err, ErrNotOpen)
}

// ==================== Enumeration Tests ====================

func TestCountsMatchLists(t *testing.T) {
	forEachConfig(t, func(t *testing.T, a *Archive) {
		samples, err := a.ListSamples()
		require.NoError(t, err)
		n, err := a.SampleCount()
		require.NoError(t, err)
		assert.Len(t, samples, n)

		for _, s := range samples {
			contigs, err := a.ListContigs(s)
			require.NoError(t, err)
			m, err := a.ContigCount(s)
			require.NoError(t, err)
			assert.Len(t, contigs, m, s)
		}
	})
}

func TestListContigs(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)

	contigs, err := a.ListContigs("sampleA")
	require.NoError(t, err)
	assert.Equal(t, []string{"contig1", "contig2", "empty"}, contigs)

	// An existing sample with no contigs is not an error...
	contigs, err = a.ListContigs(emptySample)
	require.NoError(t, err)
	assert.NotNil(t, contigs)
	assert.Empty(t, contigs)

	// ...but an unknown sample is.
	contigs, err = a.ListContigs("sampleZ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, contigs)

	_, err = a.ContigCount("sampleZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnedSlicesAreOwnedByCaller(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)

	samples, err := a.ListSamples()
	require.NoError(t, err)
	samples[0] = "mutated"

	again, err := a.ListSamples()
	require.NoError(t, err)
	assert.Equal(t, "sampleB", again[0])

	contigs, err := a.ListContigs("sampleA")
	require.NoError(t, err)
	contigs[1] = "mutated"
	again, err = a.ListContigs("sampleA")
	require.NoError(t, err)
	assert.Equal(t, "contig2", again[1])
}

func TestReturnedSequenceDoesNotAliasEngine(t *testing.T) {
	fe := newFakeEngine()
	shared := []byte("ACGTACGTAC")
	fe.stringFn = func(_, _ string, start, end int64) ([]byte, error) {
		return shared[start:end], nil
	}
	a := newArchive(fe, zap.NewNop())
	require.True(t, a.Open("fake", false))

	s, err := a.ContigString("s1", "c1", 0, 4)
	require.NoError(t, err)
	copy(shared, "TTTT")
	assert.Equal(t, "ACGT", s)
}

// ==================== Extraction Tests ====================

func TestFullLengthExtraction(t *testing.T) {
	forEachConfig(t, func(t *testing.T, a *Archive) {
		for _, fc := range fixture {
			length, err := a.ContigLength(fc.sample, fc.contig)
			require.NoError(t, err)
			assert.Equal(t, int64(len(fc.seq)), length)

			s, err := a.ContigString(fc.sample, fc.contig, 0, length)
			require.NoError(t, err)
			assert.Len(t, s, int(length))
			assert.Equal(t, fc.seq, s)

			full, err := a.FullContig(fc.sample, fc.contig)
			require.NoError(t, err)
			assert.Equal(t, s, full)
		}
	})
}

func TestSubRangeConsistency(t *testing.T) {
	forEachConfig(t, func(t *testing.T, a *Archive) {
		outer, err := a.ContigString("sampleA", "contig1", 7, 93)
		require.NoError(t, err)

		for start := int64(7); start <= 93; start += 5 {
			for end := start; end <= 93; end += 9 {
				inner, err := a.ContigString("sampleA", "contig1", start, end)
				require.NoError(t, err)
				assert.Equal(t, outer[start-7:end-7], inner, "[%d,%d)", start, end)
			}
		}
	})
}

func TestEmptyRange(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)
	for _, pos := range []int64{0, 50, 100} {
		s, err := a.ContigString("sampleA", "contig1", pos, pos)
		require.NoError(t, err)
		assert.Equal(t, "", s)
	}

	s, err := a.FullContig("sampleA", "empty")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestRangeErrors(t *testing.T) {
	a := newTestArchive(t, engine.FormatBolt, false)

	tests := []struct {
		name       string
		start, end int64
	}{
		{"start after end", 10, 5},
		{"negative start", -1, 5},
		{"end past length", 0, 101},
		{"both past length", 150, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := a.ContigString("sampleA", "contig1", tt.start, tt.end)
			assert.ErrorIs(t, err, ErrRange)
			assert.Empty(t, s)

			var qerr *Error
			require.True(t, errors.As(err, &qerr))
			assert.Equal(t, "sampleA", qerr.Sample)
			assert.Equal(t, "contig1", qerr.Contig)
		})
	}
}

func TestNotFound(t *testing.T) {
	a := newTestArchive(t, engine.FormatSQLite, false)

	_, err := a.ContigLength("sampleZ", "contig1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.ContigLength("sampleA", "contigZ")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.ContigString("sampleA", "contigZ", 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.FullContig("sampleZ", "contig1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Contig names are scoped to their sample.
	_, err = a.ContigLength("sampleB", "contig1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationOrder(t *testing.T) {
	closed := New()
	_, err := closed.ContigString("sampleZ", "contigZ", 10, 5)
	assert.ErrorIs(t, err, ErrNotOpen, "state is checked before existence")
	assert.NotErrorIs(t, err, ErrNotFound)

	a := newTestArchive(t, engine.FormatBolt, false)
	_, err = a.ContigString("sampleZ", "contigZ", 10, 5)
	assert.ErrorIs(t, err, ErrNotFound, "existence is checked before range")
	assert.NotErrorIs(t, err, ErrRange)

	_, err = a.ContigString("sampleA", "contigZ", -5, 1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndependentHandlesPerGoroutine(t *testing.T) {
	path := newTestArchiveFile(t, engine.FormatBolt)

	var wg sync.WaitGroup
	results := make([]string, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := New()
			if !a.Open(path, i%2 == 0) {
				errs[i] = a.Err()
				return
			}
			defer a.Close()
			results[i], errs[i] = a.ContigString("sampleA", "contig1", int64(i), int64(i+20))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, contig1[i:i+20], results[i])
	}
}

// ==================== Fault Translation Tests ====================

func TestEnginePanicBecomesDecodeFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.listFn = func() ([]string, error) {
		var m map[string][]string
		m["boom"] = nil
		return nil, nil
	}
	fe.stringFn = func(_, _ string, _, _ int64) ([]byte, error) {
		panic("corrupted block table")
	}
	a := newArchive(fe, zap.NewNop())
	require.True(t, a.Open("fake", false))

	samples, err := a.ListSamples()
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, errEnginePanic)
	assert.Nil(t, samples)

	s, err := a.ContigString("s1", "c1", 0, 4)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "corrupted block table")
	assert.Empty(t, s)

	// The handle survives and keeps serving other queries.
	n, err := a.SampleCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEngineDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(_, _ string, _, _ int64) ([]byte, error)
	}{
		{"corrupt block", func(_, _ string, _, _ int64) ([]byte, error) {
			return nil, engine.ErrCorrupt
		}},
		{"unclassified failure", func(_, _ string, _, _ int64) ([]byte, error) {
			return nil, errors.New("disk on fire")
		}},
		{"short read", func(_, _ string, _, _ int64) ([]byte, error) {
			return []byte("AC"), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := newFakeEngine()
			fe.stringFn = tt.fn
			a := newArchive(fe, zap.NewNop())
			require.True(t, a.Open("fake", false))

			s, err := a.ContigString("s1", "c1", 2, 8)
			assert.ErrorIs(t, err, ErrDecode)
			assert.Empty(t, s, "no partial results alongside an error")
		})
	}
}

func TestCorruptArchiveBlockIsDecodeFailure(t *testing.T) {
	// A lazily opened archive only notices a damaged block when reading it.
	fe := newFakeEngine()
	fe.stringFn = func(_, _ string, _, _ int64) ([]byte, error) {
		return nil, errors.Join(engine.ErrCorrupt, errors.New("block 0/0/0: block checksum mismatch"))
	}
	a := newArchive(fe, zap.NewNop())
	require.True(t, a.Open("fake", false))

	_, err := a.FullContig("s1", "c1")
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, engine.ErrCorrupt)
}

func TestOpenPanicReturnsFalse(t *testing.T) {
	fe := newFakeEngine()
	fe.openFn = func(string, bool) error {
		panic("bad header")
	}
	a := newArchive(fe, zap.NewNop())

	assert.False(t, a.Open("fake", false))
	assert.False(t, a.IsOpened())
	assert.ErrorIs(t, a.Err(), errEnginePanic)
}

func TestCloseFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.closeFn = func() error { return errors.New("flush failed") }
	a := newArchive(fe, zap.NewNop())
	require.True(t, a.Open("fake", false))

	assert.False(t, a.Close())
	assert.False(t, a.IsOpened(), "handle is closed even when release fails")
	assert.ErrorContains(t, a.Err(), "flush failed")

	assert.True(t, a.Close())
	assert.NoError(t, a.Err())
}

// ==================== Damaged Archive Tests ====================

func TestOpen_TruncatedArchive(t *testing.T) {
	for _, format := range []engine.Format{engine.FormatBolt, engine.FormatSQLite} {
		t.Run(string(format), func(t *testing.T) {
			path := newTestArchiveFile(t, format)
			fi, err := os.Stat(path)
			require.NoError(t, err)
			require.NoError(t, os.Truncate(path, fi.Size()/2))

			for _, prefetch := range []bool{false, true} {
				a := New(WithLogger(zap.NewNop()))
				if !a.Open(path, prefetch) {
					assert.False(t, a.IsOpened())
					assert.Error(t, a.Err())
					continue
				}
				// A file that still opens must fail cleanly on the damaged blocks.
				assertQueriesFailCleanly(t, a)
				a.Close()
			}
		})
	}
}

func TestOpen_TruncatedBoltArchiveFails(t *testing.T) {
	path := newTestArchiveFile(t, engine.FormatBolt)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, fi.Size()/2))

	a := New(WithLogger(zap.NewNop()))
	assert.False(t, a.Open(path, false))
	assert.False(t, a.IsOpened())
	assert.Error(t, a.Err())
}

func TestDamagedArchivesNeverCrash(t *testing.T) {
	for _, format := range []engine.Format{engine.FormatBolt, engine.FormatSQLite} {
		t.Run(string(format), func(t *testing.T) {
			orig, err := os.ReadFile(newTestArchiveFile(t, format))
			require.NoError(t, err)

			rng := rand.New(rand.NewPCG(1, uint64(len(format))))
			dir := t.TempDir()
			for i := range 150 {
				damaged := append([]byte(nil), orig...)
				for range 8 {
					damaged[rng.IntN(len(damaged))] ^= byte(1 + rng.IntN(255))
				}
				path := filepath.Join(dir, fmt.Sprintf("copy%03d.arc", i))
				require.NoError(t, os.WriteFile(path, damaged, 0644))

				a := New(WithLogger(zap.NewNop()))
				if !a.Open(path, i%2 == 1) {
					assert.False(t, a.IsOpened())
					assert.Error(t, a.Err())
					continue
				}
				assertQueriesFailCleanly(t, a)
				a.Close()
			}
		})
	}
}

// assertQueriesFailCleanly walks every contig of an open archive and accepts
// either correct-length data or a decode failure.
func assertQueriesFailCleanly(t *testing.T, a *Archive) {
	t.Helper()
	samples, err := a.ListSamples()
	require.NoError(t, err)
	for _, s := range samples {
		contigs, err := a.ListContigs(s)
		require.NoError(t, err)
		for _, c := range contigs {
			length, err := a.ContigLength(s, c)
			require.NoError(t, err)
			seq, err := a.FullContig(s, c)
			if err != nil {
				assert.ErrorIs(t, err, ErrDecode, "%s@%s", c, s)
				continue
			}
			assert.Len(t, seq, int(length))
		}
	}
}

// ==================== Error Value Tests ====================

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "contig string", Kind: ErrRange, Sample: "s", Contig: "c", Err: errors.New("start 10 is after end 5")}
	assert.Equal(t, "contig string: invalid range (c@s): start 10 is after end 5", err.Error())

	err = &Error{Op: "list contigs", Kind: ErrNotFound, Sample: "s"}
	assert.Equal(t, "list contigs: not found (s)", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestCheckRange(t *testing.T) {
	assert.NoError(t, checkRange(0, 0, 0))
	assert.NoError(t, checkRange(3, 7, 7))
	assert.Error(t, checkRange(-1, 2, 7))
	assert.Error(t, checkRange(5, 4, 7))
	assert.Error(t, checkRange(0, 8, 7))
}
