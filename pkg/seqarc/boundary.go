package seqarc

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/kilupskalvis/seqarc/internal/engine"
	"go.uber.org/zap"
)

// errEnginePanic marks a cause recovered from a panic inside the engine.
var errEnginePanic = errors.New("engine panic")

// call runs one engine operation and converts a panic into an ordinary error,
// so no engine fault unwinds past the handle. Memory faults in the archive
// mapping are turned into panics for the duration of the call.
func call[T any](a *Archive, op string, fn func() (T, error)) (v T, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("recovered engine panic",
				zap.String("op", op),
				zap.String("path", a.path),
				zap.Any("panic", r))
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", errEnginePanic, r)
		}
	}()
	return fn()
}

// translate maps an engine error onto one of the query error kinds.
// Anything the engine does not classify is a decode failure.
func translate(op, sample, contig string, err error) error {
	kind := ErrDecode
	switch {
	case errors.Is(err, engine.ErrNotOpened):
		kind = ErrNotOpen
	case errors.Is(err, engine.ErrSampleNotFound), errors.Is(err, engine.ErrContigNotFound):
		kind = ErrNotFound
	case errors.Is(err, engine.ErrRange):
		kind = ErrRange
	}
	return &Error{Op: op, Kind: kind, Sample: sample, Contig: contig, Err: err}
}

// cloneStrings deep-copies names handed out by the engine. The result is never nil.
func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.Clone(s)
	}
	return out
}

// checkRange enforces 0 <= start <= end <= length.
func checkRange(start, end, length int64) error {
	switch {
	case start < 0:
		return fmt.Errorf("start %d is negative", start)
	case start > end:
		return fmt.Errorf("start %d is after end %d", start, end)
	case end > length:
		return fmt.Errorf("end %d is past contig length %d", end, length)
	}
	return nil
}
