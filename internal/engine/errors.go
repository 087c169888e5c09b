package engine

import "errors"

// Sentinel errors reported by the engine. The access layer maps them onto its own
// error kinds; callers inside the module compare with errors.Is.
var (
	ErrNotOpened      = errors.New("archive not opened")
	ErrAlreadyOpened  = errors.New("archive already opened")
	ErrSampleNotFound = errors.New("sample not found")
	ErrContigNotFound = errors.New("contig not found")
	ErrRange          = errors.New("range out of bounds")
	ErrCorrupt        = errors.New("corrupt archive data")
	ErrFormat         = errors.New("unrecognized archive format")
	ErrVersion        = errors.New("unsupported archive version")
	ErrExists         = errors.New("archive already exists")
	ErrDuplicate      = errors.New("duplicate name")
)
