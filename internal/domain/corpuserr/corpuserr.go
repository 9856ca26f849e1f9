// Package corpuserr implements the error taxonomy of spec.md §7. Every
// fatal error that crosses a tool or pipeline boundary is a *Error so it
// can be normalized to {success: false, error: {category, message, details}}
// at the transport edge.
package corpuserr

import (
	"errors"
	"fmt"
)

// Category is one of the fixed error categories spec.md names.
type Category string

const (
	Validation             Category = "VALIDATION_ERROR"
	DatabaseNotSelected     Category = "DATABASE_NOT_SELECTED"
	DatabaseNotFound        Category = "DATABASE_NOT_FOUND"
	DatabaseAlreadyExists   Category = "DATABASE_ALREADY_EXISTS"
	DocumentNotFound        Category = "DOCUMENT_NOT_FOUND"
	PathNotFound            Category = "PATH_NOT_FOUND"
	PathNotDirectory        Category = "PATH_NOT_DIRECTORY"
	StaleDatabaseReference  Category = "STALE_DATABASE_REFERENCE"
	SwitchBlocked           Category = "SWITCH_BLOCKED"
	OrphanParent            Category = "ORPHAN_PARENT"
	ChainInconsistent       Category = "CHAIN_INCONSISTENT"
	RootTypeInvalid         Category = "ROOT_TYPE_INVALID"
	EmbeddingFailed         Category = "EMBEDDING_FAILED"
	VLMFailed               Category = "VLM_FAILED"
	OCRFailed               Category = "OCR_FAILED"
	Internal                Category = "INTERNAL_ERROR"
)

// Error is the structured error every tool handler and pipeline step
// returns on failure. It is never panicked; it is always a normal return
// value.
type Error struct {
	Cat     Category
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Cat, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Cat, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func new(cat Category, msg string, details map[string]any) *Error {
	return &Error{Cat: cat, Message: msg, Details: details}
}

func Wrap(cat Category, msg string, err error) *Error {
	return &Error{Cat: cat, Message: msg, Wrapped: err}
}

func Validationf(format string, args ...any) *Error {
	return new(Validation, fmt.Sprintf(format, args...), nil)
}

func NotSelected() *Error {
	return new(DatabaseNotSelected, "no database is currently selected", nil)
}

func NotFound(name string) *Error {
	return new(DatabaseNotFound, fmt.Sprintf("database %q does not exist", name), map[string]any{"name": name})
}

func AlreadyExists(name string) *Error {
	return new(DatabaseAlreadyExists, fmt.Sprintf("database %q already exists", name), map[string]any{"name": name})
}

func DocNotFound(id string) *Error {
	return new(DocumentNotFound, fmt.Sprintf("document %q not found", id), map[string]any{"document_id": id})
}

func PathMissing(path string) *Error {
	return new(PathNotFound, fmt.Sprintf("path %q does not exist", path), map[string]any{"path": path})
}

func NotDirectory(path string) *Error {
	return new(PathNotDirectory, fmt.Sprintf("path %q is not a directory", path), map[string]any{"path": path})
}

func Stale(expected, actual int64) *Error {
	return new(StaleDatabaseReference, "database generation changed mid-operation", map[string]any{
		"expected_generation": expected,
		"actual_generation":   actual,
	})
}

func Blocked(activeOps int64) *Error {
	return new(SwitchBlocked, "cannot switch database while operations are active", map[string]any{
		"active_operations": activeOps,
	})
}

func Orphan(provenanceID, parentID string) *Error {
	return new(OrphanParent, fmt.Sprintf("provenance %q references missing parent %q", provenanceID, parentID), map[string]any{
		"provenance_id": provenanceID,
		"parent_id":     parentID,
	})
}

func Inconsistent(provenanceID string, reason string) *Error {
	return new(ChainInconsistent, fmt.Sprintf("provenance %q chain inconsistent: %s", provenanceID, reason), map[string]any{
		"provenance_id": provenanceID,
	})
}

func RootInvalid(provenanceID string, typ string) *Error {
	return new(RootTypeInvalid, fmt.Sprintf("provenance %q has nil parent but type %s", provenanceID, typ), map[string]any{
		"provenance_id": provenanceID,
		"type":          typ,
	})
}

func Embedding(err error) *Error { return Wrap(EmbeddingFailed, "embedding service call failed", err) }
func VLM(err error) *Error       { return Wrap(VLMFailed, "vision model call failed", err) }
func OCR(err error) *Error       { return Wrap(OCRFailed, "OCR service call failed", err) }

func Internalf(format string, args ...any) *Error {
	return new(Internal, fmt.Sprintf(format, args...), nil)
}

// As extracts a *Error from err, following the Unwrap chain.
func As(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok
}
