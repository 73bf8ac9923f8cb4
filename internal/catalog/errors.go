package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("all fields are required")
	ErrDuplicateCode = errors.New("product code already exists")
	ErrNotFound      = errors.New("product not found")
	ErrPersistence   = errors.New("product storage failed")
)

// ValidationError lists the draft fields that were missing or zero.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateCode, e.Code)
}

func (e *DuplicateCodeError) Is(target error) bool { return target == ErrDuplicateCode }

// PersistenceError wraps a storage failure. Op is "load", "save" or "ping".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }
