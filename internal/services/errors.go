package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrUnsupportedFileType is returned for uploads that are not .xlsx files.
var ErrUnsupportedFileType = errors.New("invalid file format, only .xlsx files are accepted")

// InputFormatError means the upload itself is malformed: wrong file type,
// unreadable workbook, missing column or missing required value.
type InputFormatError struct {
	Err error
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *InputFormatError) Unwrap() error {
	return e.Err
}

// PersistenceError means the batch could not be written. Nothing from the
// batch has been stored.
type PersistenceError struct {
	Duplicate bool
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("duplicate record in batch: %v", e.Err)
	}
	return fmt.Sprintf("failed to persist batch: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newPersistenceError(err error) *PersistenceError {
	return &PersistenceError{
		Duplicate: errors.Is(err, gorm.ErrDuplicatedKey),
		Err:       err,
	}
}
