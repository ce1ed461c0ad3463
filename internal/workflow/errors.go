package workflow

import (
	"errors"
	"fmt"
)

// ErrEmployeeNotFound indicates the submitting employee does not exist
var ErrEmployeeNotFound = errors.New("employee not found")

// ErrFileTooLarge indicates the upload exceeds the size cap
var ErrFileTooLarge = errors.New("file size exceeds maximum allowed size")

// ErrUnsupportedFileType indicates a content type outside the allow-list
var ErrUnsupportedFileType = errors.New("file type not allowed")

// ErrRequestNotFound indicates an unknown request id
var ErrRequestNotFound = errors.New("reimbursement request not found")

// ProviderError wraps a failure of an external collaborator (storage,
// extraction, classification, rate lookup). Always fatal to the
// submission: the pipeline rolls back and nothing partial is kept.
type ProviderError struct {
	Stage string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider failed: %v", e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
