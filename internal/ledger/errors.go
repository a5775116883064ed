package ledger

import (
	"errors"
	"fmt"
)

// ValidationError reports input that fails the ledger's range or shape rules,
// e.g. a non-positive amount or an empty category.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a record that does not exist or is owned by another
// user. The two cases are deliberately indistinguishable to the caller.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// InconsistencyError reports a failed budget-cache update. The triggering
// mutation is aborted and compensated where possible; it must not be retried
// blindly since a duplicate apply would double-count.
type InconsistencyError struct {
	Op  string
	Err error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency during %s: %v", e.Op, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsInconsistency reports whether err is an InconsistencyError.
func IsInconsistency(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}
