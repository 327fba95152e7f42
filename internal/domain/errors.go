package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound covers orders, farms, products and payments that do not
// exist or are not visible to the acting user.
var ErrNotFound = errors.New("not found")

// AdmissionError rejects a whole checkout group because the farm's daily
// capacity would be exceeded. It is attached to the submission, not to a
// single field.
type AdmissionError struct {
	FarmID    uuid.UUID
	FarmName  string
	Capacity  int
	Reserved  int // quantity already committed today, non-cancelled
	Requested int
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("farm %s daily capacity exceeded: capacity=%d reserved=%d requested=%d",
		e.FarmName, e.Capacity, e.Reserved, e.Requested)
}

// ValidationError marks a malformed request: unknown status, backward or
// skipping transition, bad quantity. Distinct from AuthorizationError so
// the HTTP layer can answer 400 vs 403.
type ValidationError struct {
	Field   string // empty for submission-level errors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// AuthorizationError marks an actor that is not permitted to perform the
// requested operation on the resource.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func IsAdmission(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}
