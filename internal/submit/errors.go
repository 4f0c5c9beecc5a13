package submit

import "fmt"

// ValidationError reports a required field that was empty after trimming.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// CooldownError reports a submission attempted inside the cooldown window.
type CooldownError struct {
	Class            ActionClass
	RemainingSeconds int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: wait %d seconds before submitting again", e.Class, e.RemainingSeconds)
}

// StoreError wraps a failed write to the engagement store. It is never retried automatically.
type StoreError struct {
	Class ActionClass
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store write failed: %v", e.Class, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
