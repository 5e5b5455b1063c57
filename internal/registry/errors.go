package registry

import "fmt"

// ValidationError reports a registration that was rejected because a
// required field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid agent %s: %s", e.Field, e.Reason)
}
