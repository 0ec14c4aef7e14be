package validation

import "fmt"

// Message templates shared by every form in the application.
const (
	MsgInvalidEmail        = "Invalid email address"
	MsgPasswordsDoNotMatch = "Passwords do not match"
)

// Required formats the message for a missing field, e.g. "Email is required".
func Required(field string) string {
	return fmt.Sprintf("%s is required", field)
}

// MinLength formats the message for a value that is too short.
func MinLength(field string, min int) string {
	return fmt.Sprintf("%s must be at least %d characters", field, min)
}
