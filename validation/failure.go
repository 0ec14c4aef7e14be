package validation

import "strings"

// Issue is a single rule violation. An empty Field marks a form level issue.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors maps a field name to the message rendered next to it.
type FieldErrors map[string]string

// Failure is returned when a submission is rejected. It carries every
// violation found, in field declaration order.
type Failure struct {
	Issues []Issue `json:"issues"`
}

func (f *Failure) Error() string {
	if f == nil || len(f.Issues) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(f.Issues))
	for _, issue := range f.Issues {
		if issue.Field == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return strings.Join(parts, "; ")
}

// FieldErrors keeps the first message per field.
func (f *Failure) FieldErrors() FieldErrors {
	out := FieldErrors{}
	if f == nil {
		return out
	}
	for _, issue := range f.Issues {
		if _, seen := out[issue.Field]; seen {
			continue
		}
		out[issue.Field] = issue.Message
	}
	return out
}

// Has reports whether field has an issue.
func (f *Failure) Has(field string) bool {
	if f == nil {
		return false
	}
	for _, issue := range f.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}
