package social

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ProviderError is a failed call to a provider endpoint. Code and
// Description come from the provider's error body when it sent one.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Operation != "" {
		b.WriteString(" " + e.Operation)
	}
	b.WriteString(" failed")

	switch {
	case e.Description != "":
		b.WriteString(": " + e.Description)
	case e.Code != "":
		b.WriteString(": " + e.Code)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Metadata lists the non empty fields, keyed for structured logs.
func (e *ProviderError) Metadata() map[string]any {
	meta := map[string]any{
		"provider":  e.Provider,
		"operation": e.Operation,
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}
	return meta
}

// wrapProviderError returns a copy of base, keeping its user facing
// message, with err attached as the source.
func wrapProviderError(base *errors.Error, provider, operation string, err error) error {
	out := base.Clone()

	var perr *ProviderError
	if errors.As(err, &perr) {
		out.Source = err
		return out.WithMetadata(perr.Metadata())
	}

	meta := map[string]any{"provider": provider, "operation": operation}
	if err != nil {
		out.Source = err
		meta["error"] = err.Error()
	}
	return out.WithMetadata(meta)
}
