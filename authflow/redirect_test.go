package authflow_test

import (
	"testing"

	"github.com/goliatone/go-starter/authflow"
	"github.com/stretchr/testify/assert"
)

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		raw      string
		fallback string
		expected string
	}{
		{raw: "", expected: "/dashboard"},
		{raw: "/settings?tab=profile", expected: "/settings?tab=profile"},
		{raw: "  /billing ", expected: "/billing"},
		{raw: "https://evil.example/", expected: "/dashboard"},
		{raw: "//evil.example", expected: "/dashboard"},
		{raw: "/\\evil.example", expected: "/dashboard"},
		{raw: "dashboard", expected: "/dashboard"},
		{raw: "javascript:alert(1)", expected: "/dashboard"},
		{raw: "", fallback: "/home", expected: "/home"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, authflow.ResolveRedirect(tt.raw, tt.fallback))
		})
	}
}
