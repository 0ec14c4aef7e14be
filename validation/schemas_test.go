package validation_test

import (
	"testing"

	"github.com/goliatone/go-starter/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogin(t *testing.T) {
	tests := []struct {
		name     string
		input    validation.Input
		expected []validation.Issue
	}{
		{
			name:  "empty submission reports both fields in order",
			input: validation.Input{},
			expected: []validation.Issue{
				{Field: "email", Message: "Email is required"},
				{Field: "password", Message: "Password is required"},
			},
		},
		{
			name:  "bad email and short password",
			input: validation.Input{"email": "not-an-email", "password": "123"},
			expected: []validation.Issue{
				{Field: "email", Message: "Invalid email address"},
				{Field: "password", Message: "Password must be at least 6 characters"},
			},
		},
		{
			name:  "multibyte password counts characters",
			input: validation.Input{"email": "a@b.co", "password": "ééé"},
			expected: []validation.Issue{
				{Field: "password", Message: "Password must be at least 6 characters"},
			},
		},
		{
			name:  "only the password is short",
			input: validation.Input{"email": "a@b.co", "password": "12345"},
			expected: []validation.Issue{
				{Field: "password", Message: "Password must be at least 6 characters"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, failure := validation.ParseLogin(tt.input)
			require.NotNil(t, failure)
			assert.Equal(t, tt.expected, failure.Issues)
			assert.Equal(t, validation.Credentials{}, creds)
		})
	}
}

func TestParseLoginAccepts(t *testing.T) {
	creds, failure := validation.ParseLogin(validation.Input{
		"email":    "a@b.co",
		"password": "123456",
	})

	require.Nil(t, failure)
	assert.Equal(t, "a@b.co", creds.Email)
	assert.Equal(t, "123456", creds.Password)
}

func TestParseLoginAcceptsMultibytePassword(t *testing.T) {
	_, failure := validation.ParseLogin(validation.Input{
		"email":    "a@b.co",
		"password": "pässwörd",
	})
	assert.Nil(t, failure)
}

func TestParseRegisterNameCountsCharacters(t *testing.T) {
	_, failure := validation.ParseRegister(validation.Input{
		"name":            "é",
		"email":           "e@example.com",
		"password":        "123456",
		"confirmPassword": "123456",
	})
	require.NotNil(t, failure)
	assert.Equal(t, []validation.Issue{
		{Field: "name", Message: "Name must be at least 2 characters"},
	}, failure.Issues)

	reg, failure := validation.ParseRegister(validation.Input{
		"name":            "Zoë",
		"email":           "zoe@example.com",
		"password":        "123456",
		"confirmPassword": "123456",
	})
	require.Nil(t, failure)
	assert.Equal(t, "Zoë", reg.Name)
}

func TestParseRegisterRequiredFields(t *testing.T) {
	_, failure := validation.ParseRegister(validation.Input{})
	require.NotNil(t, failure)

	assert.Equal(t, []validation.Issue{
		{Field: "name", Message: "Name is required"},
		{Field: "email", Message: "Email is required"},
		{Field: "password", Message: "Password is required"},
		{Field: "confirmPassword", Message: "Confirm Password is required"},
	}, failure.Issues)
}

func TestParseRegisterMismatchOnlyAfterFieldsPass(t *testing.T) {
	// a short password hides the mismatch until it is fixed
	_, failure := validation.ParseRegister(validation.Input{
		"name":            "Al",
		"email":           "al@example.com",
		"password":        "123",
		"confirmPassword": "different",
	})
	require.NotNil(t, failure)
	assert.Equal(t, []validation.Issue{
		{Field: "password", Message: "Password must be at least 6 characters"},
	}, failure.Issues)

	_, failure = validation.ParseRegister(validation.Input{
		"name":            "Al",
		"email":           "al@example.com",
		"password":        "secret1",
		"confirmPassword": "secret2",
	})
	require.NotNil(t, failure)
	assert.Equal(t, []validation.Issue{
		{Field: "confirmPassword", Message: "Passwords do not match"},
	}, failure.Issues)
	assert.False(t, failure.Has("password"))
}

func TestParseRegisterNameLength(t *testing.T) {
	_, failure := validation.ParseRegister(validation.Input{
		"name":            "A",
		"email":           "a@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})
	require.NotNil(t, failure)
	assert.Equal(t, "Name must be at least 2 characters", failure.FieldErrors()["name"])
}

func TestParseRegisterAccepts(t *testing.T) {
	reg, failure := validation.ParseRegister(validation.Input{
		"name":            "Ada",
		"email":           "ada@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	})

	require.Nil(t, failure)
	assert.Equal(t, validation.Registration{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}, reg)
}

func TestFailureFieldErrors(t *testing.T) {
	f := &validation.Failure{Issues: []validation.Issue{
		{Field: "email", Message: "first"},
		{Field: "email", Message: "second"},
		{Message: "form level"},
	}}

	errs := f.FieldErrors()
	assert.Equal(t, "first", errs["email"])
	assert.Equal(t, "form level", errs[""])
	assert.Contains(t, f.Error(), "email: first")

	var nilFailure *validation.Failure
	assert.Empty(t, nilFailure.FieldErrors())
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Email is required", validation.Required("Email"))
	assert.Equal(t, "Password must be at least 6 characters", validation.MinLength("Password", 6))
}
