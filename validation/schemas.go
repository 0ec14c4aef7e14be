package validation

import (
	"errors"
	"slices"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Wire names for form fields.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	MinPasswordLength = 6
	MinNameLength     = 2
)

// Input holds raw submitted values keyed by field name. Missing keys read as "".
type Input map[string]string

// Credentials is a validated login submission.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is a validated sign up submission.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ParseLogin validates a login submission. Each field reports at most one
// issue and issues come back in field declaration order.
func ParseLogin(in Input) (Credentials, *Failure) {
	c := Credentials{
		Email:    in[FieldEmail],
		Password: in[FieldPassword],
	}

	err := ozzo.ValidateStruct(&c,
		ozzo.Field(&c.Email, emailRules()...),
		ozzo.Field(&c.Password, passwordRules()...),
	)
	if f := collect(err, FieldEmail, FieldPassword); f != nil {
		return Credentials{}, f
	}

	return c, nil
}

// ParseRegister validates a sign up submission in two phases. The
// password confirmation check runs only once every field is valid on
// its own, and its issue is attributed to confirmPassword alone.
func ParseRegister(in Input) (Registration, *Failure) {
	r := Registration{
		Name:            in[FieldName],
		Email:           in[FieldEmail],
		Password:        in[FieldPassword],
		ConfirmPassword: in[FieldConfirmPassword],
	}

	err := ozzo.ValidateStruct(&r,
		ozzo.Field(&r.Name,
			ozzo.Required.Error(Required("Name")),
			ozzo.RuneLength(MinNameLength, 0).Error(MinLength("Name", MinNameLength)),
		),
		ozzo.Field(&r.Email, emailRules()...),
		ozzo.Field(&r.Password, passwordRules()...),
		ozzo.Field(&r.ConfirmPassword,
			ozzo.Required.Error(Required("Confirm Password")),
		),
	)
	if f := collect(err, FieldName, FieldEmail, FieldPassword, FieldConfirmPassword); f != nil {
		return Registration{}, f
	}

	err = ozzo.ValidateStruct(&r,
		ozzo.Field(&r.ConfirmPassword, ozzo.By(ValidateStringEquals(r.Password))),
	)
	if f := collect(err, FieldConfirmPassword); f != nil {
		return Registration{}, f
	}

	return r, nil
}

// ValidateStringEquals checks that the validated value matches str.
func ValidateStringEquals(str string) ozzo.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(MsgPasswordsDoNotMatch)
		}
		return nil
	}
}

func emailRules() []ozzo.Rule {
	return []ozzo.Rule{
		ozzo.Required.Error(Required("Email")),
		is.EmailFormat.Error(MsgInvalidEmail),
	}
}

func passwordRules() []ozzo.Rule {
	return []ozzo.Rule{
		ozzo.Required.Error(Required("Password")),
		ozzo.RuneLength(MinPasswordLength, 0).Error(MinLength("Password", MinPasswordLength)),
	}
}

// collect turns ozzo errors into an ordered Failure. Any error that is not
// a field map is reported against the form as a whole.
func collect(err error, order ...string) *Failure {
	if err == nil {
		return nil
	}

	var fields ozzo.Errors
	if !errors.As(err, &fields) {
		return &Failure{Issues: []Issue{{Message: err.Error()}}}
	}

	f := &Failure{}
	for _, name := range order {
		if ferr, ok := fields[name]; ok && ferr != nil {
			f.Issues = append(f.Issues, Issue{Field: name, Message: ferr.Error()})
		}
	}

	// rules attached to unexpected keys still have to surface
	for name, ferr := range fields {
		if ferr == nil || slices.Contains(order, name) {
			continue
		}
		f.Issues = append(f.Issues, Issue{Field: name, Message: ferr.Error()})
	}

	if len(f.Issues) == 0 {
		return nil
	}
	return f
}
