package user

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/token"
	userrepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/repo"
)

var (
	ErrInvalidRole        = errors.New("invalid role specified")
	ErrDuplicateEmail     = userrepo.ErrDuplicateEmail
	ErrDuplicatePhone     = userrepo.ErrDuplicatePhone
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account has been deactivated")
	ErrInvalidToken       = token.ErrInvalidToken
	ErrTokenExpired       = token.ErrTokenExpired
	ErrUserNotFound       = errors.New("user not found")
	ErrRegistrationFailed = errors.New("registration failed")
)

// FieldError names one violated input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a request, sorted by field name.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldNames returns the violated field names in order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func fieldInvalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// toValidationError flattens ozzo errors (nested structs become "parent.child").
// It returns nil when errs holds nothing.
func toValidationError(errs validation.Errors) error {
	var fields []FieldError
	flatten("", errs, &fields)
	if len(fields) == 0 {
		return nil
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}

func flatten(prefix string, errs validation.Errors, out *[]FieldError) {
	for name, err := range errs {
		if err == nil {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(key, nested, out)
			continue
		}
		*out = append(*out, FieldError{Field: key, Message: err.Error()})
	}
}
