// Package forms validates submitted form fields.
//
// Each form declares, per field, an ordered list of checks. Fields are
// validated in declaration order and a field stops at its first failing check,
// so every field reports at most one message.
package forms

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Failure is a user-facing validation message returned by a Check.
type Failure string

func (f Failure) Error() string { return string(f) }

// Failf builds a Failure from a format string.
func Failf(format string, args ...any) Failure {
	return Failure(fmt.Sprintf(format, args...))
}

// Check validates one field value. It returns a Failure when the value is
// rejected and any other error when the check itself could not run.
type Check func(ctx context.Context, value string) error

// Field binds a submitted value to its checks.
type Field struct {
	Name   string
	Value  string
	Checks []Check
}

// Errors maps a field name to its first failure message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	if e == nil {
		return ""
	}
	return e[field]
}

// Validate runs the fields' checks. It returns Errors when any field failed,
// or the first non-validation error a check produced.
func Validate(ctx context.Context, fields ...Field) error {
	errs := Errors{}
	for _, f := range fields {
		for _, check := range f.Checks {
			err := check(ctx, f.Value)
			if err == nil {
				continue
			}
			var failure Failure
			if !errors.As(err, &failure) {
				return fmt.Errorf("validate %s: %w", f.Name, err)
			}
			errs[f.Name] = failure.Error()
			break
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AsErrors extracts field errors from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// validate backs the primitive checks. It is safe for concurrent use and
// caches parsed tags.
var validate = validator.New()

// rule runs a validator tag against the value and reports msg when it fails.
func rule(tag string, value func(string) string, msg func() Failure) Check {
	return func(_ context.Context, v string) error {
		if value != nil {
			v = value(v)
		}
		err := validate.Var(v, tag)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return msg()
		}
		return err
	}
}

// Required rejects blank values.
func Required() Check {
	return rule("required", strings.TrimSpace, func() Failure {
		return Failure("This field is required.")
	})
}

// Length requires between min and max characters.
func Length(min, max int) Check {
	return rule(fmt.Sprintf("min=%d,max=%d", min, max), nil, func() Failure {
		return Failf("Field must be between %d and %d characters long.", min, max)
	})
}

// MinLength requires at least min characters.
func MinLength(min int) Check {
	return rule(fmt.Sprintf("min=%d", min), nil, func() Failure {
		return Failf("Field must be at least %d characters long.", min)
	})
}

// MaxLength allows at most max characters.
func MaxLength(max int) Check {
	return rule(fmt.Sprintf("max=%d", max), nil, func() Failure {
		return Failf("Field cannot be longer than %d characters.", max)
	})
}

// MaxBytes allows at most max bytes of encoded input. validator counts runes,
// so this one stays a plain length check.
func MaxBytes(max int) Check {
	return func(_ context.Context, v string) error {
		if len(v) > max {
			return Failf("Field cannot be longer than %d bytes.", max)
		}
		return nil
	}
}

// Email requires a syntactically valid address.
func Email() Check {
	return rule("required,email", strings.TrimSpace, func() Failure {
		return Failure("Invalid email address.")
	})
}

// EqualTo requires the value to match other, the value of the field named label.
func EqualTo(other, label string) Check {
	return func(_ context.Context, v string) error {
		err := validate.VarWithValue(v, other, "eqfield")
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Failf("Field must be equal to %s.", label)
		}
		return err
	}
}

// Lookup reports whether a record with the given value exists.
type Lookup func(ctx context.Context, value string) (bool, error)

// Unique fails with message when lookup finds an existing record.
func Unique(lookup Lookup, message string) Check {
	return func(ctx context.Context, v string) error {
		exists, err := lookup(ctx, v)
		if err != nil {
			return err
		}
		if exists {
			return Failure(message)
		}
		return nil
	}
}

// Exists fails with message when lookup finds no record.
func Exists(lookup Lookup, message string) Check {
	return func(ctx context.Context, v string) error {
		exists, err := lookup(ctx, v)
		if err != nil {
			return err
		}
		if !exists {
			return Failure(message)
		}
		return nil
	}
}

// Unless skips check when skip is true.
func Unless(skip bool, check Check) Check {
	return func(ctx context.Context, v string) error {
		if skip {
			return nil
		}
		return check(ctx, v)
	}
}

// Optional skips the remaining checks of a field when the value is empty.
func Optional(checks ...Check) Check {
	return func(ctx context.Context, v string) error {
		if v == "" {
			return nil
		}
		for _, check := range checks {
			if err := check(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}
}

// FileAllowed requires the file name to carry one of the extensions (without dot).
func FileAllowed(exts ...string) Check {
	return func(_ context.Context, v string) error {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(v)), ".")
		if ext != "" && validate.Var(ext, "oneof="+strings.Join(exts, " ")) == nil {
			return nil
		}
		return Failf("File does not have an approved extension: %s", strings.Join(exts, ", "))
	}
}
