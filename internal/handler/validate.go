package handler

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// validator wraps go-playground/validator so request structs are checked
// against their `validate` tags and failures surface as domain.ErrValidation.
type validator struct {
	v *playground.Validate
}

func newValidator() *validator {
	v := playground.New()

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// bcrypt reads at most 72 bytes, and max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl playground.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})

	return &validator{v: v}
}

// fieldError is a request validation failure with per-field messages.
type fieldError struct {
	fields map[string]string
}

func (e *fieldError) Error() string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.fields[name]
	}
	return strings.Join(parts, "; ")
}

// Struct validates s and returns an error wrapping domain.ErrValidation.
func (v *validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = friendlyMessage(fe)
	}
	return fmt.Errorf("%w: %w", domain.ErrValidation, &fieldError{fields: fields})
}

// fieldErrors returns the per-field messages carried by err, if any.
func fieldErrors(err error) map[string]string {
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe.fields
	}
	return nil
}

func friendlyMessage(e playground.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "maxbytes":
		return fmt.Sprintf("must not exceed %s bytes", e.Param())
	case "eqfield":
		return "must match " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
