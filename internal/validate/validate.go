// Package validate wraps go-playground/validator with the custom rules used
// by the write services and converts violations into validation failures.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anil-trigital/GST/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	vld      *validator.Validate
	initOnce sync.Once
	initErr  error
)

// ErrValidatorInit is returned when custom validator registration fails.
var ErrValidatorInit = errors.New("validator initialization failed")

func instance() (*validator.Validate, error) {
	initOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Custom validators access decimal fields directly; registering a
		// custom type function for decimal.Decimal would recurse.
		if err := v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
			value, ok := fl.Field().Interface().(decimal.Decimal)
			if !ok {
				return false
			}

			return value.IsPositive()
		}); err != nil {
			initErr = fmt.Errorf("%w: %w", ErrValidatorInit, err)
			return
		}

		vld = v
	})

	return vld, initErr
}

// Struct validates s against its struct tags. Violations are returned as a
// single validation Failure naming the offending fields.
func Struct(s any) error {
	v, err := instance()
	if err != nil {
		return err
	}

	err = v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("request payload is not valid: %v", err)
	}

	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, describe(fe))
	}

	return errs.Validation("%s", strings.Join(violations, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %s is required", field)
	case "positive_decimal":
		return fmt.Sprintf("field %s must be a positive amount", field)
	case "min":
		return fmt.Sprintf("field %s is below minimum length %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("field %s exceeds maximum length %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("field %s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("field %s failed validation %q", field, fe.Tag())
	}
}
