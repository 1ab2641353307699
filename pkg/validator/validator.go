// Package validator wraps go-playground/validator with govdoc-specific rules.
package validator

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// ValidateStructured returns a map of field -> error message for frontend usage
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "email":
					msg = "Invalid email address"
				case "min":
					msg = fmt.Sprintf("Must be at least %s characters", e.Param())
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				case "cnp":
					msg = "Invalid national identification number"
				case "cui":
					msg = "Invalid company tax identifier"
				}
				errs[e.Field()] = msg
			}
		} else {
			errs["_global"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

var (
	cnpPattern = regexp.MustCompile(`^[1-9]\d{12}$`)
	cuiPattern = regexp.MustCompile(`^(RO)?\d{2,10}$`)
)

// PlausibleNationalID reports whether the value looks like a valid CNP:
// 13 digits, a known century/sex prefix, and a correct control digit.
func PlausibleNationalID(value string) bool {
	v := strings.TrimSpace(value)
	if !cnpPattern.MatchString(v) {
		return false
	}
	// Control digit per the published CNP algorithm.
	const weights = "279146358279"
	sum := 0
	for i := 0; i < 12; i++ {
		sum += int(v[i]-'0') * int(weights[i]-'0')
	}
	control := sum % 11
	if control == 10 {
		control = 1
	}
	return control == int(v[12]-'0')
}

// PlausibleTaxID reports whether the value looks like a CUI, with or without
// the country prefix.
func PlausibleTaxID(value string) bool {
	return cuiPattern.MatchString(strings.ToUpper(strings.TrimSpace(value)))
}

func (v *Validator) registerCustomValidations() {
	_ = v.validate.RegisterValidation("cnp", func(fl validator.FieldLevel) bool {
		return PlausibleNationalID(fl.Field().String())
	})

	_ = v.validate.RegisterValidation("cui", func(fl validator.FieldLevel) bool {
		return PlausibleTaxID(fl.Field().String())
	})
}

// Sanitize cleans string input to prevent XSS attacks
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}
