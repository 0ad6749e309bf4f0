package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)

// CardFields is the card data a terminal reads before authenticating.
// Field order is the order fields are checked in.
type CardFields struct {
	Number     string `json:"number" validate:"digits,len=16"`
	CVC        string `json:"cvc" validate:"digits,len=3"`
	Expiration string `json:"expiration" validate:"expiry"`
	PIN        string `json:"pin" validate:"digits,len=4"`
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper with the card rules
// registered
func NewValidationHelper() *ValidationHelper {
	v := validator.New()

	// report json names so errors read "number" rather than "Number"
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// the built-in numeric tag accepts signs and decimal points
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return isDigits(fl.Field().String())
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})

	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// ValidateCardFields returns an *InvalidCardFieldError naming the first
// field that fails
func (vh *ValidationHelper) ValidateCardFields(fields CardFields) error {
	err := vh.validator.Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &InvalidCardFieldError{Field: verrs[0].Field()}
	}
	return err
}

// FieldErrors flattens validation errors into field -> failed tag
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isValidPin reports whether pin is exactly four ASCII digits
func isValidPin(pin string) bool {
	return len(pin) == 4 && isDigits(pin)
}
