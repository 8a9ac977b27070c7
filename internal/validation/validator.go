// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/cohortlens/internal/models"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError represents a single field validation error with structured information.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the struct field name that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "100" for "max=100").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} {
	return e.value
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}

	return strings.Join(messages, "; ")
}

// ToQueryConstructionError converts the failure into the non-retryable
// caller error used by the query and cohort layers.
func (ve *RequestValidationError) ToQueryConstructionError() *models.QueryConstructionError {
	return &models.QueryConstructionError{Reason: "invalid input", Err: ve}
}

// GetValidator returns the singleton validator instance.
// The validator is initialized once with custom validators and options.
// This function is thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails on an empty tag or nil func.
		_ = validate.RegisterValidation("identifier_kind", func(fl validator.FieldLevel) bool {
			return models.IdentifierKind(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("lifecycle_status", func(fl validator.FieldLevel) bool {
			return models.Classification(fl.Field().String()).Priority() >= 0
		})
		_ = validate.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
			return models.Interval(fl.Field().String()).Valid()
		})
	})

	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{
				{
					field:   "unknown",
					tag:     "unknown",
					message: err.Error(),
				},
			},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Namespace(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// ValidateFilter checks a lifecycle filter and reports failures as a
// QueryConstructionError.
func ValidateFilter(f *models.Filter) error {
	if verr := ValidateStruct(f); verr != nil {
		return verr.ToQueryConstructionError()
	}
	return nil
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":         "%s is required",
	"identifier_kind":  "%s must be distinct_id or person_id",
	"lifecycle_status": "%s must be one of: new returning resurrecting dormant",
	"interval":         "%s must be one of: day week month",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":    "%s must be one of: %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"gt":       "%s must be greater than %s",
	"lt":       "%s must be less than %s",
	"gtefield": "%s must not be before %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}

	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	switch fe.Kind().String() {
	case "string":
		switch tag {
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
	case "slice", "map":
		switch tag {
		case "min":
			return fmt.Sprintf("%s must contain at least %s items", field, param)
		case "max":
			return fmt.Sprintf("%s must contain at most %s items", field, param)
		}
	}

	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
