package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "bikepulse/internal/errors"
	api "bikepulse/pkg/contracts/api/v1"
)

// Validator validates request contracts using struct tags and reports
// failures as RFC 7807 validation errors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// BindRangeQuery reads the dashboard controls from the URL query and
// validates them. Absent flags are false and an absent box scope is "all".
func (v *Validator) BindRangeQuery(r *http.Request) (api.RangeQuery, error) {
	values := r.URL.Query()

	q := api.RangeQuery{
		Start:    strings.TrimSpace(values.Get("start")),
		End:      strings.TrimSpace(values.Get("end")),
		BoxScope: strings.ToLower(strings.TrimSpace(values.Get("box_scope"))),
	}

	var invalid []apierrors.ValidationError
	flags := []struct {
		name string
		dst  *bool
	}{
		{"fill_gaps", &q.FillGaps},
		{"show_summary", &q.ShowSummary},
		{"show_raw", &q.ShowRaw},
	}
	for _, f := range flags {
		b, err := parseFlag(values, f.name)
		if err != nil {
			invalid = append(invalid, apierrors.ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("%s must be a boolean", f.name),
			})
			continue
		}
		*f.dst = b
	}
	if len(invalid) > 0 {
		return q, apierrors.NewValidationErrors(invalid)
	}

	if err := v.ValidateStruct(q); err != nil {
		return q, err
	}

	if q.BoxScope == "" {
		q.BoxScope = api.BoxScopeAll
	}
	return q, nil
}

// parseFlag treats a present but empty parameter ("?show_raw") as true.
func parseFlag(values url.Values, name string) (bool, error) {
	if !values.Has(name) {
		return false, nil
	}
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" || strings.EqualFold(raw, "on") {
		return true, nil
	}
	return strconv.ParseBool(raw)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
