package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
	"agrirank/pkg/contracts/domain"
)

// DefaultMaxBodySize caps JSON request bodies.
const DefaultMaxBodySize = 1 << 20

// Validator decodes request bodies and checks them against their
// validate tags. Field names in errors are the JSON names.
type Validator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator registers the domain validators "metric" and "yearmonth".
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()
	v.RegisterValidation("metric", isMetric)
	v.RegisterValidation("yearmonth", isYearMonth)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator:   v,
		logger:      infrastructure.WithComponent(logger, "validation"),
		maxBodySize: DefaultMaxBodySize,
	}
}

// DecodeJSON reads the JSON body of r into dst and validates it. An empty
// body leaves dst untouched.
func (v *Validator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.ContentLength > v.maxBodySize {
		return apperrors.NewWithDetails(
			http.StatusRequestEntityTooLarge,
			"PAYLOAD_TOO_LARGE",
			"Request body exceeds maximum allowed size",
			map[string]interface{}{"max_size": v.maxBodySize, "size": r.ContentLength},
		)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, v.maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		v.logger.DebugContext(r.Context(), "invalid request body",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return apperrors.InvalidRequestWithError(err)
	}
	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InvalidRequestWithError(err)
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(out)
}

// ContentTypeValidator rejects bodies whose Content-Type is not listed.
// Requests without a body pass.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			apiErr := apperrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{"content_type": contentType, "allowed": contentTypes},
			)
			render.Status(r, apiErr.StatusCode)
			render.JSON(w, r, apiErr)
		})
	}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "metric":
		return fmt.Sprintf("%s must be one of: %s", field, metricNames())
	case "yearmonth":
		return fmt.Sprintf("%s must be a month in YYYY-MM form", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func metricNames() string {
	names := make([]string, len(domain.KnownMetrics))
	for i, m := range domain.KnownMetrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func isMetric(fl validator.FieldLevel) bool {
	_, err := domain.ParseMetric(fl.Field().String())
	return err == nil
}

func isYearMonth(fl validator.FieldLevel) bool {
	_, err := domain.ParseMonthBucket(fl.Field().String())
	return err == nil
}
