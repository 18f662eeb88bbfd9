package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "tpcpower/internal/errors"
	api "tpcpower/pkg/contracts/api/v1"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

// RequestValidator decodes request payloads and validates them against their
// struct tags. Failures are returned as *apierrors.APIError values ready for
// the error handler.
type RequestValidator struct {
	validator   *validator.Validate
	maxBodySize int64
}

// NewRequestValidator creates a validator reporting fields by their JSON names
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:   v,
		maxBodySize: DefaultMaxBodySize,
	}
}

// DecodeJSON reads a JSON body into dst and validates it. An empty body
// leaves dst untouched and is validated as such.
func (v *RequestValidator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, v.maxBodySize+1))
		if err != nil {
			return apierrors.InvalidRequestWithError(err)
		}
		if int64(len(body)) > v.maxBodySize {
			return apierrors.PayloadTooLarge(v.maxBodySize)
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, dst); err != nil {
				return apierrors.InvalidJSON(err)
			}
		}
	}
	return v.Struct(dst)
}

// BindQuery fills a QueryRequest from the URL query string. Types and names
// may be repeated (type=a&type=b) or comma separated.
func (v *RequestValidator) BindQuery(r *http.Request) (api.QueryRequest, error) {
	q := r.URL.Query()
	req := api.QueryRequest{
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		TimeFrom: q.Get("time_from"),
		TimeTo:   q.Get("time_to"),
		Format:   q.Get("format"),
	}
	if _, ok := q["type"]; ok {
		req.Types = splitList(q["type"])
	}
	if _, ok := q["name"]; ok {
		req.Names = splitList(q["name"])
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return req, apierrors.ErrValidation("limit", "limit must be a valid integer")
		}
		req.Limit = limit
	}

	return req, v.Struct(&req)
}

// Struct validates v and converts failures to a VALIDATION_FAILED error
func (v *RequestValidator) Struct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fieldName(fe),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// ContentTypeValidator rejects bodies sent with other content types
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || r.ContentLength == 0 {
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

			errorHandler.HandleError(w, r, apierrors.UnsupportedMediaType(contentType, contentTypes))
		})
	}
}

func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// fieldName drops the element index of dive errors: types[0] -> types
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

func formatValidationError(fe validator.FieldError) string {
	field := fieldName(fe)
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		switch param {
		case "2006-01-02":
			return fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", field)
		case "15:04":
			return fmt.Sprintf("%s must be a time formatted HH:MM", field)
		}
		return fmt.Sprintf("%s must match the layout %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
