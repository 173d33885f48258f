package isms

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nciso/server/internal/db"
	"nciso/server/internal/observability"
)

// FieldProblem is one rejected argument.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected argument of a call.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return strings.Join(msgs, "; ")
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Problems: []FieldProblem{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateArgs(args any) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate arguments")
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		out.Problems = append(out.Problems, FieldProblem{Field: field, Message: describe(field, fe)})
	}
	return out
}

// fieldPath drops the struct name and embedded struct names from a namespace.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	kept := parts[:0]
	for _, p := range parts[1:] {
		if p == "TenantArgs" || p == "IDArgs" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " é obrigatório"
	case "required_without":
		return fmt.Sprintf("%s é obrigatório quando %s está ausente", field, snake(fe.Param()))
	case "uuid":
		return field + " deve ser um UUID válido"
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "min":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("%s deve ter ao menos %s itens", field, fe.Param())
		case reflect.String:
			return fmt.Sprintf("%s deve ter ao menos %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no mínimo %s", field, fe.Param())
	case "lte", "max":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("%s deve ter no máximo %s itens", field, fe.Param())
		case reflect.String:
			return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no máximo %s", field, fe.Param())
	case "url":
		return field + " deve ser uma URL válida"
	default:
		return fmt.Sprintf("%s é inválido (%s)", field, fe.Tag())
	}
}

// snake turns a Go field name such as SourceURL into source_url.
func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Status maps an operation error onto an HTTP status.
func Status(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoObjectStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message renders an operation error for the response envelope. Store
// failures are logged with their SQLSTATE and surfaced as-is.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, db.ErrNotConfigured):
		return "Supabase não configurado"
	case errors.Is(err, ErrNoObjectStore):
		return err.Error()
	case errors.Is(err, db.ErrNotFound):
		what := strings.TrimSuffix(strings.TrimSuffix(err.Error(), db.ErrNotFound.Error()), ": ")
		if what == "" {
			return "Registro não encontrado"
		}
		return "Registro não encontrado: " + what
	}
	fields := []zap.Field{zap.Error(err)}
	if state := db.SQLState(err); state != "" {
		fields = append(fields, zap.String("sqlstate", state))
	}
	observability.L().Error("store error", fields...)
	return err.Error()
}
