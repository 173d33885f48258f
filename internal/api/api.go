// Package api is the REST surface. Every route maps one HTTP verb and path to
// one ISMS operation, under bearer auth, rate limiting and the role policy.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"nciso/server/internal/db"
	ops "nciso/server/internal/isms"
	"nciso/server/internal/middleware"
	"nciso/server/internal/modules"
	"nciso/server/internal/observability"
)

const maxBodySize = 1 << 20

// call runs one operation with decoded parameters.
type call func(ctx context.Context, svc *ops.Service, actor ops.Actor, params map[string]any) (modules.Envelope, error)

// badRequest is a malformed body or query, rejected before the operation runs.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func decode[A any](params map[string]any) (A, error) {
	var args A
	if err := modules.DecodeParams(params, &args); err != nil {
		return args, &badRequest{msg: "parâmetros inválidos: " + err.Error()}
	}
	return args, nil
}

func list[A, R any](fn func(*ops.Service, context.Context, A) ([]R, error)) call {
	return func(ctx context.Context, svc *ops.Service, _ ops.Actor, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Envelope{}, err
		}
		rows, err := fn(svc, ctx, args)
		if err != nil {
			return modules.Envelope{}, err
		}
		return modules.List(rows)
	}
}

func get[A, R any](fn func(*ops.Service, context.Context, A) (R, error)) call {
	return func(ctx context.Context, svc *ops.Service, _ ops.Actor, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Envelope{}, err
		}
		v, err := fn(svc, ctx, args)
		if err != nil {
			return modules.Envelope{}, err
		}
		return modules.OK(v)
	}
}

func write[A, R any](fn func(*ops.Service, context.Context, ops.Actor, A) (R, error)) call {
	return func(ctx context.Context, svc *ops.Service, actor ops.Actor, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Envelope{}, err
		}
		v, err := fn(svc, ctx, actor, args)
		if err != nil {
			return modules.Envelope{}, err
		}
		return modules.OK(v)
	}
}

// readParams merges the query string, the JSON body and the path values into
// one parameter map. Query values are typed after the operation's tool schema.
func readParams(w http.ResponseWriter, r *http.Request, op string, pathParams map[string]string) (map[string]any, error) {
	params := make(map[string]any)

	var schema modules.InputSchema
	if _, tool, ok := modules.FindTool(op); ok {
		schema = tool.InputSchema
	}
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		v, err := typedQueryValue(key, values[0], schema.Properties[key].Type)
		if err != nil {
			return nil, err
		}
		params[key] = v
	}

	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			return nil, &badRequest{msg: "corpo da requisição muito grande"}
		}
		if len(body) > 0 {
			var fields map[string]any
			if err := json.Unmarshal(body, &fields); err != nil {
				return nil, &badRequest{msg: "JSON inválido"}
			}
			for k, v := range fields {
				params[k] = v
			}
		}
	}

	for name, param := range pathParams {
		params[param] = r.PathValue(name)
	}

	if len(schema.Properties) > 0 {
		if _, err := modules.ValidateParams(schemaWithoutRequired(schema), params); err != nil {
			return nil, &badRequest{msg: err.Error()}
		}
	}
	return params, nil
}

// schemaWithoutRequired keeps type checks only; required fields are reported
// field by field by the operation itself.
func schemaWithoutRequired(s modules.InputSchema) modules.InputSchema {
	s.Required = nil
	return s
}

func typedQueryValue(key, raw, typ string) (any, error) {
	switch typ {
	case "integer", "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &badRequest{msg: "parâmetro " + key + ": esperado número, recebido " + strconv.Quote(raw)}
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &badRequest{msg: "parâmetro " + key + ": esperado booleano, recebido " + strconv.Quote(raw)}
		}
		return b, nil
	default:
		return raw, nil
	}
}

// errorBody is the failed REST response. Details lists field-level problems.
type errorBody struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Code    string             `json:"code,omitempty"`
	Details []ops.FieldProblem `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		observability.L().Debug("write response", zap.Error(err))
	}
}

// statusOf maps an operation error onto its HTTP status.
func statusOf(err error) int {
	var br *badRequest
	var authErr *middleware.AuthError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return authErr.Status
	default:
		return ops.Status(err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if errors.Is(err, db.ErrNotConfigured) {
		writeJSON(w, status, []byte(modules.Unconfigured().Encode()))
		return
	}

	body := errorBody{Error: err.Error()}
	var ve *ops.ValidationError
	var authErr *middleware.AuthError
	switch {
	case errors.As(err, &ve):
		body.Details = ve.Problems
	case errors.As(err, &authErr):
		body.Code = authErr.Code
	case status >= http.StatusInternalServerError || status == http.StatusNotFound:
		body.Error = ops.Message(err)
	}
	b, encErr := json.Marshal(body)
	if encErr != nil {
		b = []byte(modules.Fail("Erro interno inesperado").Encode())
	}
	writeJSON(w, status, b)
}
