package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"nciso/server/internal/observability"
)

// Recovery turns a panic into a 500 envelope. The stack goes to the process
// log and the event to Loki, both tagged with the request and tenant.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			ctx := r.Context()
			requestID := GetRequestID(ctx)
			userID, tenantID := "", ""
			if authCtx := GetAuthContext(ctx); authCtx != nil {
				userID, tenantID = authCtx.UserID, authCtx.TenantID
			}
			observability.L().Error("panic recovered",
				zap.Any("panic", v),
				zap.String("request_id", requestID),
				zap.String("tenant_id", tenantID),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)
			observability.LogSecurityEvent(requestID, userID, "panic_recovered", map[string]any{
				"error":     fmt.Sprint(v),
				"tenant_id": tenantID,
			})

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"success":false,"error":"Erro interno inesperado"}`)
		}()
		next.ServeHTTP(w, r)
	})
}
