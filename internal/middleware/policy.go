package middleware

import (
	"net/http"
	"sort"
)

// ISMS roles, most to least privileged.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAuditor = "auditor"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

var (
	everyone = []string{RoleAdmin, RoleManager, RoleAuditor, RoleAnalyst, RoleViewer}
	writers  = []string{RoleAdmin, RoleManager, RoleAuditor}
	owners   = []string{RoleAdmin, RoleManager}
	auditors = []string{RoleAdmin, RoleAuditor}
)

// policy maps every operation to the roles allowed to invoke it. Tool calls
// and REST routes consult the same table. Operations absent here are denied.
var policy = map[string][]string{
	"health_check": everyone,
	"batch":        everyone,

	"list_policies": everyone,
	"get_policy":    everyone,
	"create_policy": writers,
	"update_policy": writers,
	"delete_policy": owners,

	"list_controls":  everyone,
	"create_control": writers,
	"update_control": writers,

	"list_domains":  everyone,
	"create_domain": writers,

	"list_frameworks":    everyone,
	"import_framework":   owners,
	"map_control":        writers,
	"list_crosswalks":    everyone,
	"create_crosswalk":   writers,
	"suggest_crosswalks": everyone,

	"list_technical_documents":  everyone,
	"create_technical_document": writers,
	"list_external_documents":   everyone,
	"ingest_external_document":  writers,
	"get_document_download_url": everyone,

	"list_credentials_registry":   everyone,
	"create_credentials_registry": writers,
	"approve_credential":          owners,

	"list_privileged_access":         everyone,
	"create_privileged_access":       writers,
	"update_privileged_access_audit": writers,

	"list_evaluations":  everyone,
	"get_evaluation":    everyone,
	"create_evaluation": writers,
	"update_evaluation": writers,
	"delete_evaluation": owners,
	"evaluation_stats":  everyone,
	"low_effectiveness": everyone,

	"generate_effectiveness_report": everyone,
	"effectiveness_report":          everyone,
	"simulate_gap_report":           everyone,
	"coverage_dashboard":            everyone,

	"list_audit_logs": auditors,
}

// ValidRole reports whether role is one of the five ISMS roles.
func ValidRole(role string) bool {
	for _, r := range everyone {
		if r == role {
			return true
		}
	}
	return false
}

// Allowed reports whether role may invoke operation.
func Allowed(role, operation string) bool {
	for _, r := range policy[operation] {
		if r == role {
			return true
		}
	}
	return false
}

// Operations returns every operation named in the policy table, sorted.
func Operations() []string {
	ops := make([]string, 0, len(policy))
	for op := range policy {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// RequireOperation rejects callers whose role may not invoke operation.
// Must run after Authorize.
func RequireOperation(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				writeAuthError(w, &AuthError{Code: "UNAUTHENTICATED", Message: "Authentication required", Status: http.StatusUnauthorized})
				return
			}
			if err := authCtx.CanInvoke(operation); err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
