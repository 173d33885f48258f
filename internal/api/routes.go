package api

import (
	"net/http"

	ops "nciso/server/internal/isms"
	"nciso/server/internal/middleware"
)

type route struct {
	pattern string // method and path, ServeMux syntax
	op      string // policy table operation
	status  int    // success status; 0 means 200
	path    map[string]string
	run     call
}

var idParam = map[string]string{"id": "id"}

var routes = []route{
	// Control effectiveness evaluations
	{pattern: "GET /api/controls/effectiveness", op: "list_evaluations", run: list((*ops.Service).ListEvaluations)},
	{pattern: "POST /api/controls/effectiveness", op: "create_evaluation", status: http.StatusCreated, run: write((*ops.Service).CreateEvaluation)},
	{pattern: "GET /api/controls/effectiveness/stats", op: "evaluation_stats", run: get((*ops.Service).EvaluationStats)},
	{pattern: "GET /api/controls/effectiveness/low-effectiveness", op: "low_effectiveness", run: list((*ops.Service).LowEffectiveness)},
	{pattern: "GET /api/controls/effectiveness/{id}", op: "get_evaluation", path: idParam, run: get((*ops.Service).GetEvaluation)},
	{pattern: "PUT /api/controls/effectiveness/{id}", op: "update_evaluation", path: idParam, run: write((*ops.Service).UpdateEvaluation)},
	{pattern: "DELETE /api/controls/effectiveness/{id}", op: "delete_evaluation", path: idParam, run: write((*ops.Service).DeleteEvaluation)},

	// Policies
	{pattern: "GET /api/v1/isms/policies", op: "list_policies", run: list((*ops.Service).ListPolicies)},
	{pattern: "POST /api/v1/isms/policies", op: "create_policy", status: http.StatusCreated, run: write((*ops.Service).CreatePolicy)},
	{pattern: "GET /api/v1/isms/policies/{id}", op: "get_policy", path: idParam, run: get((*ops.Service).GetPolicy)},
	{pattern: "PUT /api/v1/isms/policies/{id}", op: "update_policy", path: idParam, run: write((*ops.Service).UpdatePolicy)},
	{pattern: "DELETE /api/v1/isms/policies/{id}", op: "delete_policy", path: idParam, run: write((*ops.Service).DeletePolicy)},

	// Controls and domains
	{pattern: "GET /api/v1/isms/controls", op: "list_controls", run: list((*ops.Service).ListControls)},
	{pattern: "POST /api/v1/isms/controls", op: "create_control", status: http.StatusCreated, run: write((*ops.Service).CreateControl)},
	{pattern: "PUT /api/v1/isms/controls/{id}", op: "update_control", path: idParam, run: write((*ops.Service).UpdateControl)},
	{pattern: "GET /api/v1/isms/domains", op: "list_domains", run: list((*ops.Service).ListDomains)},
	{pattern: "POST /api/v1/isms/domains", op: "create_domain", status: http.StatusCreated, run: write((*ops.Service).CreateDomain)},

	// Frameworks
	{pattern: "GET /api/v1/isms/frameworks", op: "list_frameworks", run: list((*ops.Service).ListFrameworks)},
	{pattern: "POST /api/v1/isms/frameworks", op: "import_framework", status: http.StatusCreated, run: write((*ops.Service).ImportFramework)},
	{pattern: "GET /api/v1/isms/frameworks/{id}/gap-report", op: "simulate_gap_report", path: map[string]string{"id": "framework_id"}, run: get((*ops.Service).SimulateGapReport)},
	{pattern: "POST /api/v1/isms/control-mappings", op: "map_control", status: http.StatusCreated, run: write((*ops.Service).MapControl)},
	{pattern: "GET /api/v1/isms/crosswalks", op: "list_crosswalks", run: list((*ops.Service).ListCrosswalks)},
	{pattern: "POST /api/v1/isms/crosswalks", op: "create_crosswalk", status: http.StatusCreated, run: write((*ops.Service).CreateCrosswalk)},
	{pattern: "GET /api/v1/isms/crosswalks/suggestions", op: "suggest_crosswalks", run: list((*ops.Service).SuggestCrosswalks)},

	// Documents
	{pattern: "GET /api/v1/isms/technical-documents", op: "list_technical_documents", run: list((*ops.Service).ListTechnicalDocuments)},
	{pattern: "POST /api/v1/isms/technical-documents", op: "create_technical_document", status: http.StatusCreated, run: write((*ops.Service).CreateTechnicalDocument)},
	{pattern: "GET /api/v1/isms/external-documents", op: "list_external_documents", run: list((*ops.Service).ListExternalDocuments)},
	{pattern: "GET /api/v1/isms/technical-documents/{id}/download-url", op: "get_document_download_url", path: idParam, run: get((*ops.Service).DocumentDownloadURL)},
	{pattern: "POST /api/v1/isms/external-documents/ingest", op: "ingest_external_document", status: http.StatusCreated, run: write((*ops.Service).IngestExternalDocument)},

	// Credentials and privileged access
	{pattern: "GET /api/v1/isms/credentials", op: "list_credentials_registry", run: list((*ops.Service).ListCredentials)},
	{pattern: "POST /api/v1/isms/credentials", op: "create_credentials_registry", status: http.StatusCreated, run: write((*ops.Service).CreateCredential)},
	{pattern: "POST /api/v1/isms/credentials/{id}/approve", op: "approve_credential", path: idParam, run: write((*ops.Service).ApproveCredential)},
	{pattern: "GET /api/v1/isms/privileged-access", op: "list_privileged_access", run: list((*ops.Service).ListPrivilegedAccess)},
	{pattern: "POST /api/v1/isms/privileged-access", op: "create_privileged_access", status: http.StatusCreated, run: write((*ops.Service).CreatePrivilegedAccess)},
	{pattern: "PUT /api/v1/isms/privileged-access/{id}/audit", op: "update_privileged_access_audit", path: idParam, run: write((*ops.Service).UpdatePrivilegedAccessAudit)},

	// Reports and audit trail
	{pattern: "GET /api/v1/isms/reports/effectiveness", op: "generate_effectiveness_report", run: get((*ops.Service).EffectivenessReport)},
	{pattern: "GET /api/v1/isms/reports/coverage", op: "coverage_dashboard", run: get((*ops.Service).CoverageDashboard)},
	{pattern: "GET /api/v1/isms/audit-logs", op: "list_audit_logs", run: list((*ops.Service).ListAuditLogs)},
}

// Register mounts every REST route on mux. Each route runs
// Authorize, the rate limiter and the operation's role check, in that order.
func Register(mux *http.ServeMux, svc *ops.Service, authorizer *middleware.Authorizer, limiter *middleware.RateLimiter) {
	for _, rt := range routes {
		h := handler(svc, rt)
		h = middleware.RequireOperation(rt.op)(h)
		h = limiter.Middleware(h)
		h = authorizer.Authorize(h)
		mux.Handle(rt.pattern, h)
	}
}

func handler(svc *ops.Service, rt route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authCtx := middleware.GetAuthContext(ctx)

		params, err := readParams(w, r, rt.op, rt.path)
		if err != nil {
			writeError(w, err)
			return
		}
		// The token decides the tenant. A differing tenant_id is refused.
		tenantID, _ := params["tenant_id"].(string)
		if err := authCtx.CheckTenant(tenantID); err != nil {
			writeError(w, err)
			return
		}
		params["tenant_id"] = authCtx.TenantID

		env, err := rt.run(ctx, svc, ops.Actor{UserID: authCtx.UserID, RequestID: middleware.GetRequestID(ctx)}, params)
		if err != nil {
			writeError(w, err)
			return
		}
		status := rt.status
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, []byte(env.Encode()))
	})
}
