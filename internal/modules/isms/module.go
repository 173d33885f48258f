package isms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"

	"nciso/server/internal/db"
	ops "nciso/server/internal/isms"
	"nciso/server/internal/middleware"
	"nciso/server/internal/modules"
)

// ThresholdsURI is the resource exposing the threshold table in effect.
const ThresholdsURI = "isms://thresholds"

// Module exposes ISMS operations as tools.
type Module struct {
	svc *ops.Service
}

// New creates the ISMS module over svc.
func New(svc *ops.Service) *Module {
	return &Module{svc: svc}
}

// Name returns the module name
func (m *Module) Name() string {
	return "isms"
}

var moduleDescriptions = modules.LocalizedText{
	"en-US": "n.CISO ISMS - Policies, controls, frameworks, evaluations and compliance reports of a tenant",
	"pt-BR": "n.CISO ISMS - Políticas, controles, frameworks, avaliações e relatórios de conformidade do tenant",
}

// Descriptions returns multilingual module descriptions
func (m *Module) Descriptions() modules.LocalizedText {
	return moduleDescriptions
}

// Description returns the module description (English)
func (m *Module) Description() string {
	return moduleDescriptions[modules.DefaultLanguage]
}

// APIVersion returns the ISMS module version
func (m *Module) APIVersion() string {
	return "v1"
}

// Tools returns all available tools
func (m *Module) Tools() []modules.Tool {
	return toolDefinitions
}

// ExecuteTool executes a tool by name and returns an encoded envelope.
func (m *Module) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	handler, ok := toolHandlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	if authCtx := middleware.GetAuthContext(ctx); authCtx != nil {
		tenantID, _ := params["tenant_id"].(string)
		if err := authCtx.CheckTenant(tenantID); err != nil {
			return modules.Fail(err.Error()).Encode(), nil
		}
	}
	env, err := handler(ctx, m.svc, params)
	if err != nil {
		return "", err
	}
	return env.Encode(), nil
}

// Resources returns the threshold table resource.
func (m *Module) Resources() []modules.Resource {
	return []modules.Resource{{
		URI:         ThresholdsURI,
		Name:        "thresholds",
		Description: "Score boundaries shared by effectiveness, gap and coverage reports",
		MimeType:    "application/json",
	}}
}

// ReadResource reads a resource by URI
func (m *Module) ReadResource(ctx context.Context, uri string) (string, error) {
	if uri != ThresholdsURI {
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
	b, err := json.Marshal(m.svc.Thresholds())
	if err != nil {
		return "", errors.Wrap(err, "encode thresholds")
	}
	return string(b), nil
}

// =============================================================================
// Handlers
// =============================================================================

type toolHandler func(ctx context.Context, svc *ops.Service, params map[string]any) (modules.Envelope, error)

func actorOf(ctx context.Context) ops.Actor {
	a := ops.Actor{RequestID: middleware.GetRequestID(ctx)}
	if authCtx := middleware.GetAuthContext(ctx); authCtx != nil {
		a.UserID = authCtx.UserID
	}
	return a
}

// failure turns an operation error into its envelope. Only encoding problems
// are returned as errors.
func failure(err error) (modules.Envelope, error) {
	if errors.Is(err, db.ErrNotConfigured) {
		return modules.Unconfigured(), nil
	}
	return modules.Fail(ops.Message(err)), nil
}

func decode[A any](params map[string]any) (A, error) {
	var args A
	if err := modules.DecodeParams(params, &args); err != nil {
		return args, err
	}
	return args, nil
}

func listTool[A, R any](call func(*ops.Service, context.Context, A) ([]R, error)) toolHandler {
	return func(ctx context.Context, svc *ops.Service, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Fail(err.Error()), nil
		}
		rows, err := call(svc, ctx, args)
		if err != nil {
			return failure(err)
		}
		return modules.List(rows)
	}
}

func getTool[A, R any](call func(*ops.Service, context.Context, A) (R, error)) toolHandler {
	return func(ctx context.Context, svc *ops.Service, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Fail(err.Error()), nil
		}
		v, err := call(svc, ctx, args)
		if err != nil {
			return failure(err)
		}
		return modules.OK(v)
	}
}

func writeTool[A, R any](call func(*ops.Service, context.Context, ops.Actor, A) (R, error)) toolHandler {
	return func(ctx context.Context, svc *ops.Service, params map[string]any) (modules.Envelope, error) {
		args, err := decode[A](params)
		if err != nil {
			return modules.Fail(err.Error()), nil
		}
		v, err := call(svc, ctx, actorOf(ctx), args)
		if err != nil {
			return failure(err)
		}
		return modules.OK(v)
	}
}

func healthCheck(ctx context.Context, svc *ops.Service, _ map[string]any) (modules.Envelope, error) {
	return modules.OK(svc.HealthCheck(ctx))
}

var toolHandlers = map[string]toolHandler{
	"health_check": healthCheck,

	"list_policies": listTool((*ops.Service).ListPolicies),
	"get_policy":    getTool((*ops.Service).GetPolicy),
	"create_policy": writeTool((*ops.Service).CreatePolicy),
	"update_policy": writeTool((*ops.Service).UpdatePolicy),
	"delete_policy": writeTool((*ops.Service).DeletePolicy),

	"list_controls":  listTool((*ops.Service).ListControls),
	"create_control": writeTool((*ops.Service).CreateControl),
	"update_control": writeTool((*ops.Service).UpdateControl),

	"list_domains":  listTool((*ops.Service).ListDomains),
	"create_domain": writeTool((*ops.Service).CreateDomain),

	"list_frameworks":    listTool((*ops.Service).ListFrameworks),
	"import_framework":   writeTool((*ops.Service).ImportFramework),
	"map_control":        writeTool((*ops.Service).MapControl),
	"list_crosswalks":    listTool((*ops.Service).ListCrosswalks),
	"create_crosswalk":   writeTool((*ops.Service).CreateCrosswalk),
	"suggest_crosswalks": listTool((*ops.Service).SuggestCrosswalks),

	"list_technical_documents":  listTool((*ops.Service).ListTechnicalDocuments),
	"create_technical_document": writeTool((*ops.Service).CreateTechnicalDocument),
	"list_external_documents":   listTool((*ops.Service).ListExternalDocuments),
	"ingest_external_document":  writeTool((*ops.Service).IngestExternalDocument),
	"get_document_download_url": getTool((*ops.Service).DocumentDownloadURL),

	"list_credentials_registry":   listTool((*ops.Service).ListCredentials),
	"create_credentials_registry": writeTool((*ops.Service).CreateCredential),
	"approve_credential":          writeTool((*ops.Service).ApproveCredential),

	"list_privileged_access":         listTool((*ops.Service).ListPrivilegedAccess),
	"create_privileged_access":       writeTool((*ops.Service).CreatePrivilegedAccess),
	"update_privileged_access_audit": writeTool((*ops.Service).UpdatePrivilegedAccessAudit),

	"list_evaluations":  listTool((*ops.Service).ListEvaluations),
	"get_evaluation":    getTool((*ops.Service).GetEvaluation),
	"create_evaluation": writeTool((*ops.Service).CreateEvaluation),
	"update_evaluation": writeTool((*ops.Service).UpdateEvaluation),
	"delete_evaluation": writeTool((*ops.Service).DeleteEvaluation),
	"evaluation_stats":  getTool((*ops.Service).EvaluationStats),
	"low_effectiveness": listTool((*ops.Service).LowEffectiveness),

	"generate_effectiveness_report": getTool((*ops.Service).EffectivenessReport),
	"effectiveness_report":          getTool((*ops.Service).EffectivenessReport),
	"simulate_gap_report":           getTool((*ops.Service).SimulateGapReport),
	"coverage_dashboard":            getTool((*ops.Service).CoverageDashboard),

	"list_audit_logs": listTool((*ops.Service).ListAuditLogs),
}
