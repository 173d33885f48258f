package isms

import "nciso/server/internal/modules"

// Shared properties
var (
	tenantProp = modules.Property{Type: "string", Description: "Tenant UUID"}
	idProp     = modules.Property{Type: "string", Description: "Record UUID"}
	limitProp  = modules.Property{Type: "integer", Description: "Maximum rows to return. Default: 50, Max: 500", Minimum: modules.Bound(1), Maximum: modules.Bound(500)}
	scoreProp  = modules.Property{Type: "number", Description: "Score from 0 to 100", Minimum: modules.Bound(0), Maximum: modules.Bound(100)}

	policyStatusProp  = modules.Property{Type: "string", Description: "Policy status", Enum: []string{"draft", "active", "review", "archived"}}
	controlTypeProp   = modules.Property{Type: "string", Description: "Control type", Enum: []string{"preventive", "detective", "corrective", "deterrent"}}
	implStatusProp    = modules.Property{Type: "string", Description: "Implementation status", Enum: []string{"planned", "implemented", "tested", "operational"}}
	relationTypeProp  = modules.Property{Type: "string", Description: "Crosswalk relation", Enum: []string{"equivalent", "partial_overlap", "related", "suggested"}}
	auditStatusProp   = modules.Property{Type: "string", Description: "Access review outcome", Enum: []string{"compliant", "non_compliant", "pending_review"}}
	activeOnlyProp    = modules.Property{Type: "boolean", Description: "Only grants whose validity window contains now"}
	validFromProp     = modules.Property{Type: "string", Description: "Start of validity (RFC 3339). Default: now"}
	validUntilProp    = modules.Property{Type: "string", Description: "End of validity (RFC 3339). Open-ended when absent"}
	frameworkIDProp   = modules.Property{Type: "string", Description: "Framework UUID"}
	controlIDProp     = modules.Property{Type: "string", Description: "Control UUID"}
	documentTypeProp  = modules.Property{Type: "string", Description: "Document type (e.g. procedure, evidence, diagram)"}
	metadataProp      = modules.Property{Type: "object", Description: "Free-form metadata"}
	catalogEntryProps = map[string]modules.Property{
		"code":        {Type: "string", Description: "Control code within the framework (e.g. A.5.1)"},
		"title":       {Type: "string", Description: "Control title"},
		"description": {Type: "string", Description: "Control text"},
		"priority":    {Type: "string", Description: "Priority", Enum: []string{"critical", "high", "medium", "low"}},
	}
)

func tenantOnly() modules.InputSchema {
	return modules.InputSchema{
		Type:       "object",
		Properties: map[string]modules.Property{"tenant_id": tenantProp},
		Required:   []string{"tenant_id"},
	}
}

func byID() modules.InputSchema {
	return modules.InputSchema{
		Type:       "object",
		Properties: map[string]modules.Property{"tenant_id": tenantProp, "id": idProp},
		Required:   []string{"tenant_id", "id"},
	}
}

var effectivenessReportSchema = modules.InputSchema{
	Type: "object",
	Properties: map[string]modules.Property{
		"tenant_id":    tenantProp,
		"domain_id":    {Type: "string", Description: "Restrict to one domain"},
		"control_type": controlTypeProp,
	},
	Required: []string{"tenant_id"},
}

// =============================================================================
// Tool Definitions
// =============================================================================

var toolDefinitions = []modules.Tool{
	{
		ID:   "isms:health_check",
		Name: "health_check",
		Descriptions: modules.LocalizedText{
			"en-US": "Check that the ISMS store is reachable.",
			"pt-BR": "Verifica se o banco do ISMS está acessível.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{Type: "object", Properties: map[string]modules.Property{}},
	},
	// Policies
	{
		ID:   "isms:list_policies",
		Name: "list_policies",
		Descriptions: modules.LocalizedText{
			"en-US": "List security policies of the tenant, newest first.",
			"pt-BR": "Lista as políticas de segurança do tenant, mais recentes primeiro.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id": tenantProp,
				"limit":     limitProp,
				"status":    policyStatusProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:get_policy",
		Name: "get_policy",
		Descriptions: modules.LocalizedText{
			"en-US": "Get one policy by id.",
			"pt-BR": "Obtém uma política pelo id.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: byID(),
	},
	{
		ID:   "isms:create_policy",
		Name: "create_policy",
		Descriptions: modules.LocalizedText{
			"en-US": "Create a security policy. Defaults: version 1.0, status draft.",
			"pt-BR": "Cria uma política de segurança. Padrões: versão 1.0, status draft.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"title":       {Type: "string", Description: "Policy title"},
				"description": {Type: "string", Description: "Short summary"},
				"content":     {Type: "string", Description: "Full policy text (Markdown)"},
				"version":     {Type: "string", Description: "Version label. Default: 1.0"},
				"status":      policyStatusProp,
				"owner":       {Type: "string", Description: "Responsible person or team"},
				"tags":        {Type: "array", Description: "Tags", Items: &modules.Property{Type: "string"}},
			},
			Required: []string{"tenant_id", "title"},
		},
	},
	{
		ID:   "isms:update_policy",
		Name: "update_policy",
		Descriptions: modules.LocalizedText{
			"en-US": "Update fields of a policy. Only the given fields change.",
			"pt-BR": "Atualiza campos de uma política. Somente os campos informados mudam.",
		},
		Annotations: modules.AnnotateUpdate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"id":          idProp,
				"title":       {Type: "string", Description: "Policy title"},
				"description": {Type: "string", Description: "Short summary"},
				"content":     {Type: "string", Description: "Full policy text (Markdown)"},
				"version":     {Type: "string", Description: "Version label"},
				"status":      policyStatusProp,
				"owner":       {Type: "string", Description: "Responsible person or team"},
				"tags":        {Type: "array", Description: "Replaces all tags", Items: &modules.Property{Type: "string"}},
			},
			Required: []string{"tenant_id", "id"},
		},
	},
	{
		ID:   "isms:delete_policy",
		Name: "delete_policy",
		Descriptions: modules.LocalizedText{
			"en-US": "Delete a policy.",
			"pt-BR": "Exclui uma política.",
		},
		Annotations: modules.AnnotateDelete,
		InputSchema: byID(),
	},
	// Controls
	{
		ID:   "isms:list_controls",
		Name: "list_controls",
		Descriptions: modules.LocalizedText{
			"en-US": "List security controls, newest first. Filter by domain, type or implementation status.",
			"pt-BR": "Lista os controles de segurança, mais recentes primeiro. Filtra por domínio, tipo ou status de implementação.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":             tenantProp,
				"limit":                 limitProp,
				"domain_id":             {Type: "string", Description: "Domain UUID"},
				"control_type":          controlTypeProp,
				"implementation_status": implStatusProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_control",
		Name: "create_control",
		Descriptions: modules.LocalizedText{
			"en-US": "Create a security control. Default implementation status: planned.",
			"pt-BR": "Cria um controle de segurança. Status de implementação padrão: planned.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":             tenantProp,
				"name":                  {Type: "string", Description: "Control name"},
				"description":           {Type: "string", Description: "What the control does"},
				"control_type":          controlTypeProp,
				"implementation_status": implStatusProp,
				"effectiveness_score":   scoreProp,
				"policy_id":             {Type: "string", Description: "Policy UUID the control enforces"},
				"domain_id":             {Type: "string", Description: "Domain UUID"},
				"owner":                 {Type: "string", Description: "Responsible person or team"},
			},
			Required: []string{"tenant_id", "name"},
		},
	},
	{
		ID:   "isms:update_control",
		Name: "update_control",
		Descriptions: modules.LocalizedText{
			"en-US": "Update fields of a control. Only the given fields change.",
			"pt-BR": "Atualiza campos de um controle. Somente os campos informados mudam.",
		},
		Annotations: modules.AnnotateUpdate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":             tenantProp,
				"id":                    idProp,
				"name":                  {Type: "string", Description: "Control name"},
				"description":           {Type: "string", Description: "What the control does"},
				"control_type":          controlTypeProp,
				"implementation_status": implStatusProp,
				"effectiveness_score":   scoreProp,
				"policy_id":             {Type: "string", Description: "Policy UUID"},
				"owner":                 {Type: "string", Description: "Responsible person or team"},
			},
			Required: []string{"tenant_id", "id"},
		},
	},
	// Domains
	{
		ID:   "isms:list_domains",
		Name: "list_domains",
		Descriptions: modules.LocalizedText{
			"en-US": "List ISMS domains. Filter by parent or roots only.",
			"pt-BR": "Lista os domínios do ISMS. Filtra por pai ou somente raízes.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":  tenantProp,
				"limit":      limitProp,
				"parent_id":  {Type: "string", Description: "Parent domain UUID"},
				"roots_only": {Type: "boolean", Description: "Only top-level domains"},
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_domain",
		Name: "create_domain",
		Descriptions: modules.LocalizedText{
			"en-US": "Create a domain. The level is derived from the parent.",
			"pt-BR": "Cria um domínio. O nível é derivado do pai.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"name":        {Type: "string", Description: "Domain name"},
				"description": {Type: "string", Description: "Domain description"},
				"parent_id":   {Type: "string", Description: "Parent domain UUID in the same tenant"},
			},
			Required: []string{"tenant_id", "name"},
		},
	},
	// Frameworks
	{
		ID:   "isms:list_frameworks",
		Name: "list_frameworks",
		Descriptions: modules.LocalizedText{
			"en-US": "List compliance frameworks imported by the tenant.",
			"pt-BR": "Lista os frameworks de conformidade importados pelo tenant.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type:       "object",
			Properties: map[string]modules.Property{"tenant_id": tenantProp, "limit": limitProp},
			Required:   []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:import_framework",
		Name: "import_framework",
		Descriptions: modules.LocalizedText{
			"en-US": "Import a framework with its control catalog in a single transaction.",
			"pt-BR": "Importa um framework com seu catálogo de controles em uma única transação.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"name":        {Type: "string", Description: "Framework name (e.g. ISO/IEC 27001)"},
				"version":     {Type: "string", Description: "Framework version (e.g. 2022)"},
				"description": {Type: "string", Description: "Framework description"},
				"controls": {
					Type:        "array",
					Description: "Expected controls (1 to 2000)",
					Items:       &modules.Property{Type: "object", Properties: catalogEntryProps},
				},
			},
			Required: []string{"tenant_id", "name", "controls"},
		},
	},
	{
		ID:   "isms:map_control",
		Name: "map_control",
		Descriptions: modules.LocalizedText{
			"en-US": "Map a tenant control to a control of a framework catalog.",
			"pt-BR": "Mapeia um controle do tenant para um controle do catálogo de um framework.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":            tenantProp,
				"control_id":           controlIDProp,
				"framework_id":         frameworkIDProp,
				"framework_control_id": {Type: "string", Description: "Catalog entry UUID"},
			},
			Required: []string{"tenant_id", "control_id", "framework_id", "framework_control_id"},
		},
	},
	{
		ID:   "isms:list_crosswalks",
		Name: "list_crosswalks",
		Descriptions: modules.LocalizedText{
			"en-US": "List control crosswalks between frameworks.",
			"pt-BR": "Lista os crosswalks de controles entre frameworks.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":           tenantProp,
				"limit":               limitProp,
				"source_framework_id": frameworkIDProp,
				"target_framework_id": frameworkIDProp,
				"relation_type":       relationTypeProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_crosswalk",
		Name: "create_crosswalk",
		Descriptions: modules.LocalizedText{
			"en-US": "Record a crosswalk between two catalog controls.",
			"pt-BR": "Registra um crosswalk entre dois controles de catálogo.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":           tenantProp,
				"source_control_id":   {Type: "string", Description: "Source catalog control UUID"},
				"target_control_id":   {Type: "string", Description: "Target catalog control UUID"},
				"source_framework_id": frameworkIDProp,
				"target_framework_id": frameworkIDProp,
				"relation_type":       relationTypeProp,
				"confidence_score":    {Type: "number", Description: "Confidence from 0 to 1", Minimum: modules.Bound(0), Maximum: modules.Bound(1)},
				"notes":               {Type: "string", Description: "Reviewer notes"},
				"is_ai_generated":     {Type: "boolean", Description: "Whether the mapping was suggested automatically"},
			},
			Required: []string{"tenant_id", "source_control_id", "target_control_id", "source_framework_id", "target_framework_id", "relation_type"},
		},
	},
	{
		ID:   "isms:suggest_crosswalks",
		Name: "suggest_crosswalks",
		Descriptions: modules.LocalizedText{
			"en-US": "Suggest crosswalks between two frameworks by word overlap of control titles. Nothing is saved.",
			"pt-BR": "Sugere crosswalks entre dois frameworks pela sobreposição de palavras dos títulos. Nada é salvo.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":           tenantProp,
				"source_framework_id": frameworkIDProp,
				"target_framework_id": frameworkIDProp,
				"min_confidence":      {Type: "number", Description: "Minimum overlap from 0 to 1. Default: 0.3", Minimum: modules.Bound(0), Maximum: modules.Bound(1)},
				"limit":               limitProp,
			},
			Required: []string{"tenant_id", "source_framework_id", "target_framework_id"},
		},
	},
	// Documents
	{
		ID:   "isms:list_technical_documents",
		Name: "list_technical_documents",
		Descriptions: modules.LocalizedText{
			"en-US": "List technical documents of the tenant.",
			"pt-BR": "Lista os documentos técnicos do tenant.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"limit":         limitProp,
				"document_type": documentTypeProp,
				"control_id":    controlIDProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_technical_document",
		Name: "create_technical_document",
		Descriptions: modules.LocalizedText{
			"en-US": "Register a technical document already stored in the bucket.",
			"pt-BR": "Registra um documento técnico já armazenado no bucket.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"title":         {Type: "string", Description: "Document title"},
				"description":   {Type: "string", Description: "Document summary"},
				"document_type": documentTypeProp,
				"version":       {Type: "string", Description: "Document version"},
				"file_path":     {Type: "string", Description: "Object path in storage, under <tenant_id>/"},
				"file_size":     {Type: "integer", Description: "Size in bytes", Minimum: modules.Bound(0)},
				"file_type":     {Type: "string", Description: "MIME type"},
				"scope_id":      {Type: "string", Description: "Scope UUID"},
				"asset_id":      {Type: "string", Description: "Asset UUID"},
				"control_id":    controlIDProp,
				"metadata":      metadataProp,
			},
			Required: []string{"tenant_id", "title"},
		},
	},
	{
		ID:   "isms:list_external_documents",
		Name: "list_external_documents",
		Descriptions: modules.LocalizedText{
			"en-US": "List documents ingested from external sources.",
			"pt-BR": "Lista os documentos ingeridos de fontes externas.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"limit":         limitProp,
				"document_type": documentTypeProp,
				"control_id":    controlIDProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:ingest_external_document",
		Name: "ingest_external_document",
		Descriptions: modules.LocalizedText{
			"en-US": "Ingest an external document by URL or inline content. Content is uploaded to storage when configured.",
			"pt-BR": "Ingere um documento externo por URL ou conteúdo. O conteúdo é enviado ao storage quando configurado.",
		},
		Annotations: modules.AnnotateExternal,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"title":         {Type: "string", Description: "Document title"},
				"source_url":    {Type: "string", Description: "Where the document lives. Required without content"},
				"content":       {Type: "string", Description: "Document body. Required without source_url"},
				"content_type":  {Type: "string", Description: "MIME type of content. Default: text/plain"},
				"document_type": documentTypeProp,
				"control_id":    controlIDProp,
				"metadata":      metadataProp,
			},
			Required: []string{"tenant_id", "title"},
		},
	},
	{
		ID:   "isms:get_document_download_url",
		Name: "get_document_download_url",
		Descriptions: modules.LocalizedText{
			"en-US": "Get a time-limited download link for a document stored in object storage.",
			"pt-BR": "Gera um link temporário de download para um documento armazenado no storage.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":  tenantProp,
				"id":         idProp,
				"expires_in": {Type: "integer", Description: "Link lifetime in seconds. Default: 3600", Minimum: modules.Bound(60), Maximum: modules.Bound(86400)},
			},
			Required: []string{"tenant_id", "id"},
		},
	},
	// Credentials and privileged access
	{
		ID:   "isms:list_credentials_registry",
		Name: "list_credentials_registry",
		Descriptions: modules.LocalizedText{
			"en-US": "List access credential grants.",
			"pt-BR": "Lista as concessões de credenciais de acesso.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"limit":       limitProp,
				"user_id":     {Type: "string", Description: "Grantee UUID"},
				"status":      {Type: "string", Description: "Approval status", Enum: []string{"pending", "approved", "rejected"}},
				"active_only": activeOnlyProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_credentials_registry",
		Name: "create_credentials_registry",
		Descriptions: modules.LocalizedText{
			"en-US": "Request an access credential. It starts pending approval.",
			"pt-BR": "Solicita uma credencial de acesso. Ela começa pendente de aprovação.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"access_type":   {Type: "string", Description: "Kind of access (e.g. vpn, database, admin_console)"},
				"access_level":  {Type: "string", Description: "Level granted (e.g. read, write, admin)"},
				"asset_id":      {Type: "string", Description: "Asset UUID"},
				"user_id":       {Type: "string", Description: "Grantee user UUID"},
				"team_id":       {Type: "string", Description: "Grantee team UUID"},
				"justification": {Type: "string", Description: "Business reason"},
				"valid_from":    validFromProp,
				"valid_until":   validUntilProp,
			},
			Required: []string{"tenant_id", "access_type"},
		},
	},
	{
		ID:   "isms:approve_credential",
		Name: "approve_credential",
		Descriptions: modules.LocalizedText{
			"en-US": "Approve or reject a credential request. Default decision: approved.",
			"pt-BR": "Aprova ou rejeita uma solicitação de credencial. Decisão padrão: approved.",
		},
		Annotations: modules.AnnotateUpdate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id": tenantProp,
				"id":        idProp,
				"decision":  {Type: "string", Description: "Decision", Enum: []string{"approved", "rejected"}},
			},
			Required: []string{"tenant_id", "id"},
		},
	},
	{
		ID:   "isms:list_privileged_access",
		Name: "list_privileged_access",
		Descriptions: modules.LocalizedText{
			"en-US": "List privileged access grants and their review status.",
			"pt-BR": "Lista os acessos privilegiados e o status de revisão.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"limit":       limitProp,
				"user_id":     {Type: "string", Description: "User UUID"},
				"status":      auditStatusProp,
				"active_only": activeOnlyProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:create_privileged_access",
		Name: "create_privileged_access",
		Descriptions: modules.LocalizedText{
			"en-US": "Register privileged access for a user. It starts pending review.",
			"pt-BR": "Registra um acesso privilegiado de um usuário. Ele começa pendente de revisão.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":     tenantProp,
				"user_id":       {Type: "string", Description: "User UUID"},
				"access_level":  {Type: "string", Description: "Privilege level (e.g. root, domain_admin)"},
				"scope_id":      {Type: "string", Description: "Scope UUID"},
				"asset_id":      {Type: "string", Description: "Asset UUID"},
				"justification": {Type: "string", Description: "Business reason"},
				"valid_from":    validFromProp,
				"valid_until":   validUntilProp,
			},
			Required: []string{"tenant_id", "user_id", "access_level"},
		},
	},
	{
		ID:   "isms:update_privileged_access_audit",
		Name: "update_privileged_access_audit",
		Descriptions: modules.LocalizedText{
			"en-US": "Record the outcome of a privileged access review.",
			"pt-BR": "Registra o resultado da revisão de um acesso privilegiado.",
		},
		Annotations: modules.AnnotateUpdate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":    tenantProp,
				"id":           idProp,
				"audit_status": auditStatusProp,
				"audit_notes":  {Type: "string", Description: "Reviewer notes"},
			},
			Required: []string{"tenant_id", "id", "audit_status"},
		},
	},
	// Evaluations
	{
		ID:   "isms:list_evaluations",
		Name: "list_evaluations",
		Descriptions: modules.LocalizedText{
			"en-US": "List control effectiveness evaluations, newest first.",
			"pt-BR": "Lista as avaliações de efetividade de controles, mais recentes primeiro.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":  tenantProp,
				"limit":      limitProp,
				"control_id": controlIDProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	{
		ID:   "isms:get_evaluation",
		Name: "get_evaluation",
		Descriptions: modules.LocalizedText{
			"en-US": "Get one evaluation by id.",
			"pt-BR": "Obtém uma avaliação pelo id.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: byID(),
	},
	{
		ID:   "isms:create_evaluation",
		Name: "create_evaluation",
		Descriptions: modules.LocalizedText{
			"en-US": "Record an effectiveness evaluation of a control.",
			"pt-BR": "Registra uma avaliação de efetividade de um controle.",
		},
		Annotations: modules.AnnotateCreate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":       tenantProp,
				"control_id":      controlIDProp,
				"score":           scoreProp,
				"comment":         {Type: "string", Description: "Assessor comment"},
				"assessor":        {Type: "string", Description: "Assessor. Default: caller"},
				"evaluation_date": {Type: "string", Description: "Evaluation time (RFC 3339). Default: now"},
			},
			Required: []string{"tenant_id", "control_id", "score"},
		},
	},
	{
		ID:   "isms:update_evaluation",
		Name: "update_evaluation",
		Descriptions: modules.LocalizedText{
			"en-US": "Update fields of an evaluation.",
			"pt-BR": "Atualiza campos de uma avaliação.",
		},
		Annotations: modules.AnnotateUpdate,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":       tenantProp,
				"id":              idProp,
				"score":           scoreProp,
				"comment":         {Type: "string", Description: "Assessor comment"},
				"assessor":        {Type: "string", Description: "Assessor"},
				"evaluation_date": {Type: "string", Description: "Evaluation time (RFC 3339)"},
			},
			Required: []string{"tenant_id", "id"},
		},
	},
	{
		ID:   "isms:delete_evaluation",
		Name: "delete_evaluation",
		Descriptions: modules.LocalizedText{
			"en-US": "Delete an evaluation.",
			"pt-BR": "Exclui uma avaliação.",
		},
		Annotations: modules.AnnotateDelete,
		InputSchema: byID(),
	},
	{
		ID:   "isms:evaluation_stats",
		Name: "evaluation_stats",
		Descriptions: modules.LocalizedText{
			"en-US": "Aggregate evaluations: totals, overall average and per-control averages.",
			"pt-BR": "Agrega as avaliações: totais, média geral e médias por controle.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: tenantOnly(),
	},
	{
		ID:   "isms:low_effectiveness",
		Name: "low_effectiveness",
		Descriptions: modules.LocalizedText{
			"en-US": "List controls whose average evaluation is below min_score (default: configured threshold).",
			"pt-BR": "Lista controles cuja média de avaliação está abaixo de min_score (padrão: limiar configurado).",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id": tenantProp,
				"min_score": scoreProp,
			},
			Required: []string{"tenant_id"},
		},
	},
	// Reports
	{
		ID:   "isms:generate_effectiveness_report",
		Name: "generate_effectiveness_report",
		Descriptions: modules.LocalizedText{
			"en-US": "Summarize control implementation and effectiveness scores.",
			"pt-BR": "Resume a implementação e as notas de efetividade dos controles.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: effectivenessReportSchema,
	},
	{
		ID:   "isms:effectiveness_report",
		Name: "effectiveness_report",
		Descriptions: modules.LocalizedText{
			"en-US": "Alias of generate_effectiveness_report.",
			"pt-BR": "Alias de generate_effectiveness_report.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: effectivenessReportSchema,
	},
	{
		ID:   "isms:simulate_gap_report",
		Name: "simulate_gap_report",
		Descriptions: modules.LocalizedText{
			"en-US": "Compare a framework catalog with mapped controls and classify compliance.",
			"pt-BR": "Compara o catálogo de um framework com os controles mapeados e classifica a conformidade.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type:       "object",
			Properties: map[string]modules.Property{"tenant_id": tenantProp, "framework_id": frameworkIDProp},
			Required:   []string{"tenant_id", "framework_id"},
		},
	},
	{
		ID:   "isms:coverage_dashboard",
		Name: "coverage_dashboard",
		Descriptions: modules.LocalizedText{
			"en-US": "Coverage of every framework with rankings and insights.",
			"pt-BR": "Cobertura de todos os frameworks com rankings e insights.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: tenantOnly(),
	},
	// Audit
	{
		ID:   "isms:list_audit_logs",
		Name: "list_audit_logs",
		Descriptions: modules.LocalizedText{
			"en-US": "List the audit trail of write operations.",
			"pt-BR": "Lista a trilha de auditoria das operações de escrita.",
		},
		Annotations: modules.AnnotateReadOnly,
		InputSchema: modules.InputSchema{
			Type: "object",
			Properties: map[string]modules.Property{
				"tenant_id":   tenantProp,
				"limit":       limitProp,
				"action":      {Type: "string", Description: "Operation name (e.g. create_policy)"},
				"entity_type": {Type: "string", Description: "Entity type (e.g. policy)"},
				"actor_id":    {Type: "string", Description: "Actor user UUID"},
			},
			Required: []string{"tenant_id"},
		},
	},
}
