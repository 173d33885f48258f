package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewJSON marshals v into a JSON column value. Marshal failures yield an empty object.
func NewJSON(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// Enumerations. Values are validated by the operation layer, not by storage.
const (
	PolicyDraft    = "draft"
	PolicyActive   = "active"
	PolicyReview   = "review"
	PolicyArchived = "archived"

	ControlPreventive = "preventive"
	ControlDetective  = "detective"
	ControlCorrective = "corrective"
	ControlDeterrent  = "deterrent"

	StatusPlanned     = "planned"
	StatusImplemented = "implemented"
	StatusTested      = "tested"
	StatusOperational = "operational"

	RelationEquivalent     = "equivalent"
	RelationPartialOverlap = "partial_overlap"
	RelationRelated        = "related"
	RelationSuggested      = "suggested"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	AuditCompliant     = "compliant"
	AuditNonCompliant  = "non_compliant"
	AuditPendingReview = "pending_review"

	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"

	SourceUpload   = "upload"
	SourceExternal = "external"
)

// assignID gives a row a UUID primary key when the caller left it empty.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// --- Models ---

type Policy struct {
	ID          string                      `gorm:"primaryKey" json:"id"`
	TenantID    string                      `gorm:"not null;index" json:"tenant_id"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `json:"description"`
	Content     string                      `json:"content"`
	Version     string                      `gorm:"not null;default:'1.0'" json:"version"`
	Status      string                      `gorm:"not null;default:'draft'" json:"status"`
	Owner       string                      `json:"owner"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedBy   *string                     `json:"created_by,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (Policy) TableName() string { return "policies" }

func (p *Policy) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }

type Control struct {
	ID                   string    `gorm:"primaryKey" json:"id"`
	TenantID             string    `gorm:"not null;index" json:"tenant_id"`
	Name                 string    `gorm:"not null" json:"name"`
	Description          string    `json:"description"`
	ControlType          string    `json:"control_type"`
	ImplementationStatus string    `gorm:"not null;default:'planned'" json:"implementation_status"`
	EffectivenessScore   *float64  `json:"effectiveness_score"`
	PolicyID             *string   `json:"policy_id,omitempty"`
	DomainID             *string   `gorm:"index" json:"domain_id,omitempty"`
	Owner                string    `json:"owner"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Control) TableName() string { return "controls" }

func (c *Control) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

type Domain struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	TenantID      string    `gorm:"not null;index" json:"tenant_id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   string    `json:"description"`
	ParentID      *string   `json:"parent_id,omitempty"`
	Level         int       `gorm:"not null;default:0" json:"level"`
	ControlsCount int       `gorm:"not null;default:0" json:"controls_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Domain) TableName() string { return "domains" }

func (d *Domain) BeforeCreate(*gorm.DB) error { assignID(&d.ID); return nil }

type Framework struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	TenantID      string    `gorm:"not null;index" json:"tenant_id"`
	Name          string    `gorm:"not null" json:"name"`
	Version       string    `json:"version"`
	Description   string    `json:"description"`
	ControlsCount int       `gorm:"not null;default:0" json:"controls_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Framework) TableName() string { return "frameworks" }

func (f *Framework) BeforeCreate(*gorm.DB) error { assignID(&f.ID); return nil }

// FrameworkControl is one entry of a framework's expected-control catalog.
type FrameworkControl struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	TenantID    string    `gorm:"not null;index" json:"tenant_id"`
	FrameworkID string    `gorm:"not null;index" json:"framework_id"`
	Code        string    `gorm:"not null" json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `gorm:"not null;default:'medium'" json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

func (FrameworkControl) TableName() string { return "framework_controls" }

func (f *FrameworkControl) BeforeCreate(*gorm.DB) error { assignID(&f.ID); return nil }

// ControlFramework maps a tenant control onto a framework catalog entry.
type ControlFramework struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	TenantID           string    `gorm:"not null;index" json:"tenant_id"`
	ControlID          string    `gorm:"not null;index" json:"control_id"`
	FrameworkID        string    `gorm:"not null;index" json:"framework_id"`
	FrameworkControlID string    `gorm:"not null" json:"framework_control_id"`
	CreatedAt          time.Time `json:"created_at"`
}

func (ControlFramework) TableName() string { return "control_frameworks" }

func (c *ControlFramework) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

type FrameworkCrosswalk struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	TenantID          string    `gorm:"not null;index" json:"tenant_id"`
	SourceControlID   string    `gorm:"not null" json:"source_control_id"`
	TargetControlID   string    `gorm:"not null" json:"target_control_id"`
	SourceFrameworkID string    `gorm:"not null" json:"source_framework_id"`
	TargetFrameworkID string    `gorm:"not null" json:"target_framework_id"`
	RelationType      string    `gorm:"not null" json:"relation_type"`
	ConfidenceScore   float64   `gorm:"not null;default:0" json:"confidence_score"`
	Notes             string    `json:"notes"`
	IsAIGenerated     bool      `gorm:"column:is_ai_generated;not null;default:false" json:"is_ai_generated"`
	CreatedAt         time.Time `json:"created_at"`
}

func (FrameworkCrosswalk) TableName() string { return "framework_crosswalks" }

func (f *FrameworkCrosswalk) BeforeCreate(*gorm.DB) error { assignID(&f.ID); return nil }

// ControlEffectiveness is one assessment event for a control.
type ControlEffectiveness struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	TenantID       string    `gorm:"not null;index" json:"tenant_id"`
	ControlID      string    `gorm:"not null;index" json:"control_id"`
	Score          float64   `gorm:"not null" json:"score"`
	Comment        string    `json:"comment"`
	Assessor       string    `json:"assessor"`
	EvaluationDate time.Time `json:"evaluation_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ControlEffectiveness) TableName() string { return "control_effectiveness" }

func (c *ControlEffectiveness) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

type CredentialsRegistry struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	TenantID       string     `gorm:"not null;index" json:"tenant_id"`
	AssetID        *string    `json:"asset_id,omitempty"`
	UserID         *string    `json:"user_id,omitempty"`
	TeamID         *string    `json:"team_id,omitempty"`
	AccessType     string     `gorm:"not null" json:"access_type"`
	AccessLevel    string     `json:"access_level"`
	Justification  string     `json:"justification"`
	ValidFrom      time.Time  `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	ApprovalStatus string     `gorm:"not null;default:'pending'" json:"approval_status"`
	ApprovedBy     *string    `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedBy      *string    `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (CredentialsRegistry) TableName() string { return "credentials_registry" }

func (c *CredentialsRegistry) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

// ActiveAt reports whether the grant is usable at the given instant.
func (c CredentialsRegistry) ActiveAt(now time.Time) bool {
	return activeWindow(c.IsActive, c.ValidFrom, c.ValidUntil, now)
}

type PrivilegedAccess struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	TenantID      string     `gorm:"not null;index" json:"tenant_id"`
	UserID        string     `gorm:"not null" json:"user_id"`
	ScopeID       *string    `json:"scope_id,omitempty"`
	AssetID       *string    `json:"asset_id,omitempty"`
	AccessLevel   string     `gorm:"not null" json:"access_level"`
	Justification string     `json:"justification"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	ApprovedBy    *string    `json:"approved_by,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	AuditStatus   string     `gorm:"not null;default:'pending_review'" json:"audit_status"`
	AuditNotes    string     `json:"audit_notes"`
	LastAuditAt   *time.Time `json:"last_audit_at,omitempty"`
	LastAuditBy   *string    `json:"last_audit_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (PrivilegedAccess) TableName() string { return "privileged_access" }

func (p *PrivilegedAccess) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }

// ActiveAt reports whether the grant is usable at the given instant.
func (p PrivilegedAccess) ActiveAt(now time.Time) bool {
	return activeWindow(p.IsActive, p.ValidFrom, p.ValidUntil, now)
}

func activeWindow(active bool, from time.Time, until *time.Time, now time.Time) bool {
	if !active {
		return false
	}
	if !from.IsZero() && now.Before(from) {
		return false
	}
	if until != nil && !now.Before(*until) {
		return false
	}
	return true
}

type TechnicalDocument struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	TenantID     string         `gorm:"not null;index" json:"tenant_id"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `json:"description"`
	DocumentType string         `json:"document_type"`
	Version      string         `json:"version"`
	FilePath     string         `json:"file_path"`
	FileSize     int64          `json:"file_size"`
	FileType     string         `json:"file_type"`
	ScopeID      *string        `json:"scope_id,omitempty"`
	AssetID      *string        `json:"asset_id,omitempty"`
	ControlID    *string        `json:"control_id,omitempty"`
	Source       string         `gorm:"not null;default:'upload'" json:"source"`
	SourceURL    string         `json:"source_url,omitempty"`
	Metadata     datatypes.JSON `json:"metadata"`
	CreatedBy    *string        `json:"created_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (TechnicalDocument) TableName() string { return "technical_documents" }

func (d *TechnicalDocument) BeforeCreate(*gorm.DB) error { assignID(&d.ID); return nil }

type AuditLog struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	TenantID   string         `gorm:"not null;index" json:"tenant_id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Action     string         `gorm:"not null" json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    datatypes.JSON `json:"payload"`
	RequestID  *string        `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(*gorm.DB) error { assignID(&a.ID); return nil }

// TenantMember binds an auth-provider user to a tenant with an ISMS role.
type TenantMember struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	TenantID  string    `gorm:"primaryKey" json:"tenant_id"`
	Role      string    `gorm:"not null;default:'viewer'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (TenantMember) TableName() string { return "tenant_members" }

// AllModels lists every table this server reads or writes, for AutoMigrate.
func AllModels() []any {
	return []any{
		&Policy{}, &Control{}, &Domain{}, &Framework{}, &FrameworkControl{},
		&ControlFramework{}, &FrameworkCrosswalk{}, &ControlEffectiveness{},
		&CredentialsRegistry{}, &PrivilegedAccess{}, &TechnicalDocument{},
		&AuditLog{}, &TenantMember{},
	}
}
