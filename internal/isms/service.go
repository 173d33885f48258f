// Package isms implements the ISMS operations shared by the tool and REST
// surfaces. Every operation validates its arguments before touching the
// store, runs through a tenant-scoped client and records an audit row after
// a successful write.
package isms

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nciso/server/internal/db"
	"nciso/server/internal/observability"
	"nciso/server/internal/reports"
)

// ObjectStore keeps document bodies in object storage.
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, body []byte) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Actor identifies who performs an operation, for the audit trail.
type Actor struct {
	UserID    string
	RequestID string
}

// TenantArgs is embedded by every argument struct.
type TenantArgs struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
}

func (a TenantArgs) tenant() string { return a.TenantID }

type tenantScoped interface {
	tenant() string
}

// IDArgs addresses one row.
type IDArgs struct {
	TenantArgs
	ID string `json:"id" validate:"required,uuid"`
}

// Service runs ISMS operations over a store handle. A nil handle leaves the
// service unconfigured: every operation then fails with db.ErrNotConfigured
// after argument validation.
type Service struct {
	db         *gorm.DB
	objects    ObjectStore
	thresholds func() reports.Thresholds
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithObjectStore enables uploads for ingested documents.
func WithObjectStore(o ObjectStore) Option {
	return func(s *Service) { s.objects = o }
}

// WithThresholds sets the threshold table source. It is read on every report.
func WithThresholds(f func() reports.Thresholds) Option {
	return func(s *Service) { s.thresholds = f }
}

func New(gdb *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:         gdb,
		thresholds: reports.DefaultThresholds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a store handle is present.
func (s *Service) Configured() bool {
	return s != nil && s.db != nil
}

// Thresholds returns the table currently in effect.
func (s *Service) Thresholds() reports.Thresholds {
	return s.thresholds()
}

// begin validates args and opens the tenant client. Validation runs first so
// malformed calls are rejected even without a store.
func (s *Service) begin(args tenantScoped) (*db.TenantClient, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, db.ErrNotConfigured
	}
	return db.NewTenantClient(s.db, args.tenant())
}

// audit appends one audit row. A failed audit write is logged and does not
// undo the operation.
func (s *Service) audit(ctx context.Context, c *db.TenantClient, actor Actor, action, entityType, entityID string, payload any) {
	row := &db.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    db.NewJSON(payload),
	}
	if actor.UserID != "" {
		row.ActorID = &actor.UserID
	}
	if actor.RequestID != "" {
		row.RequestID = &actor.RequestID
	}
	if err := c.WriteAudit(ctx, row); err != nil {
		observability.L().Error("audit write failed",
			zap.String("action", action),
			zap.String("tenant_id", c.TenantID()),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// Health is the health_check result.
type Health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
	Time   string `json:"time"`
}

// HealthCheck pings the store.
func (s *Service) HealthCheck(ctx context.Context) Health {
	h := Health{Status: "ok", Store: "ok", Time: s.now().UTC().Format(time.RFC3339)}
	if !s.Configured() {
		h.Status, h.Store = "degraded", "unconfigured"
		return h
	}
	if err := db.Ping(ctx, s.db); err != nil {
		h.Status, h.Store, h.Error = "degraded", "error", err.Error()
	}
	return h
}

// AuditLogsArgs are the list_audit_logs arguments.
type AuditLogsArgs struct {
	TenantArgs
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=500"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	ActorID    string `json:"actor_id"`
}

func (s *Service) ListAuditLogs(ctx context.Context, args AuditLogsArgs) ([]db.AuditLog, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListAuditLogs(ctx, db.AuditFilter{
		Limit:      args.Limit,
		Action:     args.Action,
		EntityType: args.EntityType,
		ActorID:    args.ActorID,
	})
}
