package isms

import (
	"context"
	"time"

	"nciso/server/internal/db"
)

func checkWindow(from, until *time.Time) error {
	if from != nil && until != nil && !until.After(*from) {
		return invalid("valid_until", "valid_until deve ser posterior a valid_from")
	}
	return nil
}

type ListCredentialsArgs struct {
	TenantArgs
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=500"`
	UserID     string `json:"user_id" validate:"omitempty,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	ActiveOnly bool   `json:"active_only"`
}

func (s *Service) ListCredentials(ctx context.Context, args ListCredentialsArgs) ([]db.CredentialsRegistry, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListCredentials(ctx, db.GrantFilter{
		Limit:      args.Limit,
		UserID:     args.UserID,
		Status:     args.Status,
		ActiveOnly: args.ActiveOnly,
	})
}

type CreateCredentialArgs struct {
	TenantArgs
	AccessType    string     `json:"access_type" validate:"required,max=100"`
	AccessLevel   string     `json:"access_level"`
	AssetID       *string    `json:"asset_id" validate:"omitempty,uuid"`
	UserID        *string    `json:"user_id" validate:"omitempty,uuid"`
	TeamID        *string    `json:"team_id" validate:"omitempty,uuid"`
	Justification string     `json:"justification"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

func (s *Service) CreateCredential(ctx context.Context, actor Actor, args CreateCredentialArgs) (*db.CredentialsRegistry, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if err := checkWindow(args.ValidFrom, args.ValidUntil); err != nil {
		return nil, err
	}
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	cr := &db.CredentialsRegistry{
		AccessType:    args.AccessType,
		AccessLevel:   args.AccessLevel,
		AssetID:       args.AssetID,
		UserID:        args.UserID,
		TeamID:        args.TeamID,
		Justification: args.Justification,
		IsActive:      true,
	}
	if args.ValidFrom != nil {
		cr.ValidFrom = args.ValidFrom.UTC()
	}
	if args.ValidUntil != nil {
		until := args.ValidUntil.UTC()
		cr.ValidUntil = &until
	}
	if actor.UserID != "" {
		cr.CreatedBy = &actor.UserID
	}
	if err := c.CreateCredential(ctx, cr); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_credentials_registry", "credentials_registry", cr.ID, map[string]any{
		"access_type":  cr.AccessType,
		"access_level": cr.AccessLevel,
	})
	return cr, nil
}

type ApproveCredentialArgs struct {
	TenantArgs
	ID       string `json:"id" validate:"required,uuid"`
	Decision string `json:"decision" validate:"omitempty,oneof=approved rejected"`
}

// ApproveCredential records an approval decision, approved unless stated otherwise.
func (s *Service) ApproveCredential(ctx context.Context, actor Actor, args ApproveCredentialArgs) (*db.CredentialsRegistry, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	decision := args.Decision
	if decision == "" {
		decision = db.ApprovalApproved
	}
	cr, err := c.DecideCredential(ctx, args.ID, decision, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "approve_credential", "credentials_registry", cr.ID, map[string]any{"decision": decision})
	return cr, nil
}

type ListPrivilegedAccessArgs struct {
	TenantArgs
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=500"`
	UserID     string `json:"user_id" validate:"omitempty,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=compliant non_compliant pending_review"`
	ActiveOnly bool   `json:"active_only"`
}

func (s *Service) ListPrivilegedAccess(ctx context.Context, args ListPrivilegedAccessArgs) ([]db.PrivilegedAccess, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListPrivilegedAccess(ctx, db.GrantFilter{
		Limit:      args.Limit,
		UserID:     args.UserID,
		Status:     args.Status,
		ActiveOnly: args.ActiveOnly,
	})
}

type CreatePrivilegedAccessArgs struct {
	TenantArgs
	UserID        string     `json:"user_id" validate:"required,uuid"`
	AccessLevel   string     `json:"access_level" validate:"required,max=100"`
	ScopeID       *string    `json:"scope_id" validate:"omitempty,uuid"`
	AssetID       *string    `json:"asset_id" validate:"omitempty,uuid"`
	Justification string     `json:"justification"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

func (s *Service) CreatePrivilegedAccess(ctx context.Context, actor Actor, args CreatePrivilegedAccessArgs) (*db.PrivilegedAccess, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if err := checkWindow(args.ValidFrom, args.ValidUntil); err != nil {
		return nil, err
	}
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	pa := &db.PrivilegedAccess{
		UserID:        args.UserID,
		AccessLevel:   args.AccessLevel,
		ScopeID:       args.ScopeID,
		AssetID:       args.AssetID,
		Justification: args.Justification,
		IsActive:      true,
	}
	if args.ValidFrom != nil {
		pa.ValidFrom = args.ValidFrom.UTC()
	}
	if args.ValidUntil != nil {
		until := args.ValidUntil.UTC()
		pa.ValidUntil = &until
	}
	if err := c.CreatePrivilegedAccess(ctx, pa); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_privileged_access", "privileged_access", pa.ID, map[string]any{
		"user_id":      pa.UserID,
		"access_level": pa.AccessLevel,
	})
	return pa, nil
}

type PrivilegedAccessAuditArgs struct {
	TenantArgs
	ID          string `json:"id" validate:"required,uuid"`
	AuditStatus string `json:"audit_status" validate:"required,oneof=compliant non_compliant pending_review"`
	AuditNotes  string `json:"audit_notes"`
}

func (s *Service) UpdatePrivilegedAccessAudit(ctx context.Context, actor Actor, args PrivilegedAccessAuditArgs) (*db.PrivilegedAccess, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	pa, err := c.RecordPrivilegedAccessAudit(ctx, args.ID, args.AuditStatus, args.AuditNotes, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "update_privileged_access_audit", "privileged_access", pa.ID, map[string]any{"audit_status": pa.AuditStatus})
	return pa, nil
}
