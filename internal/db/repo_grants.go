package db

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

// GrantFilter narrows the credential and privileged-access listings.
type GrantFilter struct {
	Limit      int
	UserID     string
	Status     string // approval_status for credentials, audit_status for privileged access
	ActiveOnly bool
}

// activeAt keeps rows whose validity window contains now.
func activeAt(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("is_active = ?", true).
		Where("valid_from <= ?", now).
		Where("valid_until IS NULL OR valid_until > ?", now)
}

func (c *TenantClient) ListCredentials(ctx context.Context, f GrantFilter) ([]CredentialsRegistry, error) {
	q := c.scoped(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("approval_status = ?", f.Status)
	}
	if f.ActiveOnly {
		q = activeAt(q, c.Now())
	}
	rows, err := listPage[CredentialsRegistry](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list credentials")
	}
	return rows, nil
}

func (c *TenantClient) CreateCredential(ctx context.Context, cr *CredentialsRegistry) error {
	cr.TenantID = c.tenantID
	if cr.ValidFrom.IsZero() {
		cr.ValidFrom = c.Now()
	}
	if cr.ApprovalStatus == "" {
		cr.ApprovalStatus = ApprovalPending
	}
	if err := c.db.WithContext(ctx).Create(cr).Error; err != nil {
		return errors.Wrap(err, "create credential")
	}
	return nil
}

// DecideCredential records an approval decision on a pending or previously decided grant.
func (c *TenantClient) DecideCredential(ctx context.Context, id, status, approver string) (*CredentialsRegistry, error) {
	now := c.Now()
	updates := map[string]any{
		"approval_status": status,
		"approved_at":     now,
		"approved_by":     nil,
	}
	if approver != "" {
		updates["approved_by"] = approver
	}
	if status == ApprovalRejected {
		updates["is_active"] = false
	}
	return updateByID[CredentialsRegistry](ctx, c, id, updates)
}

func (c *TenantClient) ListPrivilegedAccess(ctx context.Context, f GrantFilter) ([]PrivilegedAccess, error) {
	q := c.scoped(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("audit_status = ?", f.Status)
	}
	if f.ActiveOnly {
		q = activeAt(q, c.Now())
	}
	rows, err := listPage[PrivilegedAccess](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list privileged access")
	}
	return rows, nil
}

func (c *TenantClient) CreatePrivilegedAccess(ctx context.Context, pa *PrivilegedAccess) error {
	pa.TenantID = c.tenantID
	if pa.ValidFrom.IsZero() {
		pa.ValidFrom = c.Now()
	}
	if pa.AuditStatus == "" {
		pa.AuditStatus = AuditPendingReview
	}
	if err := c.db.WithContext(ctx).Create(pa).Error; err != nil {
		return errors.Wrap(err, "create privileged access")
	}
	return nil
}

// RecordPrivilegedAccessAudit stamps the outcome of an access review.
func (c *TenantClient) RecordPrivilegedAccessAudit(ctx context.Context, id, status, notes, auditor string) (*PrivilegedAccess, error) {
	updates := map[string]any{
		"audit_status":  status,
		"audit_notes":   notes,
		"last_audit_at": c.Now(),
		"last_audit_by": nil,
	}
	if auditor != "" {
		updates["last_audit_by"] = auditor
	}
	return updateByID[PrivilegedAccess](ctx, c, id, updates)
}
