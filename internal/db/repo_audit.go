package db

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WriteAudit appends one audit row in the client's tenant.
func (c *TenantClient) WriteAudit(ctx context.Context, a *AuditLog) error {
	a.TenantID = c.tenantID
	if len(a.Payload) == 0 {
		a.Payload = datatypes.JSON("{}")
	}
	if err := c.db.WithContext(ctx).Create(a).Error; err != nil {
		return errors.Wrap(err, "write audit log")
	}
	return nil
}

// AuditFilter narrows ListAuditLogs.
type AuditFilter struct {
	Limit      int
	Action     string
	EntityType string
	ActorID    string
}

func (c *TenantClient) ListAuditLogs(ctx context.Context, f AuditFilter) ([]AuditLog, error) {
	q := c.scoped(ctx)
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.ActorID != "" {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	rows, err := listPage[AuditLog](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list audit logs")
	}
	return rows, nil
}

// FindMembership returns the oldest tenant membership of a user.
// Memberships are not tenant-scoped; this runs before a tenant is known.
func FindMembership(db *gorm.DB, userID string) (*TenantMember, error) {
	var m TenantMember
	err := db.Where("user_id = ?", userID).Order("created_at").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find membership of %s", userID)
	}
	return &m, nil
}

// FindTenantMembership returns the user's membership in one tenant.
func FindTenantMembership(db *gorm.DB, userID, tenantID string) (*TenantMember, error) {
	var m TenantMember
	err := db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find membership of %s in %s", userID, tenantID)
	}
	return &m, nil
}
