package db

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

// PolicyFilter narrows ListPolicies.
type PolicyFilter struct {
	Limit  int
	Status string
}

func (c *TenantClient) ListPolicies(ctx context.Context, f PolicyFilter) ([]Policy, error) {
	q := c.scoped(ctx)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	rows, err := listPage[Policy](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list policies")
	}
	return rows, nil
}

func (c *TenantClient) GetPolicy(ctx context.Context, id string) (*Policy, error) {
	return getByID[Policy](ctx, c, id)
}

func (c *TenantClient) CreatePolicy(ctx context.Context, p *Policy) error {
	p.TenantID = c.tenantID
	if err := c.db.WithContext(ctx).Create(p).Error; err != nil {
		return errors.Wrap(err, "create policy")
	}
	return nil
}

func (c *TenantClient) UpdatePolicy(ctx context.Context, id string, updates map[string]any) (*Policy, error) {
	return updateByID[Policy](ctx, c, id, updates)
}

func (c *TenantClient) DeletePolicy(ctx context.Context, id string) error {
	return deleteByID[Policy](ctx, c, id)
}

// ControlFilter narrows ListControls and ReportControls.
type ControlFilter struct {
	Limit                int
	DomainID             string
	ControlType          string
	ImplementationStatus string
}

func (f ControlFilter) apply(q *gorm.DB) *gorm.DB {
	if f.DomainID != "" {
		q = q.Where("domain_id = ?", f.DomainID)
	}
	if f.ControlType != "" {
		q = q.Where("control_type = ?", f.ControlType)
	}
	if f.ImplementationStatus != "" {
		q = q.Where("implementation_status = ?", f.ImplementationStatus)
	}
	return q
}

func (c *TenantClient) ListControls(ctx context.Context, f ControlFilter) ([]Control, error) {
	rows, err := listPage[Control](f.apply(c.scoped(ctx)), f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list controls")
	}
	return rows, nil
}

// ReportControls returns every matching control, unpaginated, for aggregation.
func (c *TenantClient) ReportControls(ctx context.Context, f ControlFilter) ([]Control, error) {
	rows := []Control{}
	if err := newest(f.apply(c.scoped(ctx))).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "report controls")
	}
	return rows, nil
}

func (c *TenantClient) GetControl(ctx context.Context, id string) (*Control, error) {
	return getByID[Control](ctx, c, id)
}

// CreateControl inserts the control and bumps its domain's controls_count.
// A policy or domain outside the tenant yields ErrNotFound and nothing is written.
func (c *TenantClient) CreateControl(ctx context.Context, ctl *Control) error {
	if ctl.PolicyID != nil && *ctl.PolicyID != "" {
		if err := exists[Policy](ctx, c, *ctl.PolicyID); err != nil {
			return errors.Wrap(err, "policy")
		}
	}
	ctl.TenantID = c.tenantID
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ctl.DomainID != nil && *ctl.DomainID != "" {
			res := tx.Model(&Domain{}).
				Where("tenant_id = ? AND id = ?", c.tenantID, *ctl.DomainID).
				UpdateColumn("controls_count", gorm.Expr("controls_count + 1"))
			if res.Error != nil {
				return errors.Wrap(res.Error, "bump domain controls_count")
			}
			if res.RowsAffected == 0 {
				return errors.Wrap(ErrNotFound, "domain")
			}
		}
		if err := tx.Create(ctl).Error; err != nil {
			return errors.Wrap(err, "create control")
		}
		return nil
	})
}

func (c *TenantClient) UpdateControl(ctx context.Context, id string, updates map[string]any) (*Control, error) {
	if policyID, ok := updates["policy_id"].(string); ok && policyID != "" {
		if err := exists[Policy](ctx, c, policyID); err != nil {
			return nil, errors.Wrap(err, "policy")
		}
	}
	return updateByID[Control](ctx, c, id, updates)
}

// DomainFilter narrows ListDomains. RootsOnly wins over ParentID.
type DomainFilter struct {
	Limit     int
	ParentID  string
	RootsOnly bool
}

func (c *TenantClient) ListDomains(ctx context.Context, f DomainFilter) ([]Domain, error) {
	q := c.scoped(ctx)
	switch {
	case f.RootsOnly:
		q = q.Where("parent_id IS NULL")
	case f.ParentID != "":
		q = q.Where("parent_id = ?", f.ParentID)
	}
	rows, err := listPage[Domain](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list domains")
	}
	return rows, nil
}

// CreateDomain derives level from the parent, which must belong to the tenant.
func (c *TenantClient) CreateDomain(ctx context.Context, d *Domain) error {
	d.TenantID = c.tenantID
	d.Level = 0
	if d.ParentID != nil && *d.ParentID != "" {
		parent, err := getByID[Domain](ctx, c, *d.ParentID)
		if err != nil {
			return errors.Wrap(err, "parent domain")
		}
		d.Level = parent.Level + 1
	} else {
		d.ParentID = nil
	}
	if err := c.db.WithContext(ctx).Create(d).Error; err != nil {
		return errors.Wrap(err, "create domain")
	}
	return nil
}
