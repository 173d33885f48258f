package db

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

func (c *TenantClient) ListFrameworks(ctx context.Context, limit int) ([]Framework, error) {
	rows, err := listPage[Framework](c.scoped(ctx), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list frameworks")
	}
	return rows, nil
}

// AllFrameworks returns every framework of the tenant, unpaginated.
func (c *TenantClient) AllFrameworks(ctx context.Context) ([]Framework, error) {
	rows := []Framework{}
	if err := newest(c.scoped(ctx)).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "all frameworks")
	}
	return rows, nil
}

func (c *TenantClient) GetFramework(ctx context.Context, id string) (*Framework, error) {
	return getByID[Framework](ctx, c, id)
}

// ImportFramework inserts a framework and its catalog in one transaction and
// sets controls_count to the catalog size.
func (c *TenantClient) ImportFramework(ctx context.Context, fw *Framework, catalog []FrameworkControl) error {
	fw.TenantID = c.tenantID
	fw.ControlsCount = len(catalog)
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fw).Error; err != nil {
			return errors.Wrap(err, "create framework")
		}
		if len(catalog) == 0 {
			return nil
		}
		for i := range catalog {
			catalog[i].TenantID = c.tenantID
			catalog[i].FrameworkID = fw.ID
			if catalog[i].Priority == "" {
				catalog[i].Priority = PriorityMedium
			}
		}
		if err := tx.CreateInBatches(catalog, 100).Error; err != nil {
			return errors.Wrap(err, "create framework controls")
		}
		return nil
	})
}

// ListFrameworkControls returns the catalog of one framework, or of every
// framework when frameworkID is empty. Ordered by code.
func (c *TenantClient) ListFrameworkControls(ctx context.Context, frameworkID string) ([]FrameworkControl, error) {
	q := c.scoped(ctx)
	if frameworkID != "" {
		q = q.Where("framework_id = ?", frameworkID)
	}
	rows := []FrameworkControl{}
	if err := q.Order("code").Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list framework controls")
	}
	return rows, nil
}

// ListControlMappings returns mappings of one framework, or all when frameworkID is empty.
func (c *TenantClient) ListControlMappings(ctx context.Context, frameworkID string) ([]ControlFramework, error) {
	q := c.scoped(ctx)
	if frameworkID != "" {
		q = q.Where("framework_id = ?", frameworkID)
	}
	rows := []ControlFramework{}
	if err := newest(q).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list control mappings")
	}
	return rows, nil
}

// catalogEntry checks that entryID is a catalog entry of frameworkID inside the tenant.
func (c *TenantClient) catalogEntry(ctx context.Context, frameworkID, entryID string) error {
	var n int64
	err := c.scoped(ctx).Model(&FrameworkControl{}).
		Where("id = ? AND framework_id = ?", entryID, frameworkID).
		Count(&n).Error
	if err != nil {
		return errors.Wrap(err, "lookup framework control")
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, "framework control")
	}
	return nil
}

// MapControl links a tenant control to a catalog entry. Both sides must be
// visible in the tenant and the entry must belong to m.FrameworkID.
func (c *TenantClient) MapControl(ctx context.Context, m *ControlFramework) error {
	if err := exists[Control](ctx, c, m.ControlID); err != nil {
		return errors.Wrap(err, "control")
	}
	if err := c.catalogEntry(ctx, m.FrameworkID, m.FrameworkControlID); err != nil {
		return err
	}
	m.TenantID = c.tenantID
	if err := c.db.WithContext(ctx).Create(m).Error; err != nil {
		return errors.Wrap(err, "create control mapping")
	}
	return nil
}

// CrosswalkFilter narrows ListCrosswalks.
type CrosswalkFilter struct {
	Limit             int
	SourceFrameworkID string
	TargetFrameworkID string
	RelationType      string
}

func (c *TenantClient) ListCrosswalks(ctx context.Context, f CrosswalkFilter) ([]FrameworkCrosswalk, error) {
	q := c.scoped(ctx)
	if f.SourceFrameworkID != "" {
		q = q.Where("source_framework_id = ?", f.SourceFrameworkID)
	}
	if f.TargetFrameworkID != "" {
		q = q.Where("target_framework_id = ?", f.TargetFrameworkID)
	}
	if f.RelationType != "" {
		q = q.Where("relation_type = ?", f.RelationType)
	}
	rows, err := listPage[FrameworkCrosswalk](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list crosswalks")
	}
	return rows, nil
}

// CreateCrosswalk stores a mapping between two catalog entries of the
// tenant. Each control id must belong to its framework. Duplicates are not
// rejected.
func (c *TenantClient) CreateCrosswalk(ctx context.Context, cw *FrameworkCrosswalk) error {
	for _, id := range []string{cw.SourceFrameworkID, cw.TargetFrameworkID} {
		if err := exists[Framework](ctx, c, id); err != nil {
			return errors.Wrap(err, "framework")
		}
	}
	if err := c.catalogEntry(ctx, cw.SourceFrameworkID, cw.SourceControlID); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := c.catalogEntry(ctx, cw.TargetFrameworkID, cw.TargetControlID); err != nil {
		return errors.Wrap(err, "target")
	}
	cw.TenantID = c.tenantID
	if err := c.db.WithContext(ctx).Create(cw).Error; err != nil {
		return errors.Wrap(err, "create crosswalk")
	}
	return nil
}
