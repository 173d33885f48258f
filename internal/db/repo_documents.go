package db

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/datatypes"
)

// DocumentFilter narrows ListTechnicalDocuments.
type DocumentFilter struct {
	Limit        int
	Source       string
	DocumentType string
	ControlID    string
}

func (c *TenantClient) ListTechnicalDocuments(ctx context.Context, f DocumentFilter) ([]TechnicalDocument, error) {
	q := c.scoped(ctx)
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	if f.ControlID != "" {
		q = q.Where("control_id = ?", f.ControlID)
	}
	rows, err := listPage[TechnicalDocument](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list technical documents")
	}
	return rows, nil
}

func (c *TenantClient) GetTechnicalDocument(ctx context.Context, id string) (*TechnicalDocument, error) {
	return getByID[TechnicalDocument](ctx, c, id)
}

// CreateTechnicalDocument requires a referenced control to be visible in the tenant.
func (c *TenantClient) CreateTechnicalDocument(ctx context.Context, d *TechnicalDocument) error {
	if d.ControlID != nil && *d.ControlID != "" {
		if err := exists[Control](ctx, c, *d.ControlID); err != nil {
			return errors.Wrap(err, "control")
		}
	}
	d.TenantID = c.tenantID
	if d.Source == "" {
		d.Source = SourceUpload
	}
	if len(d.Metadata) == 0 {
		d.Metadata = datatypes.JSON("{}")
	}
	if err := c.db.WithContext(ctx).Create(d).Error; err != nil {
		return errors.Wrap(err, "create technical document")
	}
	return nil
}

// EvaluationFilter narrows ListEvaluations.
type EvaluationFilter struct {
	Limit     int
	ControlID string
}

func (c *TenantClient) ListEvaluations(ctx context.Context, f EvaluationFilter) ([]ControlEffectiveness, error) {
	q := c.scoped(ctx)
	if f.ControlID != "" {
		q = q.Where("control_id = ?", f.ControlID)
	}
	rows, err := listPage[ControlEffectiveness](q, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list evaluations")
	}
	return rows, nil
}

// AllEvaluations returns the tenant's full evaluation history for aggregation.
func (c *TenantClient) AllEvaluations(ctx context.Context) ([]ControlEffectiveness, error) {
	rows := []ControlEffectiveness{}
	if err := newest(c.scoped(ctx)).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "all evaluations")
	}
	return rows, nil
}

func (c *TenantClient) GetEvaluation(ctx context.Context, id string) (*ControlEffectiveness, error) {
	return getByID[ControlEffectiveness](ctx, c, id)
}

// CreateEvaluation requires the evaluated control to be visible in the tenant.
func (c *TenantClient) CreateEvaluation(ctx context.Context, e *ControlEffectiveness) error {
	if err := exists[Control](ctx, c, e.ControlID); err != nil {
		return errors.Wrap(err, "control")
	}
	e.TenantID = c.tenantID
	if e.EvaluationDate.IsZero() {
		e.EvaluationDate = c.Now()
	}
	if err := c.db.WithContext(ctx).Create(e).Error; err != nil {
		return errors.Wrap(err, "create evaluation")
	}
	return nil
}

func (c *TenantClient) UpdateEvaluation(ctx context.Context, id string, updates map[string]any) (*ControlEffectiveness, error) {
	return updateByID[ControlEffectiveness](ctx, c, id, updates)
}

func (c *TenantClient) DeleteEvaluation(ctx context.Context, id string) error {
	return deleteByID[ControlEffectiveness](ctx, c, id)
}
