package isms

import (
	"context"

	"nciso/server/internal/db"
	"nciso/server/internal/reports"
)

type ListFrameworksArgs struct {
	TenantArgs
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
}

func (s *Service) ListFrameworks(ctx context.Context, args ListFrameworksArgs) ([]db.Framework, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListFrameworks(ctx, args.Limit)
}

// CatalogEntry is one expected control of an imported framework.
type CatalogEntry struct {
	Code        string `json:"code" validate:"required,max=100"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=critical high medium low"`
}

type ImportFrameworkArgs struct {
	TenantArgs
	Name        string         `json:"name" validate:"required,max=200"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Controls    []CatalogEntry `json:"controls" validate:"required,min=1,max=2000,dive"`
}

// ImportedFramework is the framework row plus its stored catalog.
type ImportedFramework struct {
	db.Framework
	Controls []db.FrameworkControl `json:"controls"`
}

func (s *Service) ImportFramework(ctx context.Context, actor Actor, args ImportFrameworkArgs) (*ImportedFramework, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	fw := &db.Framework{Name: args.Name, Version: args.Version, Description: args.Description}
	catalog := make([]db.FrameworkControl, len(args.Controls))
	for i, e := range args.Controls {
		catalog[i] = db.FrameworkControl{Code: e.Code, Title: e.Title, Description: e.Description, Priority: e.Priority}
	}
	if err := c.ImportFramework(ctx, fw, catalog); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "import_framework", "framework", fw.ID, map[string]any{
		"name":     fw.Name,
		"version":  fw.Version,
		"controls": len(catalog),
	})
	return &ImportedFramework{Framework: *fw, Controls: catalog}, nil
}

type MapControlArgs struct {
	TenantArgs
	ControlID          string `json:"control_id" validate:"required,uuid"`
	FrameworkID        string `json:"framework_id" validate:"required,uuid"`
	FrameworkControlID string `json:"framework_control_id" validate:"required,uuid"`
}

func (s *Service) MapControl(ctx context.Context, actor Actor, args MapControlArgs) (*db.ControlFramework, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	m := &db.ControlFramework{
		ControlID:          args.ControlID,
		FrameworkID:        args.FrameworkID,
		FrameworkControlID: args.FrameworkControlID,
	}
	if err := c.MapControl(ctx, m); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "map_control", "control_framework", m.ID, args)
	return m, nil
}

type ListCrosswalksArgs struct {
	TenantArgs
	Limit             int    `json:"limit" validate:"omitempty,min=1,max=500"`
	SourceFrameworkID string `json:"source_framework_id" validate:"omitempty,uuid"`
	TargetFrameworkID string `json:"target_framework_id" validate:"omitempty,uuid"`
	RelationType      string `json:"relation_type" validate:"omitempty,oneof=equivalent partial_overlap related suggested"`
}

func (s *Service) ListCrosswalks(ctx context.Context, args ListCrosswalksArgs) ([]db.FrameworkCrosswalk, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListCrosswalks(ctx, db.CrosswalkFilter{
		Limit:             args.Limit,
		SourceFrameworkID: args.SourceFrameworkID,
		TargetFrameworkID: args.TargetFrameworkID,
		RelationType:      args.RelationType,
	})
}

type CreateCrosswalkArgs struct {
	TenantArgs
	SourceControlID   string   `json:"source_control_id" validate:"required,uuid"`
	TargetControlID   string   `json:"target_control_id" validate:"required,uuid"`
	SourceFrameworkID string   `json:"source_framework_id" validate:"required,uuid"`
	TargetFrameworkID string   `json:"target_framework_id" validate:"required,uuid"`
	RelationType      string   `json:"relation_type" validate:"required,oneof=equivalent partial_overlap related suggested"`
	ConfidenceScore   *float64 `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
	Notes             string   `json:"notes"`
	IsAIGenerated     bool     `json:"is_ai_generated"`
}

// CreateCrosswalk stores the mapping between two catalog entries of the
// tenant. Duplicates are accepted.
func (s *Service) CreateCrosswalk(ctx context.Context, actor Actor, args CreateCrosswalkArgs) (*db.FrameworkCrosswalk, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	cw := &db.FrameworkCrosswalk{
		SourceControlID:   args.SourceControlID,
		TargetControlID:   args.TargetControlID,
		SourceFrameworkID: args.SourceFrameworkID,
		TargetFrameworkID: args.TargetFrameworkID,
		RelationType:      args.RelationType,
		Notes:             args.Notes,
		IsAIGenerated:     args.IsAIGenerated,
	}
	if args.ConfidenceScore != nil {
		cw.ConfidenceScore = *args.ConfidenceScore
	}
	if err := c.CreateCrosswalk(ctx, cw); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_crosswalk", "framework_crosswalk", cw.ID, map[string]any{
		"source_control_id": cw.SourceControlID,
		"target_control_id": cw.TargetControlID,
		"relation_type":     cw.RelationType,
	})
	return cw, nil
}

type SuggestCrosswalksArgs struct {
	TenantArgs
	SourceFrameworkID string   `json:"source_framework_id" validate:"required,uuid"`
	TargetFrameworkID string   `json:"target_framework_id" validate:"required,uuid"`
	MinConfidence     *float64 `json:"min_confidence" validate:"omitempty,gte=0,lte=1"`
	Limit             int      `json:"limit" validate:"omitempty,min=1,max=500"`
}

// SuggestCrosswalks ranks candidate mappings between two catalogs. Nothing is persisted.
func (s *Service) SuggestCrosswalks(ctx context.Context, args SuggestCrosswalksArgs) ([]reports.CrosswalkSuggestion, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	if _, err := c.GetFramework(ctx, args.SourceFrameworkID); err != nil {
		return nil, err
	}
	if _, err := c.GetFramework(ctx, args.TargetFrameworkID); err != nil {
		return nil, err
	}
	source, err := c.ListFrameworkControls(ctx, args.SourceFrameworkID)
	if err != nil {
		return nil, err
	}
	target, err := c.ListFrameworkControls(ctx, args.TargetFrameworkID)
	if err != nil {
		return nil, err
	}
	minConfidence := reports.DefaultMinConfidence
	if args.MinConfidence != nil {
		minConfidence = *args.MinConfidence
	}
	out := reports.SuggestCrosswalks(source, target, minConfidence)
	if limit := db.ClampLimit(args.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
