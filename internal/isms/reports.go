package isms

import (
	"context"

	"golang.org/x/sync/errgroup"

	"nciso/server/internal/db"
	"nciso/server/internal/reports"
)

type EffectivenessReportArgs struct {
	TenantArgs
	DomainID    string `json:"domain_id" validate:"omitempty,uuid"`
	ControlType string `json:"control_type" validate:"omitempty,oneof=preventive detective corrective deterrent"`
}

// EffectivenessReport reduces the tenant's controls, optionally filtered by
// domain and type, into the effectiveness summary.
func (s *Service) EffectivenessReport(ctx context.Context, args EffectivenessReportArgs) (*reports.EffectivenessReport, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	controls, err := c.ReportControls(ctx, db.ControlFilter{DomainID: args.DomainID, ControlType: args.ControlType})
	if err != nil {
		return nil, err
	}
	r := reports.Effectiveness(controls, s.thresholds())
	return &r, nil
}

type GapReportArgs struct {
	TenantArgs
	FrameworkID string `json:"framework_id" validate:"required,uuid"`
}

// SimulateGapReport compares a framework's catalog with the tenant's mappings.
func (s *Service) SimulateGapReport(ctx context.Context, args GapReportArgs) (*reports.GapReport, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	fw, err := c.GetFramework(ctx, args.FrameworkID)
	if err != nil {
		return nil, err
	}

	var (
		expected []db.FrameworkControl
		mappings []db.ControlFramework
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		expected, err = c.ListFrameworkControls(gctx, fw.ID)
		return err
	})
	g.Go(func() (err error) {
		mappings, err = c.ListControlMappings(gctx, fw.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := reports.SimulateGap(*fw, expected, mappings, s.thresholds())
	return &r, nil
}

type CoverageArgs struct {
	TenantArgs
}

// CoverageDashboard computes coverage for every framework of the tenant.
func (s *Service) CoverageDashboard(ctx context.Context, args CoverageArgs) (*reports.CoverageDashboard, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}

	var (
		frameworks []db.Framework
		catalog    []db.FrameworkControl
		mappings   []db.ControlFramework
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		frameworks, err = c.AllFrameworks(gctx)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = c.ListFrameworkControls(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		mappings, err = c.ListControlMappings(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalogs := make(map[string][]db.FrameworkControl)
	for _, fc := range catalog {
		catalogs[fc.FrameworkID] = append(catalogs[fc.FrameworkID], fc)
	}
	byFramework := make(map[string][]db.ControlFramework)
	for _, m := range mappings {
		byFramework[m.FrameworkID] = append(byFramework[m.FrameworkID], m)
	}

	d := reports.Coverage(frameworks, catalogs, byFramework, s.thresholds())
	return &d, nil
}
