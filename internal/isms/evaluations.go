package isms

import (
	"context"
	"time"

	"nciso/server/internal/db"
	"nciso/server/internal/reports"
)

type ListEvaluationsArgs struct {
	TenantArgs
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=500"`
	ControlID string `json:"control_id" validate:"omitempty,uuid"`
}

func (s *Service) ListEvaluations(ctx context.Context, args ListEvaluationsArgs) ([]db.ControlEffectiveness, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListEvaluations(ctx, db.EvaluationFilter{Limit: args.Limit, ControlID: args.ControlID})
}

func (s *Service) GetEvaluation(ctx context.Context, args IDArgs) (*db.ControlEffectiveness, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.GetEvaluation(ctx, args.ID)
}

type CreateEvaluationArgs struct {
	TenantArgs
	ControlID      string     `json:"control_id" validate:"required,uuid"`
	Score          *float64   `json:"score" validate:"required,gte=0,lte=100"`
	Comment        string     `json:"comment"`
	Assessor       string     `json:"assessor"`
	EvaluationDate *time.Time `json:"evaluation_date"`
}

func (s *Service) CreateEvaluation(ctx context.Context, actor Actor, args CreateEvaluationArgs) (*db.ControlEffectiveness, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	e := &db.ControlEffectiveness{
		ControlID: args.ControlID,
		Score:     *args.Score,
		Comment:   args.Comment,
		Assessor:  args.Assessor,
	}
	if args.EvaluationDate != nil {
		e.EvaluationDate = args.EvaluationDate.UTC()
	}
	if e.Assessor == "" {
		e.Assessor = actor.UserID
	}
	if err := c.CreateEvaluation(ctx, e); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_evaluation", "control_effectiveness", e.ID, map[string]any{
		"control_id": e.ControlID,
		"score":      e.Score,
	})
	return e, nil
}

type UpdateEvaluationArgs struct {
	TenantArgs
	ID             string     `json:"id" validate:"required,uuid"`
	Score          *float64   `json:"score" validate:"omitempty,gte=0,lte=100"`
	Comment        *string    `json:"comment"`
	Assessor       *string    `json:"assessor"`
	EvaluationDate *time.Time `json:"evaluation_date"`
}

func (s *Service) UpdateEvaluation(ctx context.Context, actor Actor, args UpdateEvaluationArgs) (*db.ControlEffectiveness, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	u := map[string]any{}
	setIf(u, "score", args.Score)
	setIf(u, "comment", args.Comment)
	setIf(u, "assessor", args.Assessor)
	if args.EvaluationDate != nil {
		u["evaluation_date"] = args.EvaluationDate.UTC()
	}
	if err := requireChanges(u); err != nil {
		return nil, err
	}
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	e, err := c.UpdateEvaluation(ctx, args.ID, u)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "update_evaluation", "control_effectiveness", e.ID, fieldNames(u))
	return e, nil
}

func (s *Service) DeleteEvaluation(ctx context.Context, actor Actor, args IDArgs) (*Deleted, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	if err := c.DeleteEvaluation(ctx, args.ID); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "delete_evaluation", "control_effectiveness", args.ID, nil)
	return &Deleted{ID: args.ID, Deleted: true}, nil
}

type EvaluationStatsArgs struct {
	TenantArgs
}

func (s *Service) EvaluationStats(ctx context.Context, args EvaluationStatsArgs) (*reports.EvaluationStats, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	evals, err := c.AllEvaluations(ctx)
	if err != nil {
		return nil, err
	}
	st := reports.Evaluations(evals, s.thresholds())
	return &st, nil
}

type LowEffectivenessArgs struct {
	TenantArgs
	MinScore *float64 `json:"min_score" validate:"omitempty,gte=0,lte=100"`
}

// LowEffectiveness lists controls whose average evaluation is below min_score,
// defaulting to the configured low-effectiveness threshold.
func (s *Service) LowEffectiveness(ctx context.Context, args LowEffectivenessArgs) ([]reports.ControlStats, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	evals, err := c.AllEvaluations(ctx)
	if err != nil {
		return nil, err
	}
	minScore := s.thresholds().LowEffectiveness
	if args.MinScore != nil {
		minScore = *args.MinScore
	}
	return reports.LowEffectiveness(evals, minScore), nil
}
