package isms

import (
	"context"

	"gorm.io/datatypes"

	"nciso/server/internal/db"
)

func setIf[T any](u map[string]any, col string, v *T) {
	if v != nil {
		u[col] = *v
	}
}

func requireChanges(u map[string]any) error {
	if len(u) == 0 {
		return invalid("", "nenhum campo para atualizar")
	}
	return nil
}

type ListPoliciesArgs struct {
	TenantArgs
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=500"`
	Status string `json:"status" validate:"omitempty,oneof=draft active review archived"`
}

func (s *Service) ListPolicies(ctx context.Context, args ListPoliciesArgs) ([]db.Policy, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListPolicies(ctx, db.PolicyFilter{Limit: args.Limit, Status: args.Status})
}

func (s *Service) GetPolicy(ctx context.Context, args IDArgs) (*db.Policy, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.GetPolicy(ctx, args.ID)
}

type CreatePolicyArgs struct {
	TenantArgs
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Version     string   `json:"version"`
	Status      string   `json:"status" validate:"omitempty,oneof=draft active review archived"`
	Owner       string   `json:"owner"`
	Tags        []string `json:"tags"`
}

func (s *Service) CreatePolicy(ctx context.Context, actor Actor, args CreatePolicyArgs) (*db.Policy, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	p := &db.Policy{
		Title:       args.Title,
		Description: args.Description,
		Content:     args.Content,
		Version:     args.Version,
		Status:      args.Status,
		Owner:       args.Owner,
		Tags:        datatypes.JSONSlice[string](args.Tags),
	}
	if p.Version == "" {
		p.Version = "1.0"
	}
	if p.Status == "" {
		p.Status = db.PolicyDraft
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	if actor.UserID != "" {
		p.CreatedBy = &actor.UserID
	}
	if err := c.CreatePolicy(ctx, p); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_policy", "policy", p.ID, map[string]any{"title": p.Title, "status": p.Status})
	return p, nil
}

type UpdatePolicyArgs struct {
	TenantArgs
	ID          string    `json:"id" validate:"required,uuid"`
	Title       *string   `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	Version     *string   `json:"version"`
	Status      *string   `json:"status" validate:"omitempty,oneof=draft active review archived"`
	Owner       *string   `json:"owner"`
	Tags        *[]string `json:"tags"`
}

func (s *Service) UpdatePolicy(ctx context.Context, actor Actor, args UpdatePolicyArgs) (*db.Policy, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	u := map[string]any{}
	setIf(u, "title", args.Title)
	setIf(u, "description", args.Description)
	setIf(u, "content", args.Content)
	setIf(u, "version", args.Version)
	setIf(u, "status", args.Status)
	setIf(u, "owner", args.Owner)
	if args.Tags != nil {
		u["tags"] = datatypes.JSONSlice[string](*args.Tags)
	}
	if err := requireChanges(u); err != nil {
		return nil, err
	}
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	p, err := c.UpdatePolicy(ctx, args.ID, u)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "update_policy", "policy", p.ID, fieldNames(u))
	return p, nil
}

// Deleted is returned by delete operations.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (s *Service) DeletePolicy(ctx context.Context, actor Actor, args IDArgs) (*Deleted, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	if err := c.DeletePolicy(ctx, args.ID); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "delete_policy", "policy", args.ID, nil)
	return &Deleted{ID: args.ID, Deleted: true}, nil
}

// fieldNames summarises a partial update by the columns it touched.
func fieldNames(u map[string]any) map[string]any {
	names := make([]string, 0, len(u))
	for k := range u {
		names = append(names, k)
	}
	return map[string]any{"fields": names}
}

type ListControlsArgs struct {
	TenantArgs
	Limit                int    `json:"limit" validate:"omitempty,min=1,max=500"`
	DomainID             string `json:"domain_id" validate:"omitempty,uuid"`
	ControlType          string `json:"control_type" validate:"omitempty,oneof=preventive detective corrective deterrent"`
	ImplementationStatus string `json:"implementation_status" validate:"omitempty,oneof=planned implemented tested operational"`
}

func (s *Service) ListControls(ctx context.Context, args ListControlsArgs) ([]db.Control, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListControls(ctx, db.ControlFilter{
		Limit:                args.Limit,
		DomainID:             args.DomainID,
		ControlType:          args.ControlType,
		ImplementationStatus: args.ImplementationStatus,
	})
}

type CreateControlArgs struct {
	TenantArgs
	Name                 string   `json:"name" validate:"required,max=500"`
	Description          string   `json:"description"`
	ControlType          string   `json:"control_type" validate:"omitempty,oneof=preventive detective corrective deterrent"`
	ImplementationStatus string   `json:"implementation_status" validate:"omitempty,oneof=planned implemented tested operational"`
	EffectivenessScore   *float64 `json:"effectiveness_score" validate:"omitempty,gte=0,lte=100"`
	PolicyID             *string  `json:"policy_id" validate:"omitempty,uuid"`
	DomainID             *string  `json:"domain_id" validate:"omitempty,uuid"`
	Owner                string   `json:"owner"`
}

func (s *Service) CreateControl(ctx context.Context, actor Actor, args CreateControlArgs) (*db.Control, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	ctl := &db.Control{
		Name:                 args.Name,
		Description:          args.Description,
		ControlType:          args.ControlType,
		ImplementationStatus: args.ImplementationStatus,
		EffectivenessScore:   args.EffectivenessScore,
		PolicyID:             args.PolicyID,
		DomainID:             args.DomainID,
		Owner:                args.Owner,
	}
	if ctl.ImplementationStatus == "" {
		ctl.ImplementationStatus = db.StatusPlanned
	}
	if err := c.CreateControl(ctx, ctl); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_control", "control", ctl.ID, map[string]any{"name": ctl.Name, "control_type": ctl.ControlType})
	return ctl, nil
}

type UpdateControlArgs struct {
	TenantArgs
	ID                   string   `json:"id" validate:"required,uuid"`
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=500"`
	Description          *string  `json:"description"`
	ControlType          *string  `json:"control_type" validate:"omitempty,oneof=preventive detective corrective deterrent"`
	ImplementationStatus *string  `json:"implementation_status" validate:"omitempty,oneof=planned implemented tested operational"`
	EffectivenessScore   *float64 `json:"effectiveness_score" validate:"omitempty,gte=0,lte=100"`
	PolicyID             *string  `json:"policy_id" validate:"omitempty,uuid"`
	Owner                *string  `json:"owner"`
}

func (s *Service) UpdateControl(ctx context.Context, actor Actor, args UpdateControlArgs) (*db.Control, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	u := map[string]any{}
	setIf(u, "name", args.Name)
	setIf(u, "description", args.Description)
	setIf(u, "control_type", args.ControlType)
	setIf(u, "implementation_status", args.ImplementationStatus)
	setIf(u, "effectiveness_score", args.EffectivenessScore)
	setIf(u, "policy_id", args.PolicyID)
	setIf(u, "owner", args.Owner)
	if err := requireChanges(u); err != nil {
		return nil, err
	}
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	ctl, err := c.UpdateControl(ctx, args.ID, u)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "update_control", "control", ctl.ID, fieldNames(u))
	return ctl, nil
}

type ListDomainsArgs struct {
	TenantArgs
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=500"`
	ParentID  string `json:"parent_id" validate:"omitempty,uuid"`
	RootsOnly bool   `json:"roots_only"`
}

func (s *Service) ListDomains(ctx context.Context, args ListDomainsArgs) ([]db.Domain, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListDomains(ctx, db.DomainFilter{Limit: args.Limit, ParentID: args.ParentID, RootsOnly: args.RootsOnly})
}

type CreateDomainArgs struct {
	TenantArgs
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
}

func (s *Service) CreateDomain(ctx context.Context, actor Actor, args CreateDomainArgs) (*db.Domain, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	d := &db.Domain{Name: args.Name, Description: args.Description, ParentID: args.ParentID}
	if err := c.CreateDomain(ctx, d); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_domain", "domain", d.ID, map[string]any{"name": d.Name, "level": d.Level})
	return d, nil
}
