package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nciso/server/internal/db"
	"nciso/server/internal/db/dbtest"
)

const (
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"
)

func ptr[T any](v T) *T { return &v }

func TestNewTenantClient(t *testing.T) {
	_, err := db.NewTenantClient(nil, tenantA)
	assert.ErrorIs(t, err, db.ErrNotConfigured)

	_, err = db.NewTenantClient(dbtest.Open(t), "")
	assert.ErrorIs(t, err, db.ErrTenantRequired)
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, db.DefaultLimit},
		{-3, db.DefaultLimit},
		{1, 1},
		{500, 500},
		{501, db.MaxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, db.ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.CreateControl(ctx, &db.Control{Name: fmt.Sprintf("a-%d", i)}))
		require.NoError(t, b.CreatePolicy(ctx, &db.Policy{Title: fmt.Sprintf("b-%d", i)}))
	}
	// Caller-supplied tenant ids are overwritten.
	require.NoError(t, b.CreateControl(ctx, &db.Control{Name: "spoof", TenantID: tenantA}))

	controls, err := a.ListControls(ctx, db.ControlFilter{})
	require.NoError(t, err)
	assert.Len(t, controls, 3)
	for _, c := range controls {
		assert.Equal(t, tenantA, c.TenantID)
	}

	policies, err := a.ListPolicies(ctx, db.PolicyFilter{})
	require.NoError(t, err)
	assert.Empty(t, policies)

	bControls, err := b.ListControls(ctx, db.ControlFilter{})
	require.NoError(t, err)
	require.Len(t, bControls, 1)
	assert.Equal(t, tenantB, bControls[0].TenantID)

	t.Run("get across tenants", func(t *testing.T) {
		_, err := a.GetControl(ctx, bControls[0].ID)
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
	t.Run("update across tenants", func(t *testing.T) {
		_, err := a.UpdateControl(ctx, bControls[0].ID, map[string]any{"name": "stolen"})
		assert.ErrorIs(t, err, db.ErrNotFound)
		got, err := b.GetControl(ctx, bControls[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "spoof", got.Name)
	})
	t.Run("delete across tenants", func(t *testing.T) {
		err := a.DeletePolicy(ctx, policiesOf(t, b)[0].ID)
		assert.ErrorIs(t, err, db.ErrNotFound)
		assert.Len(t, policiesOf(t, b), 3)
	})
}

func policiesOf(t *testing.T, c *db.TenantClient) []db.Policy {
	t.Helper()
	rows, err := c.ListPolicies(context.Background(), db.PolicyFilter{})
	require.NoError(t, err)
	return rows
}

func TestPaginationBound(t *testing.T) {
	ctx := context.Background()
	c := dbtest.Client(t, dbtest.Open(t), tenantA)
	for i := 0; i < 60; i++ {
		require.NoError(t, c.CreatePolicy(ctx, &db.Policy{Title: fmt.Sprintf("p-%02d", i)}))
	}

	for _, n := range []int{1, 10, 50} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			rows, err := c.ListPolicies(ctx, db.PolicyFilter{Limit: n})
			require.NoError(t, err)
			assert.Len(t, rows, n)
		})
	}

	rows, err := c.ListPolicies(ctx, db.PolicyFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, db.DefaultLimit)
}

func TestPolicyCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := dbtest.Client(t, dbtest.Open(t), tenantA)

	in := &db.Policy{
		Title:       "Política de Senhas",
		Description: "Requisitos mínimos de senha",
		Content:     "Senhas com 12 caracteres",
		Version:     "2.1",
		Status:      db.PolicyActive,
		Owner:       "ciso@example.com",
		Tags:        []string{"iam", "senha"},
	}
	require.NoError(t, c.CreatePolicy(ctx, in))
	require.NotEmpty(t, in.ID)

	got, err := c.GetPolicy(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, tenantA, got.TenantID)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Content, got.Content)
	assert.Equal(t, in.Version, got.Version)
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, in.Owner, got.Owner)
	assert.Equal(t, []string{"iam", "senha"}, []string(got.Tags))
	assert.False(t, got.CreatedAt.IsZero())

	updated, err := c.UpdatePolicy(ctx, in.ID, map[string]any{"status": db.PolicyArchived, "tenant_id": tenantB})
	require.NoError(t, err)
	assert.Equal(t, db.PolicyArchived, updated.Status)
	assert.Equal(t, tenantA, updated.TenantID)

	require.NoError(t, c.DeletePolicy(ctx, in.ID))
	_, err = c.GetPolicy(ctx, in.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListControlsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := dbtest.Client(t, dbtest.Open(t), tenantA)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.CreateControl(ctx, &db.Control{
			Name:                 fmt.Sprintf("c-%d", i),
			ControlType:          db.ControlPreventive,
			ImplementationStatus: db.StatusImplemented,
		}))
	}

	f := db.ControlFilter{ControlType: db.ControlPreventive, Limit: 10}
	first, err := c.ListControls(ctx, f)
	require.NoError(t, err)
	second, err := c.ListControls(ctx, f)
	require.NoError(t, err)

	require.Len(t, first, 5)
	ids := func(rows []db.Control) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ID
		}
		return out
	}
	assert.Equal(t, ids(first), ids(second))
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].CreatedAt.After(first[i-1].CreatedAt), "rows must be newest first")
	}
}

func TestDomainsAndControlCounts(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	root := &db.Domain{Name: "Organizacional"}
	require.NoError(t, a.CreateDomain(ctx, root))
	assert.Equal(t, 0, root.Level)

	child := &db.Domain{Name: "Pessoas", ParentID: &root.ID}
	require.NoError(t, a.CreateDomain(ctx, child))
	assert.Equal(t, 1, child.Level)

	err := b.CreateDomain(ctx, &db.Domain{Name: "intruso", ParentID: &root.ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, a.CreateControl(ctx, &db.Control{Name: "treinamento", DomainID: &child.ID}))
	err = b.CreateControl(ctx, &db.Control{Name: "x", DomainID: &child.ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	children, err := a.ListDomains(ctx, db.DomainFilter{ParentID: root.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, 1, children[0].ControlsCount)

	roots, err := a.ListDomains(ctx, db.DomainFilter{RootsOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	bControls, err := b.ListControls(ctx, db.ControlFilter{})
	require.NoError(t, err)
	assert.Empty(t, bControls)
}

func TestImportFrameworkAndMapControl(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	fw := &db.Framework{Name: "ISO 27001", Version: "2022"}
	catalog := []db.FrameworkControl{
		{Code: "A.5.1", Title: "Políticas de segurança", Priority: db.PriorityHigh},
		{Code: "A.5.2", Title: "Papéis e responsabilidades"},
	}
	require.NoError(t, a.ImportFramework(ctx, fw, catalog))
	assert.Equal(t, 2, fw.ControlsCount)

	entries, err := a.ListFrameworkControls(ctx, fw.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A.5.1", entries[0].Code)
	assert.Equal(t, db.PriorityMedium, entries[1].Priority)

	ctl := &db.Control{Name: "Política aprovada"}
	require.NoError(t, a.CreateControl(ctx, ctl))

	m := &db.ControlFramework{ControlID: ctl.ID, FrameworkID: fw.ID, FrameworkControlID: entries[0].ID}
	require.NoError(t, a.MapControl(ctx, m))

	err = b.MapControl(ctx, &db.ControlFramework{ControlID: ctl.ID, FrameworkID: fw.ID, FrameworkControlID: entries[0].ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = a.MapControl(ctx, &db.ControlFramework{ControlID: ctl.ID, FrameworkID: "other", FrameworkControlID: entries[0].ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	mappings, err := a.ListControlMappings(ctx, fw.ID)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)

	bEntries, err := b.ListFrameworkControls(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, bEntries)
}

func TestCrosswalkRequiresTenantCatalog(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	importOne := func(c *db.TenantClient, name, code string) (string, string) {
		t.Helper()
		fw := &db.Framework{Name: name, Version: "1"}
		require.NoError(t, c.ImportFramework(ctx, fw, []db.FrameworkControl{{Code: code}}))
		entries, err := c.ListFrameworkControls(ctx, fw.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		return fw.ID, entries[0].ID
	}
	isoID, isoEntry := importOne(a, "ISO 27001", "A.5.1")
	nistID, nistEntry := importOne(a, "NIST CSF", "PR.AC-1")
	bFwID, bEntry := importOne(b, "SOC 2", "CC6.1")

	tests := []struct {
		name string
		cw   db.FrameworkCrosswalk
		err  bool
	}{
		{"own catalog", db.FrameworkCrosswalk{SourceFrameworkID: isoID, SourceControlID: isoEntry, TargetFrameworkID: nistID, TargetControlID: nistEntry}, false},
		{"other tenant target", db.FrameworkCrosswalk{SourceFrameworkID: isoID, SourceControlID: isoEntry, TargetFrameworkID: bFwID, TargetControlID: bEntry}, true},
		{"other tenant source", db.FrameworkCrosswalk{SourceFrameworkID: bFwID, SourceControlID: bEntry, TargetFrameworkID: nistID, TargetControlID: nistEntry}, true},
		{"entry of another framework", db.FrameworkCrosswalk{SourceFrameworkID: isoID, SourceControlID: nistEntry, TargetFrameworkID: nistID, TargetControlID: nistEntry}, true},
		{"foreign entry under own framework", db.FrameworkCrosswalk{SourceFrameworkID: isoID, SourceControlID: isoEntry, TargetFrameworkID: nistID, TargetControlID: bEntry}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw := tt.cw
			cw.RelationType = "equivalent"
			err := a.CreateCrosswalk(ctx, &cw)
			if tt.err {
				assert.ErrorIs(t, err, db.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tenantA, cw.TenantID)
		})
	}

	rows, err := a.ListCrosswalks(ctx, db.CrosswalkFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReferencesStayInTenant(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	bPolicy := &db.Policy{Title: "Política B"}
	require.NoError(t, b.CreatePolicy(ctx, bPolicy))
	bCtl := &db.Control{Name: "controle B"}
	require.NoError(t, b.CreateControl(ctx, bCtl))

	err := a.CreateControl(ctx, &db.Control{Name: "MFA", PolicyID: &bPolicy.ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	ctl := &db.Control{Name: "MFA"}
	require.NoError(t, a.CreateControl(ctx, ctl))
	_, err = a.UpdateControl(ctx, ctl.ID, map[string]any{"policy_id": bPolicy.ID})
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = a.CreateTechnicalDocument(ctx, &db.TechnicalDocument{Title: "Runbook", ControlID: &bCtl.ID})
	assert.ErrorIs(t, err, db.ErrNotFound)
	require.NoError(t, a.CreateTechnicalDocument(ctx, &db.TechnicalDocument{Title: "Runbook", ControlID: &ctl.ID}))

	docs, err := a.ListTechnicalDocuments(ctx, db.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCredentialsActiveWindow(t *testing.T) {
	ctx := context.Background()
	c := dbtest.Client(t, dbtest.Open(t), tenantA)
	now := time.Now().UTC()

	current := &db.CredentialsRegistry{AccessType: "vpn", ValidFrom: now.AddDate(0, 0, -10), ValidUntil: ptr(now.AddDate(0, 0, 10))}
	expired := &db.CredentialsRegistry{AccessType: "ssh", ValidFrom: now.AddDate(0, 0, -30), ValidUntil: ptr(now.AddDate(0, 0, -1))}
	future := &db.CredentialsRegistry{AccessType: "db", ValidFrom: now.AddDate(0, 0, 5)}
	for _, cr := range []*db.CredentialsRegistry{current, expired, future} {
		require.NoError(t, c.CreateCredential(ctx, cr))
		assert.Equal(t, db.ApprovalPending, cr.ApprovalStatus)
	}

	all, err := c.ListCredentials(ctx, db.GrantFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := c.ListCredentials(ctx, db.GrantFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, current.ID, active[0].ID)
	assert.True(t, active[0].ActiveAt(now))

	decided, err := c.DecideCredential(ctx, expired.ID, db.ApprovalRejected, "approver-1")
	require.NoError(t, err)
	assert.Equal(t, db.ApprovalRejected, decided.ApprovalStatus)
	assert.False(t, decided.IsActive)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "approver-1", *decided.ApprovedBy)
	assert.NotNil(t, decided.ApprovedAt)
}

func TestPrivilegedAccessAudit(t *testing.T) {
	ctx := context.Background()
	c := dbtest.Client(t, dbtest.Open(t), tenantA)

	pa := &db.PrivilegedAccess{UserID: "u-1", AccessLevel: "root", Justification: "plantão"}
	require.NoError(t, c.CreatePrivilegedAccess(ctx, pa))
	assert.Equal(t, db.AuditPendingReview, pa.AuditStatus)

	got, err := c.RecordPrivilegedAccessAudit(ctx, pa.ID, db.AuditCompliant, "revisado", "auditor-1")
	require.NoError(t, err)
	assert.Equal(t, db.AuditCompliant, got.AuditStatus)
	assert.Equal(t, "revisado", got.AuditNotes)
	require.NotNil(t, got.LastAuditAt)

	_, err = c.RecordPrivilegedAccessAudit(ctx, "missing", db.AuditCompliant, "", "")
	assert.ErrorIs(t, err, db.ErrNotFound)

	list, err := c.ListPrivilegedAccess(ctx, db.GrantFilter{Status: db.AuditCompliant})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEvaluations(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)
	b := dbtest.Client(t, gdb, tenantB)

	ctl := &db.Control{Name: "backup"}
	require.NoError(t, a.CreateControl(ctx, ctl))

	e := &db.ControlEffectiveness{ControlID: ctl.ID, Score: 80, Assessor: "ana"}
	require.NoError(t, a.CreateEvaluation(ctx, e))
	assert.False(t, e.EvaluationDate.IsZero())

	err := b.CreateEvaluation(ctx, &db.ControlEffectiveness{ControlID: ctl.ID, Score: 10})
	assert.ErrorIs(t, err, db.ErrNotFound)

	updated, err := a.UpdateEvaluation(ctx, e.ID, map[string]any{"score": 65.5})
	require.NoError(t, err)
	assert.Equal(t, 65.5, updated.Score)

	all, err := a.AllEvaluations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, a.DeleteEvaluation(ctx, e.ID))
	assert.ErrorIs(t, a.DeleteEvaluation(ctx, e.ID), db.ErrNotFound)
}

func TestAuditAndMembership(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Client(t, gdb, tenantA)

	require.NoError(t, a.WriteAudit(ctx, &db.AuditLog{
		Action:     "create_policy",
		EntityType: "policy",
		EntityID:   "p-1",
		ActorID:    ptr("user-1"),
		Payload:    db.NewJSON(map[string]string{"title": "x"}),
	}))
	logs, err := a.ListAuditLogs(ctx, db.AuditFilter{Action: "create_policy"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, tenantA, logs[0].TenantID)
	assert.JSONEq(t, `{"title":"x"}`, string(logs[0].Payload))

	require.NoError(t, gdb.Create(&db.TenantMember{UserID: "user-1", TenantID: tenantA, Role: "manager"}).Error)
	m, err := db.FindMembership(gdb, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "manager", m.Role)

	_, err = db.FindMembership(gdb, "nobody")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = db.FindTenantMembership(gdb, "user-1", tenantB)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
