package db

import (
	"testing"
	"time"
)

func TestNewJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "{}"},
		{"map", map[string]int{"n": 1}, `{"n":1}`},
		{"unmarshalable", make(chan int), "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(NewJSON(tt.in)); got != tt.want {
				t.Errorf("NewJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name  string
		grant PrivilegedAccess
		want  bool
	}{
		{"open ended", PrivilegedAccess{IsActive: true, ValidFrom: past}, true},
		{"inside window", PrivilegedAccess{IsActive: true, ValidFrom: past, ValidUntil: &until}, true},
		{"expired", PrivilegedAccess{IsActive: true, ValidFrom: past.Add(-time.Hour), ValidUntil: &past}, false},
		{"not yet valid", PrivilegedAccess{IsActive: true, ValidFrom: until}, false},
		{"revoked", PrivilegedAccess{IsActive: false, ValidFrom: past}, false},
		{"ends exactly now", PrivilegedAccess{IsActive: true, ValidFrom: past, ValidUntil: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grant.ActiveAt(now); got != tt.want {
				t.Errorf("ActiveAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableNames(t *testing.T) {
	tests := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{Policy{}, "policies"},
		{Control{}, "controls"},
		{Domain{}, "domains"},
		{Framework{}, "frameworks"},
		{FrameworkControl{}, "framework_controls"},
		{ControlFramework{}, "control_frameworks"},
		{ControlEffectiveness{}, "control_effectiveness"},
		{CredentialsRegistry{}, "credentials_registry"},
		{PrivilegedAccess{}, "privileged_access"},
		{TechnicalDocument{}, "technical_documents"},
		{AuditLog{}, "audit_logs"},
	}
	for _, tt := range tests {
		if got := tt.model.TableName(); got != tt.want {
			t.Errorf("%T.TableName() = %q, want %q", tt.model, got, tt.want)
		}
	}
}
