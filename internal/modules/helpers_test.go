package modules

import (
	"testing"
)

func TestDecodeParams(t *testing.T) {
	var dst struct {
		TenantID string   `json:"tenant_id"`
		Limit    int      `json:"limit"`
		Score    *float64 `json:"score"`
		Tags     []string `json:"tags"`
	}
	err := DecodeParams(map[string]any{
		"tenant_id": "t1",
		"limit":     10.0,
		"score":     85.5,
		"tags":      []any{"a", "b"},
	}, &dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.TenantID != "t1" || dst.Limit != 10 || dst.Score == nil || *dst.Score != 85.5 || len(dst.Tags) != 2 {
		t.Errorf("decoded = %+v", dst)
	}

	var bad struct {
		Limit int `json:"limit"`
	}
	if err := DecodeParams(map[string]any{"limit": "ten"}, &bad); err == nil {
		t.Error("expected error for mistyped field")
	}
}

func TestLocalizedText(t *testing.T) {
	lt := LocalizedText{"en-US": "List policies", "pt-BR": "Listar políticas"}
	if got := lt.Text("pt-BR"); got != "Listar políticas" {
		t.Errorf("pt-BR = %q", got)
	}
	if got := lt.Text("ja-JP"); got != "List policies" {
		t.Errorf("fallback = %q", got)
	}
}
