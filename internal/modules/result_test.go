package modules

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeEncode(t *testing.T) {
	type row struct {
		ID string `json:"id"`
	}
	single, err := OK(row{ID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	list, err := List([]row{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	empty, err := List[row](nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		env  Envelope
		want string
	}{
		{"single", single, `{"success":true,"data":{"id":"p1"}}`},
		{"list", list, `{"success":true,"data":[{"id":"a"},{"id":"b"}],"count":2}`},
		{"empty list", empty, `{"success":true,"data":[],"count":0}`},
		{"fail", Fail(`title "x" é obrigatório`), `{"success":false,"error":"title \"x\" é obrigatório"}`},
		{"unconfigured", Unconfigured(), `{"success":false,"data":[],"error":"Supabase não configurado"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.env.Encode()
			if !json.Valid([]byte(got)) {
				t.Fatalf("invalid JSON: %s", got)
			}
			var gotV, wantV any
			_ = json.Unmarshal([]byte(got), &gotV)
			_ = json.Unmarshal([]byte(tt.want), &wantV)
			gb, _ := json.Marshal(gotV)
			wb, _ := json.Marshal(wantV)
			if string(gb) != string(wb) {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	list, _ := List([]int{1, 2, 3})
	got, err := DecodeEnvelope(list.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Success || got.Count == nil || *got.Count != 3 || string(got.Data) != "[1,2,3]" {
		t.Errorf("decoded = %+v", got)
	}

	got, err = DecodeEnvelope(Unconfigured().Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Success || got.Error != UnconfiguredMessage {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := DecodeEnvelope("not json"); err == nil {
		t.Error("expected error for non-JSON text")
	}
}

func TestEnvelopeSucceeded(t *testing.T) {
	if !EnvelopeSucceeded(`{"success":true,"data":{}}`) {
		t.Error("success envelope")
	}
	if EnvelopeSucceeded(Fail("x").Encode()) {
		t.Error("failed envelope")
	}
	if !EnvelopeSucceeded("plain text") {
		t.Error("non-envelope text counts as success")
	}
}
