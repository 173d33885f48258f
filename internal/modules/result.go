package modules

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// UnconfiguredMessage is returned by every tool while no store is configured.
const UnconfiguredMessage = "Supabase não configurado"

// Envelope is the uniform tool response: {"success":true,"data":…,"count":N}
// or {"success":false,"error":"…"}.
type Envelope struct {
	Success bool
	Data    jx.Raw // nil omits the field
	Count   *int
	Error   string
}

// OK wraps a single value.
func OK[T any](v T) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "encode data")
	}
	return Envelope{Success: true, Data: raw}, nil
}

// List wraps rows and reports their count. A nil slice encodes as [].
func List[T any](rows []T) (Envelope, error) {
	if rows == nil {
		rows = []T{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "encode data")
	}
	n := len(rows)
	return Envelope{Success: true, Data: raw, Count: &n}, nil
}

// Fail is a failed call carrying msg.
func Fail(msg string) Envelope {
	return Envelope{Error: msg}
}

// Unconfigured is the fallback answered without touching the store.
func Unconfigured() Envelope {
	return Envelope{Error: UnconfiguredMessage, Data: jx.Raw("[]")}
}

// Encode writes the envelope as JSON text.
func (e Envelope) Encode() string {
	var enc jx.Encoder
	enc.ObjStart()
	enc.FieldStart("success")
	enc.Bool(e.Success)
	if e.Data != nil {
		enc.FieldStart("data")
		enc.Raw(e.Data)
	}
	if e.Count != nil {
		enc.FieldStart("count")
		enc.Int(*e.Count)
	}
	if !e.Success {
		enc.FieldStart("error")
		enc.Str(e.Error)
	}
	enc.ObjEnd()
	return enc.String()
}

// DecodeEnvelope parses text produced by Encode.
func DecodeEnvelope(text string) (Envelope, error) {
	var e Envelope
	d := jx.DecodeStr(text)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			e.Success = v
			return err
		case "data":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			e.Data = append(jx.Raw(nil), raw...)
			return nil
		case "count":
			n, err := d.Int()
			e.Count = &n
			return err
		case "error":
			s, err := d.Str()
			e.Error = s
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	return e, nil
}

// EnvelopeSucceeded reports whether text is an envelope with success true.
// Text that is not an envelope counts as success.
func EnvelopeSucceeded(text string) bool {
	e, err := DecodeEnvelope(text)
	if err != nil {
		return true
	}
	return e.Success
}
