package modules

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// DecodeParams converts validated tool params into a typed argument struct.
func DecodeParams(params map[string]any, dst any) error {
	b, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "encode params")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrap(err, "decode params")
	}
	return nil
}
