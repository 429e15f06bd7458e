package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AccountsPayload is the composite accounts answer with entries kept raw.
type AccountsPayload struct {
	Banks []json.RawMessage `json:"banks"`
	Debts []json.RawMessage `json:"debts"`
}

// Feed is the raw transaction list.
type Feed []json.RawMessage

// Raw marshals each value into its own raw entry.
func Raw[T any](values []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal entry: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeList splits a JSON array into raw entries. A body that is not an
// array is a transport failure for the caller.
func DecodeList(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []json.RawMessage{}, nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}
