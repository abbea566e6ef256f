package gencache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keyPayload is the canonical input to the cache key. encoding/json writes
// map keys in sorted order, so two parameter maps with equal contents always
// hash identically regardless of construction order.
type keyPayload struct {
	Model     string         `json:"model"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}

// Key derives the deterministic cache key for one generation request.
func Key(operation, model string, params map[string]any) string {
	data, err := json.Marshal(keyPayload{
		Model:     model,
		Operation: operation,
		Params:    params,
	})
	if err != nil {
		// Params come from our own handlers and are always plain JSON types.
		panic("gencache: unmarshalable params: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
