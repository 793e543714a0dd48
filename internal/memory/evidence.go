package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// EvidenceID derives the deterministic cache identifier for a tool call.
// The identifier is a pure function of the tool name and the parameter
// mapping: parameters are canonicalized by sorting keys before hashing, so
// two calls with the same tool and the same parameters produce the same
// identifier regardless of map iteration order. This is what makes the
// redundancy check in the control stage possible.
func EvidenceID(tool string, params map[string]any) string {
	h := sha256.New()
	h.Write([]byte(tool))
	h.Write([]byte{0})

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		h.Write([]byte(key))
		h.Write([]byte{'='})
		h.Write(canonicalValue(params[key]))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// canonicalValue renders a parameter value into a stable byte form.
// json.Marshal sorts map keys, which covers nested mappings; values that
// cannot marshal fall back to their fmt representation.
func canonicalValue(value any) []byte {
	data, err := json.Marshal(value)
	if err != nil {
		return []byte(fmt.Sprintf("%v", value))
	}
	return data
}
