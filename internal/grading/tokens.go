package grading

import (
	"encoding/json"
	"strconv"
)

// Tokens turns a decoded JSON answer object into answer tokens. Strings pass
// through and numbers are rendered without an exponent; null, booleans,
// arrays and objects are dropped, which grades them as unattempted.
func Tokens(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for qid, v := range raw {
		switch t := v.(type) {
		case string:
			out[qid] = t
		case float64:
			out[qid] = strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			out[qid] = t.String()
		}
	}
	return out
}
