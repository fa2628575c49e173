package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// queryBool parses an optional boolean query parameter.
// Returns nil if the parameter is absent, or an error response is written
// and ok is false if the value is not a valid boolean.
func queryBool(w http.ResponseWriter, r *http.Request, name string) (value *bool, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		BadRequest(w, "Invalid value for query parameter '"+name+"'")
		return nil, false
	}
	return &parsed, true
}
