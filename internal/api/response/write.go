package response

import (
	"encoding/json"
	"net/http"
)

// OK writes v as a 200 JSON response. Every successful endpoint answers 200.
func OK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
