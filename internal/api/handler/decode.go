package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/model"
)

// maxBodyBytes caps request bodies; every payload here is a few fields
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.NewInvalidRequestError("Invalid request body")
	}
	return nil
}

// gameCode reads the {code} path variable; codes are case-insensitive
func gameCode(r *http.Request) model.GameCode {
	return model.GameCode(strings.ToUpper(strings.TrimSpace(mux.Vars(r)["code"])))
}
