package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError emits the same {data, error} envelope the handlers use, so
// middleware rejections are indistinguishable on the wire.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": message},
	})
}
