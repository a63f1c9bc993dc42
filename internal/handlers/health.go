package handlers

import "net/http"

// Healthz reports process liveness. It does not touch the store.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
