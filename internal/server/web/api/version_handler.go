package api

import (
	"net/http"

	"github.com/pandeptwidyaop/uatrack/internal/version"
)

// version returns the current version information
func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, version.GetVersion())
}
