// Package web assembles the HTTP request pipeline.
package web

import (
	"net/http"

	"github.com/pandeptwidyaop/uatrack/internal/server/web/api"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/middleware"
)

// NewRouter builds the pipeline
//
//	SecurityHeaders -> RobotsEnforcer -> Tracker -> routes
//
// A nil enforcer or tracker leaves that stage out. Denied requests never reach
// the tracker and are not recorded.
func NewRouter(h *api.Handler, enforcer *middleware.RobotsEnforcer, tracker *middleware.Tracker) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	if tracker != nil {
		handler = tracker.Track(handler)
	}
	if enforcer != nil {
		handler = enforcer.Enforce(handler)
	}
	return middleware.SecurityHeaders(handler)
}
