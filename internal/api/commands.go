package api

import (
	"net/http"
	"strconv"

	"github.com/panoptes/pocs-core/internal/audit"
	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/dispatch"
)

// handleListCommands returns paginated command log entries with optional filters.
//
// Query parameters:
//   - kind: park, shutdown or unknown
//   - outcome: queued, handled, ignored or failed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeDisabled, "command log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Kind:    q.Get("kind"),
		Outcome: q.Get("outcome"),
	}

	if !validKind(filter.Kind) {
		writeBadRequest(w, "kind must be park, shutdown or unknown")
		return
	}
	if !validOutcome(filter.Outcome) {
		writeBadRequest(w, "outcome must be queued, handled, ignored or failed")
		return
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.commands.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func validKind(k string) bool {
	switch command.Kind(k) {
	case "", command.KindPark, command.KindShutdown, command.KindUnknown:
		return true
	default:
		return false
	}
}

func validOutcome(o string) bool {
	switch o {
	case "", audit.OutcomeQueued,
		string(dispatch.OutcomeHandled), string(dispatch.OutcomeIgnored), string(dispatch.OutcomeFailed):
		return true
	default:
		return false
	}
}
