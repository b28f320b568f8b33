package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/panoptes/pocs-core/internal/audit"
)

const (
	// healthCheckTimeout bounds each infrastructure check.
	healthCheckTimeout = 2 * time.Second

	// recentCommands is how many log entries the status endpoint includes.
	recentCommands = 10
)

// HealthResponse reports the outcome of every health check.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// StatusResponse is the unit's current status.
type StatusResponse struct {
	Unit     string          `json:"unit"`
	State    string          `json:"state"`
	Flags    FlagsResponse   `json:"flags"`
	Safety   *SafetyResponse `json:"safety,omitempty"`
	Units    []UnitResponse  `json:"units"`
	Commands []audit.Entry   `json:"commands,omitempty"`
}

// FlagsResponse mirrors the supervisor's run flags.
type FlagsResponse struct {
	Connected   bool `json:"connected"`
	Initialized bool `json:"initialized"`
	Interrupted bool `json:"interrupted"`
	KeepRunning bool `json:"keep_running"`
	DoStates    bool `json:"do_states"`
	DoCmdCheck  bool `json:"do_cmd_check"`
}

// SafetyResponse is the last safety evaluation.
type SafetyResponse struct {
	Safe        bool      `json:"safe"`
	IsDark      bool      `json:"is_dark"`
	GoodWeather bool      `json:"good_weather"`
	FreeSpace   bool      `json:"free_space"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// UnitResponse describes one messaging unit.
type UnitResponse struct {
	Name  string `json:"name"`
	PID   int    `json:"pid"`
	Alive bool   `json:"alive"`
}

// handleHealth runs every configured check. Any failure, or a dead
// messaging unit while the unit is connected, reports 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  make(map[string]string, len(s.checks)+1),
	}

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()

		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if s.unit.Flags().Connected {
		resp.Checks["messaging"] = "ok"
		for _, u := range s.unit.Units() {
			if !u.Alive() {
				resp.Checks["messaging"] = u.Name() + " not running"
				resp.Status = "degraded"
				break
			}
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns the unit's state, flags, safety and messaging
// units, plus the most recent commands when a command log is configured.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	flags := s.unit.Flags()
	resp := StatusResponse{
		Unit:  s.unit.Name(),
		State: s.unit.State(),
		Flags: FlagsResponse{
			Connected:   flags.Connected,
			Initialized: flags.Initialized,
			Interrupted: flags.Interrupted,
			KeepRunning: flags.KeepRunning,
			DoStates:    flags.DoStates,
			DoCmdCheck:  flags.DoCmdCheck,
		},
		Units: []UnitResponse{},
	}

	if s.safety != nil {
		if last, at := s.safety.Last(); !at.IsZero() {
			resp.Safety = &SafetyResponse{
				Safe:        last.Safe(),
				IsDark:      last.IsDark,
				GoodWeather: last.GoodWeather,
				FreeSpace:   last.FreeSpace,
				EvaluatedAt: at,
			}
		}
	}

	for _, u := range s.unit.Units() {
		resp.Units = append(resp.Units, UnitResponse{Name: u.Name(), PID: u.PID(), Alive: u.Alive()})
	}
	slices.SortFunc(resp.Units, func(a, b UnitResponse) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})

	if s.commands != nil {
		result, err := s.commands.List(r.Context(), audit.Filter{Limit: recentCommands})
		if err != nil {
			s.logger.Warn("listing recent commands", "error", err)
		} else {
			resp.Commands = result.Entries
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
