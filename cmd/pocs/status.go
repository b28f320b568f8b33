package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/panoptes/pocs-core/internal/api"
	"github.com/panoptes/pocs-core/internal/infrastructure/config"
)

// statusTimeout bounds the status request.
const statusTimeout = 5 * time.Second

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running unit",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw JSON response")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.API.Enabled {
		return fmt.Errorf("api is disabled in the configuration")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	status, err := fetchStatus(ctx, statusURL(cfg.API))
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	printStatus(cmd.OutOrStdout(), status, time.Now())
	return nil
}

func statusURL(cfg config.APIConfig) string {
	return fmt.Sprintf("http://%s:%d/api/v1/status", cfg.Host, cfg.Port)
}

func fetchStatus(ctx context.Context, url string) (*api.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requesting status: %s", resp.Status)
	}

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &status, nil
}

func printStatus(w io.Writer, s *api.StatusResponse, now time.Time) {
	fmt.Fprintf(w, "Unit:   %s\n", s.Unit)
	fmt.Fprintf(w, "State:  %s\n", s.State)
	fmt.Fprintf(w, "Flags:  connected=%t initialized=%t interrupted=%t keep_running=%t\n",
		s.Flags.Connected, s.Flags.Initialized, s.Flags.Interrupted, s.Flags.KeepRunning)

	if s.Safety == nil {
		fmt.Fprintln(w, "Safety: not evaluated yet")
	} else {
		verdict := "UNSAFE"
		if s.Safety.Safe {
			verdict = "safe"
		}
		fmt.Fprintf(w, "Safety: %s (dark=%t weather=%t free_space=%t, %s)\n",
			verdict, s.Safety.IsDark, s.Safety.GoodWeather, s.Safety.FreeSpace,
			humanize.RelTime(s.Safety.EvaluatedAt, now, "ago", "from now"))
	}

	if len(s.Units) > 0 {
		fmt.Fprintln(w, "Units:")
		for _, u := range s.Units {
			state := "running"
			if !u.Alive {
				state = "stopped"
			}
			fmt.Fprintf(w, "  %-14s pid %-7d %s\n", u.Name, u.PID, state)
		}
	}

	if len(s.Commands) > 0 {
		fmt.Fprintln(w, "Recent commands:")
		for _, c := range s.Commands {
			fmt.Fprintf(w, "  %-8s %-8s %s\n", c.Kind, c.Outcome,
				humanize.RelTime(c.ReceivedAt, now, "ago", "from now"))
		}
	}
}
