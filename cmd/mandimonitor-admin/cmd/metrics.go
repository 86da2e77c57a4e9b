package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// MetricsResponse mirrors internal/api.MetricsResponse; the admin CLI has
// no dependency on the server's packages, only its JSON contract.
type MetricsResponse struct {
	Users              int `json:"users"`
	WatchCreators      int `json:"watch_creators"`
	LiveWatches        int `json:"live_watches"`
	Clicks             int `json:"clicks"`
	ScrapeObservations int `json:"scrape_observations"`
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show Admin Reader metrics counts",
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	body, err := adminGet("/admin/metrics")
	if err != nil {
		return err
	}

	var m MetricsResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(m)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tCOUNT")
	fmt.Fprintln(w, "------\t-----")
	fmt.Fprintf(w, "users\t%d\n", m.Users)
	fmt.Fprintf(w, "watch_creators\t%d\n", m.WatchCreators)
	fmt.Fprintf(w, "live_watches\t%d\n", m.LiveWatches)
	fmt.Fprintf(w, "clicks\t%d\n", m.Clicks)
	fmt.Fprintf(w, "scrape_observations\t%d\n", m.ScrapeObservations)
	return w.Flush()
}
