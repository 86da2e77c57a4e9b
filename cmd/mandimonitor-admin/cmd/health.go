package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the core's health and readiness probes",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	healthResp, err := http.Get(serverURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	healthResp.Body.Close()
	fmt.Printf("healthz: %s\n", healthResp.Status)

	readyResp, err := http.Get(serverURL + "/ready")
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	readyResp.Body.Close()
	fmt.Printf("ready:   %s\n", readyResp.Status)

	if healthResp.StatusCode != http.StatusOK || readyResp.StatusCode != http.StatusOK {
		return fmt.Errorf("core is unhealthy or not ready")
	}
	return nil
}
