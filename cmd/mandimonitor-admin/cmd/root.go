package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL    string
	adminUser    string
	adminPass    string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mandimonitor-admin",
	Short: "MandiMonitor admin CLI - read-only operator visibility",
	Long: `mandimonitor-admin talks to a running MandiMonitor core's Admin
Reader API. It is read-only: metrics counts, a streaming price
observation export, and a health probe.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnvOrDefault("MANDIMONITOR_URL", "http://localhost:8080"), "MandiMonitor server URL")
	rootCmd.PersistentFlags().StringVar(&adminUser, "admin-user", getEnvOrDefault("ADMIN_USER", ""), "Admin Basic Auth username")
	rootCmd.PersistentFlags().StringVar(&adminPass, "admin-pass", getEnvOrDefault("ADMIN_PASS", ""), "Admin Basic Auth password")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
