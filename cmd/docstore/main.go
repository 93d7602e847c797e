package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docstore",
	Short: "Job board document store service and query tool",
	Long: `docstore serves the job board's document store over HTTP and offers
one-off commands against the configured backend.

The backend is chosen with STORE_BACKEND (sqlite, mongo, memory); settings come
from the environment or a .env file in the working directory.

Examples:
  # Run the HTTP service
  docstore serve

  # Newest active jobs
  docstore find jobs '{"status":"active"}' --sort created_at:-1 --limit 10

  # Count documents
  docstore count company_parameters`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, findCmd, countCmd, insertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
