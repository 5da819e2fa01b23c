package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slatehq/slate/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "slate",
		Short: "slate - content production planning for agencies",
		Long: `slate manages per-client content backlogs and computes a deterministic
visual schedule from weekly production capacity. Run the API server with
"slate serve" or inspect a client's plan with "slate plan".`,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.PlanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
