package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title BMI Tracker API
// @version 1.0
// @description BMI measurements, history and instructor-authored diet plans.
// @BasePath /api
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name bmi_session
func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "bmi-tracker",
		Short: "BMI tracker API server",
		// running without a subcommand starts the server
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config-dir", ".", "directory containing config.yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexes(cmd.Context(), configPath)
		},
	})
	return rootCmd
}
