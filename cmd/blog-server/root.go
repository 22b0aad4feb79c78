package main

import (
	"github.com/spf13/cobra"

	"blog-server-go/internal/bootstrap"
)

// Global flags available to all subcommands.
var configFile string

// runFunc starts the servers; replaced in tests.
var runFunc = bootstrap.Run

// migrateFunc applies schema migrations; replaced in tests.
var migrateFunc = bootstrap.Migrate

// NewRootCmd creates the root command of the blog server CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "blog-server",
		Short:         "Blog identity service and API gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default .config.yaml or config.yaml)")

	cmd.AddCommand(newServeCmd("serve", "Start the auth service and the gateway", bootstrap.ModeAll))
	cmd.AddCommand(newServeCmd("auth", "Start only the auth service", bootstrap.ModeAuth))
	cmd.AddCommand(newServeCmd("gateway", "Start only the gateway", bootstrap.ModeGateway))
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func newServeCmd(use, short string, mode bootstrap.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFunc(cmd.Context(), bootstrap.Options{ConfigPath: configFile, Mode: mode})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrateFunc(cmd.Context(), bootstrap.Options{ConfigPath: configFile})
		},
	}
}
