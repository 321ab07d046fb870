package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/internal/storage"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hookctl",
		Short:         "Manage the webhook relay registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")

	root.AddCommand(registerCmd(), resolveCmd(), countCmd(), importCmd(), validateCmd())
	return root
}

// withService opens the configured registry for the duration of fn
func withService(cmd *cobra.Command, fn func(*webhook.Service) error) error {
	ctx := cmd.Context()
	cfg, err := config.GetConfigFrom(configDir)
	if err != nil {
		return err
	}
	backends, err := storage.Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "closing storage: %v\n", err)
		}
	}()
	return fn(webhook.NewService(backends.Repository, cfg.BaseURL, cfg.DestinationPrefix))
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [destination-url]",
		Short: "Register a destination and print its relay URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *webhook.Service) error {
				reg, err := s.Register(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reg.RelayURL)
				return nil
			})
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [id]",
		Short: "Print the destination registered for a relay id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *webhook.Service) error {
				destination, err := s.Resolve(cmd.Context(), args[0])
				if errors.Is(err, webhook.ErrNotFound) {
					return fmt.Errorf("no webhook registered for %s", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), destination)
				return nil
			})
		},
	}
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of registered webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *webhook.Service) error {
				n, err := s.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [seed-file]",
		Short: "Import existing relay mappings from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := routes.NewLoader()
			if err := loader.Load(args[0]); err != nil {
				return err
			}
			return withService(cmd, func(s *webhook.Service) error {
				result, err := s.Import(cmd.Context(), loader.Webhooks())
				if err != nil {
					return err
				}
				printImport(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [seed-file]",
		Short: "Check a YAML seed file without touching the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := routes.NewLoader()
			if err := loader.Load(args[0]); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			loaded := loader.List()
			fmt.Fprintf(out, "%d webhook(s) valid\n", len(loaded))
			for i, route := range loaded {
				fmt.Fprintf(out, "%d. %s\n", i+1, route.ID)
			}
			return nil
		},
	}
}

func printImport(out io.Writer, result webhook.ImportResult) {
	fmt.Fprintf(out, "imported %d, skipped %d\n", result.Imported, len(result.Skipped))
	ids := make([]string, 0, len(result.Skipped))
	for id := range result.Skipped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s: %v\n", id, result.Skipped[id])
	}
}
