package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/V4T54L/surveystack/internal/adapter/repository/postgres"
	"github.com/V4T54L/surveystack/internal/pkg/config"
	"github.com/V4T54L/surveystack/internal/pkg/logger"
	"github.com/V4T54L/surveystack/internal/usecase"
	"github.com/V4T54L/surveystack/internal/vertical"

	_ "github.com/lib/pq"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Inspect and manage hostname tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newClassifyCommand(),
		newTopicCommand(),
		newDeriveCommand(),
		newVerticalsCommand(),
		newResolveCommand(),
		newFeaturesCommand(),
	)
	return cmd
}

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <hostname>...",
		Short: "Print the vertical each hostname classifies into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := vertical.NewClassifier(vertical.DefaultTaxonomy())
			for _, host := range args {
				match := classifier.Match(host)
				if match.Keyword == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", host, match.Vertical)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(keyword %q)\n", host, match.Vertical, match.Keyword)
			}
			return nil
		},
	}
}

func newTopicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topic <hostname>...",
		Short: "Print the topic extracted from each hostname",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, host := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", host, vertical.ExtractTopic(host))
			}
			return nil
		},
	}
}

func newDeriveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <hostname>",
		Short: "Print the full derived configuration for a hostname as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := vertical.NormalizeHostname(args[0])
			if host == "" {
				return fmt.Errorf("invalid hostname %q", args[0])
			}
			cfg := vertical.NewDeriver(vertical.DefaultTaxonomy()).Derive(host)
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}

func newVerticalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verticals",
		Short: "List the vertical keys in classification order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(vertical.DefaultTaxonomy().Keys(), "\n"))
			return nil
		},
	}
}

func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <hostname>",
		Short: "Resolve a hostname against the database, creating its tenant if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, log, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			resolver := usecase.NewResolveTenantUseCase(
				postgres.NewTenantRepository(db, log), nil,
				vertical.NewDeriver(vertical.DefaultTaxonomy()),
				log, nil, cfg.TenantCacheTTL, cfg.StoreTimeout,
			)
			rec, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newFeaturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "features <hostname> <feature>=<true|false>...",
		Short: "Override feature flags of an existing tenant",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseOverrides(args[1:])
			if err != nil {
				return err
			}

			db, log, _, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			admin := usecase.NewAdminTenantUseCase(postgres.NewTenantRepository(db, log), nil, log)
			rec, err := admin.UpdateFeatures(cmd.Context(), args[0], overrides)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec.Features)
		},
	}
}

// parseOverrides turns name=bool pairs into a feature override map.
func parseOverrides(pairs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected <feature>=<true|false>, got %q", pair)
		}
		switch strings.ToLower(value) {
		case "true", "on", "1":
			out[name] = true
		case "false", "off", "0":
			out[name] = false
		default:
			return nil, fmt.Errorf("invalid value %q for feature %q", value, name)
		}
	}
	return out, nil
}

func openStore() (*sql.DB, *slog.Logger, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return db, logger.New(cfg.LogLevel), cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
