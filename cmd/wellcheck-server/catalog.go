package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain test definitions",
	}
	cmd.PersistentFlags().Bool("snapshot", false, "Use the bundled snapshot even when CATALOG_SOURCE=postgres")
	cmd.AddCommand(catalogListCmd(), catalogValidateCmd(), catalogSeedCmd(), catalogExportCmd())
	return cmd
}

func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
}

// openCatalog builds the configured catalog without touching the results store.
func openCatalog(ctx context.Context, cmd *cobra.Command) (*catalog.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	catalogOnly := *cfg
	catalogOnly.ResultsBackend = config.ResultsNone
	if snap, _ := cmd.Flags().GetBool("snapshot"); snap {
		catalogOnly.CatalogSource = config.CatalogStatic
	}
	logger := cliLogger()
	b, err := openBackends(ctx, &catalogOnly, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := buildCatalog(&catalogOnly, b, logger)
	if err != nil {
		b.Close(ctx)
		return nil, nil, err
	}
	return svc, func() { b.Close(context.Background()) }, nil
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List test definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, closeFn, err := openCatalog(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := svc.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tCATEGORY\tQUESTIONS\tMAX\tVERSION")
			for _, s := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\n", s.Code, s.Name, s.Category, s.QuestionCount, s.MaxScore, s.Version)
			}
			return w.Flush()
		},
	}
}

func catalogValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the bundled snapshot or definition files",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetStringSlice("file")
			static, err := catalog.NewStatic()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d definition(s) ok\n", static.Version(), len(static.Codes()))
				return nil
			}
			defs, err := readDefinitions(files)
			if err != nil {
				return err
			}
			if err := validateAgainst(static, defs); err != nil {
				return err
			}
			for _, def := range defs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", def.Code)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("file", nil, "YAML definition file(s) to validate")
	return cmd
}

func readDefinitions(files []string) ([]*scoring.TestDefinition, error) {
	defs := make([]*scoring.TestDefinition, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		def, err := catalog.ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// validateAgainst checks defs as a set together with the snapshot, so a
// composite may reference bundled components.
func validateAgainst(static *catalog.Static, defs []*scoring.TestDefinition) error {
	set := make(map[string]*scoring.TestDefinition)
	for _, code := range static.Codes() {
		set[code], _ = static.GetTestDefinition(context.Background(), code)
	}
	for _, def := range defs {
		set[def.Code] = def
	}
	return catalog.ValidateSet(set)
}

func catalogSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the bundled snapshot into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, closeFn, err := openCatalog(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d definition(s).\n", n)
			return nil
		},
	}
}

func catalogExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write definitions as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			svc, closeFn, err := openCatalog(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			defs, err := svc.Definitions(ctx)
			if err != nil {
				return err
			}
			for i, def := range defs {
				data, err := catalog.MarshalDefinition(def)
				if err != nil {
					return fmt.Errorf("%s: %w", def.Code, err)
				}
				if dir == "" {
					if i > 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "---")
					}
					_, _ = cmd.OutOrStdout().Write(data)
					continue
				}
				if err := os.WriteFile(filepath.Join(dir, def.Code+".yaml"), data, 0o644); err != nil {
					return err
				}
			}
			if dir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d definition(s) to %s.\n", len(defs), dir)
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Write one <code>.yaml per definition into this directory")
	return cmd
}
