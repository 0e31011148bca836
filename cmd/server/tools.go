package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/richblaalid/chuckbox/internal/advancement"
	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/repository/db"
	"github.com/richblaalid/chuckbox/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		dbType, err := db.ParseDatabaseType(cfg.Database.Type)
		if err != nil {
			return err
		}
		database, err := db.Open(cmd.Context(), db.DatabaseConfig{Type: dbType, DSN: cfg.Database.DSN})
		if err != nil {
			return err
		}
		defer database.Close()

		if err := db.Migrate(database, dbType, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", dbType)
		return nil
	},
}

var importBadgesCmd = &cobra.Command{
	Use:   "import-badges <catalog.yaml>",
	Short: "Load or refresh the merit badge catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withContainer(cmd.Context(), func(c *app.Container) error {
			n, err := c.AdvancementSvc.ImportCatalog(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d badges\n", n)
			return nil
		})
	},
}

var importRosterFlags struct {
	unitID            int64
	as                string
	format            string
	deactivateMissing bool
	dryRun            bool
}

var importRosterCmd = &cobra.Command{
	Use:   "import-roster <file>",
	Short: "Import a CSV or JSON roster export into a unit",
	Long: `Import a CSV or JSON roster export into a unit.

The import runs with the unit permissions of the --as member, who must be
able to edit the roster. Use --dry-run to print the diff without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportRoster,
}

func init() {
	f := importRosterCmd.Flags()
	f.Int64Var(&importRosterFlags.unitID, "unit", 0, "Unit ID (required)")
	f.StringVar(&importRosterFlags.as, "as", "", "Email of the member running the import (required)")
	f.StringVar(&importRosterFlags.format, "format", "", "csv or json (default: from the file extension)")
	f.BoolVar(&importRosterFlags.deactivateMissing, "deactivate-missing", false, "Deactivate scouts absent from the file")
	f.BoolVar(&importRosterFlags.dryRun, "dry-run", false, "Print the diff without applying it")
	_ = importRosterCmd.MarkFlagRequired("unit")
	_ = importRosterCmd.MarkFlagRequired("as")
}

func runImportRoster(cmd *cobra.Command, args []string) error {
	opts := importRosterFlags
	format := opts.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	entries, rowErrs, err := service.ParseImport(format, f)
	if err != nil {
		return err
	}

	return withContainer(cmd.Context(), func(c *app.Container) error {
		ctx := cmd.Context()
		profile, err := c.ProfileRepo.GetByEmail(ctx, opts.as)
		if err != nil {
			return fmt.Errorf("profile %s: %w", opts.as, err)
		}
		actor, err := c.Access.Membership(ctx, opts.unitID, profile.ID)
		if err != nil {
			return err
		}

		res, err := c.RosterSvc.ImportRoster(ctx, actor, entries, service.ImportOptions{
			DeactivateMissing: opts.deactivateMissing,
			DryRun:            opts.dryRun,
			Source:            format,
		})
		if err != nil {
			return err
		}
		res.RowErrors = append(res.RowErrors, rowErrs...)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	})
}

var reqnumCanonical bool

var reqnumCmd = &cobra.Command{
	Use:   "reqnum <number>...",
	Short: "Convert requirement numbers between display and canonical form",
	Example: `  chuckbox reqnum "9(b)" 1a
  chuckbox reqnum --canonical "6(a)(2)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		convert := advancement.ToDisplay
		if reqnumCanonical {
			convert = advancement.ToCanonical
		}
		for _, arg := range args {
			out, err := convert(arg)
			if err != nil {
				return fmt.Errorf("%s: %w", strconv.Quote(arg), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

func init() {
	reqnumCmd.Flags().BoolVar(&reqnumCanonical, "canonical", false, "Print the canonical form instead of the display form")
}
