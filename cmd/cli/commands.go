package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qcalab/adapters/codebook"
	"qcalab/adapters/db/postgres/migrations"
	"qcalab/adapters/excel"
	"qcalab/app"
	"qcalab/internal/config"
	"qcalab/internal/container"
	"qcalab/internal/conversion"
	"qcalab/internal/testkit"
	"qcalab/ports"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	save       bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "qca",
		Short:         "Crisp-set qualitative comparative analysis for coded interview data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML configuration file (overrides QCA_CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&flags.save, "save", false, "Persist the run to DATABASE_URL")

	rootCmd.AddCommand(
		newAnalyzeCmd(&flags),
		newConvertCmd(&flags),
		newRunCmd(&flags),
		newServeCmd(&flags),
		newMigrateCmd(&flags),
		newGenerateCmd(),
	)
	return rootCmd
}

// loadContainer loads configuration and builds the container. The database
// is connected only when requested.
func loadContainer(ctx context.Context, flags *globalFlags, withDB bool) (*container.Container, error) {
	cfg, err := config.LoadFrom(flags.configFile)
	if err != nil {
		return nil, err
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if withDB {
		if err := c.InitWithDatabase(ctx, true); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// analysisFlags override configuration for one command invocation
type analysisFlags struct {
	format      string
	output      string
	consistency float64
	frequency   int
	reduce      bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: standard|markdown|html|xlsx (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().Float64Var(&f.consistency, "consistency", -1, "Truth table consistency threshold")
	cmd.Flags().IntVar(&f.frequency, "frequency", -1, "Truth table frequency threshold")
	cmd.Flags().BoolVar(&f.reduce, "reduce", false, "Add a Quine-McCluskey reduced formula")
}

func (f *analysisFlags) apply(c *container.Container) app.AnalyzeRequest {
	cfg := c.Service.Config()
	if f.consistency >= 0 {
		cfg.TruthTableConsistencyThreshold = f.consistency
	}
	if f.frequency >= 0 {
		cfg.TruthTableFrequencyThreshold = f.frequency
	}
	if f.reduce {
		cfg.ReduceFormula = true
	}
	if f.format != "" {
		cfg.OutputFormat = f.format
	}
	return app.AnalyzeRequest{Config: &cfg}
}

// withOutput opens the output file, or stdout when path is empty
func withOutput(cmd *cobra.Command, path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var af analysisFlags
	var spec ports.MatrixSpec
	var conditions, outcomes string

	cmd := &cobra.Command{
		Use:   "analyze [matrix-file]",
		Short: "Analyze a case matrix (.csv, .xlsx or .json)",
		Long: `Run the truth table, necessity, sufficiency and minimization analysis on a
binary case matrix.

CSV and XLSX files need a case id column; outcome columns are those prefixed
with "outcome_" unless --outcomes is given. JSON files hold
{"case_matrix": [...], "conditions": [...], "outcomes": [...]}.

Example: qca analyze cases.csv --format markdown --reduce`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, flags, flags.save)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			spec.Conditions = splitFlag(conditions)
			spec.Outcomes = splitFlag(outcomes)
			data, err := matrixReader(args[0], c).ReadMatrix(args[0], spec)
			if err != nil {
				return err
			}

			req := af.apply(c)
			req.Data = data
			req.Source = filepath.Base(args[0])
			record, err := c.Service.Analyze(ctx, req)
			if err != nil {
				return err
			}
			return withOutput(cmd, af.output, func(w io.Writer) error {
				return c.Service.Render(w, record.Results, req.Config.OutputFormat)
			})
		},
	}

	af.register(cmd)
	cmd.Flags().StringVar(&spec.CaseIDColumn, "case-id", "", "Case id column (detected when empty)")
	cmd.Flags().StringVar(&conditions, "conditions", "", "Comma separated condition columns")
	cmd.Flags().StringVar(&outcomes, "outcomes", "", "Comma separated outcome columns")
	return cmd
}

func matrixReader(path string, c *container.Container) ports.MatrixReader {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return codebook.NewLoader()
	}
	return excel.NewMatrixReader(c.Logger)
}

// selectionFlags choose the selection policy for conversion
type selectionFlags struct {
	policy   string
	outcomes string
	markers  string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.policy, "policy", "", "Selection policy: core_category|frequency|explicit (default from config)")
	cmd.Flags().StringVar(&f.outcomes, "outcome-codes", "", "Comma separated outcome code names (explicit policy)")
	cmd.Flags().StringVar(&f.markers, "core-markers", "", "Comma separated core category markers")
}

func (f *selectionFlags) policyFor(c *container.Container) (conversion.SelectionPolicy, error) {
	sel := c.Config.Selection
	if f.policy != "" {
		sel.Policy = f.policy
	}
	if v := splitFlag(f.outcomes); len(v) > 0 {
		sel.Outcomes = v
	}
	if v := splitFlag(f.markers); len(v) > 0 {
		sel.CoreMarkers = v
	}
	return sel.NewPolicy()
}

func readCodebook(path string) (app.ConvertRequest, error) {
	codes, cases, err := codebook.NewLoader().ReadCodebook(path)
	if err != nil {
		return app.ConvertRequest{}, err
	}
	return app.ConvertRequest{Codes: codes, Cases: cases}, nil
}

func newConvertCmd(flags *globalFlags) *cobra.Command {
	var sf selectionFlags
	var output string
	var full bool

	cmd := &cobra.Command{
		Use:   "convert [codebook-file]",
		Short: "Convert coded interviews (.json or .yaml) into a case matrix",
		Long: `Select conditions and outcomes from a codebook and build the binary case
matrix. The output is JSON that "qca analyze" reads back.

Example: qca convert codebook.yaml -o matrix.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			req, err := readCodebook(args[0])
			if err != nil {
				return err
			}
			if req.Policy, err = sf.policyFor(c); err != nil {
				return err
			}
			conv, err := c.Service.Convert(req)
			if err != nil {
				return err
			}
			return withOutput(cmd, output, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if full {
					return enc.Encode(conv)
				}
				return enc.Encode(conv.Data)
			})
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&full, "full", false, "Include variable calibration and the build report")
	return cmd
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var af analysisFlags
	var sf selectionFlags

	cmd := &cobra.Command{
		Use:   "run [codebook-file]",
		Short: "Convert a codebook and analyze it in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, flags, flags.save)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			req, err := readCodebook(args[0])
			if err != nil {
				return err
			}
			if req.Policy, err = sf.policyFor(c); err != nil {
				return err
			}
			cfg := af.apply(c).Config
			record, _, err := c.Service.ConvertAndAnalyze(ctx, req, filepath.Base(args[0]), cfg)
			if err != nil {
				return err
			}
			return withOutput(cmd, af.output, func(w io.Writer) error {
				return c.Service.Render(w, record.Results, cfg.OutputFormat)
			})
		},
	}

	af.register(cmd)
	sf.register(cmd)
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := loadContainer(ctx, flags, false)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			if c.Config.Database.URL != "" {
				if err := c.InitWithDatabase(ctx, true); err != nil {
					return err
				}
			}
			if port == "" {
				port = c.Config.Server.Port
			}

			server := &http.Server{
				Addr:              ":" + port,
				Handler:           c.APIServer().Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
			}()

			c.Logger.Info("Starting qcalab API on port %s", port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from PORT)")
	return cmd
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply run-store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadContainer(ctx, flags, false)
			if err != nil {
				return err
			}
			// Connect without migrating so status can report pending files
			if err := c.InitWithDatabase(ctx, false); err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			migrator := migrations.NewMigrator(c.DB, c.Logger)
			if !status {
				applied, err := migrator.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", len(applied))
				return nil
			}

			list, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range list {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.Version, state, s.Name)
			}
			return migrator.Verify(ctx)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "List migrations instead of applying them")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cfg := testkit.DefaultInterviewConfig()
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic coded-interview codebook",
		Long: `Generate interviews whose outcome follows a planted rule
(Funding * Champion + Training * ~Resistance) with optional noise.

Example: qca generate --interviews 60 --seed 7 -o codebook.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := testkit.NewTestKitWithConfig(cfg)
			if err != nil {
				return err
			}
			if output == "" {
				codes, cases := kit.Codebook()
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(codebook.Codebook{Codes: codes, Cases: cases})
			}
			return kit.WriteCodebook(output)
		},
	}

	cmd.Flags().IntVar(&cfg.InterviewCount, "interviews", cfg.InterviewCount, "Number of interviews")
	cmd.Flags().Float64Var(&cfg.ConditionRate, "condition-rate", cfg.ConditionRate, "Chance each condition code applies")
	cmd.Flags().Float64Var(&cfg.NoiseRate, "noise", cfg.NoiseRate, "Chance the outcome contradicts the rule")
	cmd.Flags().BoolVar(&cfg.TextOnly, "text-only", cfg.TextOnly, "Omit application records")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func splitFlag(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
