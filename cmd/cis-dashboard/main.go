package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/cis-bias-go/internal/config"
	"github.com/user/cis-bias-go/internal/estimate"
	"github.com/user/cis-bias-go/internal/fetcher"
	"github.com/user/cis-bias-go/internal/report"
	"github.com/user/cis-bias-go/internal/server"
	"k8s.io/klog/v2"
)

var (
	// Used for flags.
	configFilePath string
	outputFilePath string
	endpoint       string
	addr           string
	studyPath      string
	studiesDir     string
	studyID        string

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "cis-dashboard",
		Short: "CIS dashboard compares official vote estimates with a recall-corrected one.",
		Long: `A tool that serves CIS vote-estimate data, renders the comparison chart
between direct vote, the official estimate and the Benedicto-Gemini
adjusted estimate, and reports the PSOE bias of the official figure.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFilePath, !cmd.Flags().Changed("config"))
			return err
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serves the dashboard and its data endpoint.",
		Long:  `Starts an HTTP server exposing /api/data for the configured study and the dashboard page at /.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("study") {
				cfg.Study = studyPath
			}
			if cmd.Flags().Changed("studies") {
				cfg.Studies = studiesDir
			}

			absStudy, err := filepath.Abs(cfg.Study)
			if err != nil {
				return fmt.Errorf("error getting absolute path for '%s': %w", cfg.Study, err)
			}
			if _, err := os.Stat(absStudy); err != nil {
				// Keep serving: /api/data reports the problem in its payload.
				fmt.Fprintf(os.Stderr, "Warning: study file %s is not readable: %v\n", absStudy, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			e := server.New(server.NewHandler(absStudy, cfg.Studies))
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = e.Shutdown(shutdownCtx)
			}()

			fmt.Printf(" * CIS dashboard server listening on %s\n", cfg.Server.Addr)
			fmt.Printf(" * Study file: %s\n", absStudy)
			fmt.Printf(" * Study catalog: %s\n", cfg.Studies)
			if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	renderCmd = &cobra.Command{
		Use:   "render [html|json|png]",
		Short: "Fetches the data endpoint and renders the dashboard.",
		Long: `Fetches /api/data from the configured endpoint, updates the PSOE bias KPI,
draws the chart and writes the result in the specified format (html, json or png).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportFormat := args[0]
			adapter, err := report.NewAdapter(reportFormat)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Endpoint = endpoint
			}

			output := outputPath(outputFilePath, cfg.Output, reportFormat)
			absOutputFilePath, err := filepath.Abs(output)
			if err != nil {
				return fmt.Errorf("invalid output file path '%s': %w", output, err)
			}

			f, err := fetcher.New(cfg.Endpoint, nil)
			if err != nil {
				return err
			}
			if studyID != "" {
				f = f.WithQuery(url.Values{"study": {studyID}})
			}

			fmt.Printf("Fetching data from: %s\n", f.URL())
			page := report.NewPage()
			if err := f.Load(cmd.Context(), page.KPI, page); err != nil {
				return fmt.Errorf("failed to load dashboard data: %w", err)
			}
			fmt.Printf("PSOE bias: %s\n", page.KPI.Text)

			fmt.Printf("Writing %s output to: %s\n", reportFormat, absOutputFilePath)
			if err := adapter.PrepareData(page); err != nil {
				return fmt.Errorf("failed to prepare %s report data: %w", reportFormat, err)
			}
			if err := adapter.Write(absOutputFilePath); err != nil {
				return fmt.Errorf("failed to write %s report to %s: %w", reportFormat, absOutputFilePath, err)
			}

			fmt.Printf("%s output generated successfully: %s\n", strings.ToUpper(reportFormat), absOutputFilePath)
			return nil
		},
	}

	estimateCmd = &cobra.Command{
		Use:   "estimate [STUDY_PATH]",
		Short: "Prints the payload computed for a study.",
		Long: `Computes the direct, official and adjusted estimates for the YAML study at
STUDY_PATH, the catalog study given by --study-id, or the configured study,
and prints them as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Study
			switch {
			case len(args) == 1 && studyID != "":
				return errors.New("STUDY_PATH and --study-id are mutually exclusive")
			case len(args) == 1:
				path = args[0]
			case studyID != "":
				catalog, err := estimate.LoadCatalog(cfg.Studies)
				if err != nil {
					return err
				}
				if path, err = catalog.Path(studyID); err != nil {
					return err
				}
			}
			study, err := estimate.LoadStudy(path)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(estimate.Compute(study, time.Now()))
		},
	}

	studiesCmd = &cobra.Command{
		Use:   "studies",
		Short: "Lists the studies of the catalog.",
		Long:  `Lists the id and fieldwork month of every study in the catalog directory, most recent first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := estimate.LoadCatalog(cfg.Studies)
			if err != nil {
				return err
			}
			studies := catalog.Studies()
			if len(studies) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No studies found in %s\n", cfg.Studies)
				return nil
			}
			for _, s := range studies {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Month)
			}
			return nil
		},
	}
)

// outputPath picks the report path: the explicit flag as given, else the
// configured path with the format as extension, else a default name.
func outputPath(explicit, configured, format string) string {
	if explicit != "" {
		return explicit
	}
	if configured != "" {
		return strings.TrimSuffix(configured, filepath.Ext(configured)) + "." + format
	}
	return fmt.Sprintf("cis-dashboard.%s", format)
}

func init() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "cis-dashboard.yaml", "Path to the YAML config file")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().StringVar(&studyPath, "study", "", "Path to the YAML study file (overrides study)")
	serveCmd.Flags().StringVar(&studiesDir, "studies", "", "Directory of the study catalog (overrides studies)")

	renderCmd.Flags().StringVarP(&outputFilePath, "output-file-path", "o", "", "Output file path for the report")
	renderCmd.Flags().StringVar(&endpoint, "endpoint", "", "Origin serving /api/data (overrides endpoint)")
	renderCmd.Flags().StringVar(&studyID, "study-id", "", "Catalog study to render instead of the server default")

	estimateCmd.Flags().StringVar(&studyID, "study-id", "", "Catalog study to compute")

	// Add subcommands to rootCmd
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(studiesCmd)
}

func main() {
	defer klog.Flush()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
