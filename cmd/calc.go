// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oss-metrics/ponyfactor/internal/domain"
	"github.com/oss-metrics/ponyfactor/internal/gateway"
	"github.com/oss-metrics/ponyfactor/internal/usecase"
)

var calcCmd = &cobra.Command{
	Use:   "calc <location>...",
	Short: "Computes the pony factor of one or more repositories",
	Long: `Computes the pony factor for each given location. A location is an
owner/repo identifier (cloned into a temporary working copy, or read via
the GitHub API with --github) or, with --directory, a path to an existing
local working copy.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		fromDirectory, _ := cmd.Flags().GetBool("directory")
		useGitHub, _ := cmd.Flags().GetBool("github")
		if fromDirectory && useGitHub {
			fmt.Fprintln(os.Stderr, "Error: --directory and --github are mutually exclusive.")
			os.Exit(1)
		}

		// Inject dependencies and run the main business logic.
		var source gateway.HistorySource
		if useGitHub {
			s, err := gateway.NewGitHubSource(os.Getenv("GITHUB_TOKEN"), logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create GitHub source: %v\n", err)
				os.Exit(1)
			}
			source = s
		} else {
			source = gateway.NewGitSource(logger)
		}
		calculator := usecase.NewCalculator(source, logger)

		// Calculate every location concurrently, but report them in
		// argument order once all runs have finished.
		results := make([][]domain.ContributorStat, len(args))
		errs := make([]error, len(args))
		eg := &errgroup.Group{}
		eg.SetLimit(4)
		for i, location := range args {
			i, location := i, location
			eg.Go(func() error {
				results[i], errs[i] = calculator.Calculate(ctx, location, fromDirectory)
				return nil
			})
		}
		_ = eg.Wait()

		exitCode := 0
		for i, location := range args {
			if len(args) > 1 {
				if i > 0 {
					fmt.Println()
				}
				fmt.Printf("# %s\n", location)
			}
			if err := errs[i]; err != nil {
				var coverageErr *domain.CoverageError
				if errors.As(err, &coverageErr) {
					fmt.Fprintf(os.Stderr, "Pony factor undefined: %v\n", coverageErr)
				} else {
					fmt.Fprintf(os.Stderr, "Failed to calculate pony factor: %v\n", err)
				}
				exitCode = 1
				continue
			}
			for _, stat := range results[i] {
				fmt.Printf("%s\t%d\t%s\n", stat.Name, stat.CommitCount, stat.LastCommitDate)
			}
			fmt.Printf("\nPony Factor = %d\n", len(results[i]))
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcCmd.Flags().Bool("directory", false, "Treat each location as an existing local working copy")
	calcCmd.Flags().Bool("github", false, "Read history from the GitHub API instead of cloning")
}
