// cmd/spanweave/main.go
//
// This is the entry point for the spanweave CLI.
//
// Flow:
// 1. Load the layered spanweave.yaml configuration
// 2. Assemble a pipeline from --stage and --set flags
// 3. Run it over a document read from a file or stdin
// 4. Print the annotations, or open them in the viewer

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/spanweave/internal/errs"
)

const (
	Version = "0.3.0"
	appName = "spanweave"
)

// Exit codes by error kind.
const (
	exitFailure       = 1
	exitConfiguration = 2
	exitInput         = 3
	exitStage         = 4
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func rootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Layered span annotation pipelines for plain-text documents",
		Long: `spanweave runs an ordered list of annotation stages over a document.
Every stage reads the text and the spans earlier stages produced, and adds
or updates spans of its own.

Stages are chosen with --stage and configured with --set:

  spanweave run note.txt \
    --stage tokens=exec --set tokens.command="my-tagger --jsonl" --set tokens.writes=token,NP,PP \
    --stage np=chunk-adjuster --set np.pattern=NP,PP,NP \
    --stage entity-annotator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: nearest spanweave.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		runCmd(&opts),
		viewCmd(&opts),
		stagesCmd(),
		initCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errs.Classify(err) {
	case errs.KindConfiguration:
		return exitConfiguration
	case errs.KindInput:
		return exitInput
	case errs.KindStage:
		return exitStage
	default:
		return exitFailure
	}
}
