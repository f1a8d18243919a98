// Package cli wires the decider's cobra command tree: a single "eval"
// subcommand that loads a plan document and an event history and prints the
// resulting decision set, mirroring how a real SWF decider worker would be
// invoked per decision task.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/platform/logger"
)

var (
	flagVerbose bool
	log         *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "decider",
	Short: "Plan-driven workflow decider",
	Long: `decider replays a workflow's event history against a plan document
and prints the activities it would schedule next, the same way an SWF-style
decider worker evaluates a decision task.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode := "dev"
		if !flagVerbose {
			mode = "prod"
		}
		l, err := logger.New(mode)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable human-readable debug logging")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// NewRootCommand returns a fresh cobra command tree with its own eval
// subcommand, for embedding or testing independent of the package-level
// rootCmd singleton. It does not register --verbose or initialize the
// logger, so eval logs through a no-op logger unless rootCmd has run.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           rootCmd.Use,
		Short:         rootCmd.Short,
		Long:          rootCmd.Long,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newEvalCmd())
	return cmd
}
