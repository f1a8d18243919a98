package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decider"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/planio"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/swfevent"
)

type evalFlags struct {
	PlanPath   string
	EventsPath string
}

func newEvalCmd() *cobra.Command {
	var flags evalFlags

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Replay an event history against a plan and print the resulting decisions",
		Example: `  decider eval --plan hello.plan.yaml --events history.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.PlanPath, "plan", "", "path to the plan document (yaml or json)")
	cmd.Flags().StringVar(&flags.EventsPath, "events", "", "path to a JSON array of history events")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

func init() {
	rootCmd.AddCommand(newEvalCmd())
}

func runEval(cmd *cobra.Command, flags evalFlags) error {
	p, err := planio.Load(flags.PlanPath)
	if err != nil {
		return fmt.Errorf("loading plan: %w", err)
	}

	events, err := loadEvents(flags.EventsPath)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	engine := decider.NewEngine(log)
	result, err := engine.Eval(p, events)
	if err != nil {
		return fmt.Errorf("evaluating plan: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func loadEvents(path string) ([]swfevent.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []swfevent.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return events, nil
}
