package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/cwbudde/go-lazy/internal/scenario"
)

var (
	checkHeap    bool
	validateOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a scenario file",
	Long: `Build the heap graph a scenario describes, force its roots, and print
the report: the evaluated form of each root, how often each rewrite rule
fired, and the heap statistics.

Examples:
  # Run a scenario
  lazyeval run scenario.yaml

  # Validate a scenario without forcing it
  lazyeval run --validate-only scenario.yaml

  # Fail when the final heap violates an invariant
  lazyeval run --check scenario.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&checkHeap, "check", false, "fail when the final heap violates an invariant")
	runCmd.Flags().BoolVar(&validateOnly, "validate-only", false, "validate the scenario without forcing it")
}

func runScenario(_ *cobra.Command, args []string) error {
	cfg, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Error: %v\n", e)
		}
		return fmt.Errorf("scenario validation failed with %d error(s)", len(errs))
	}
	if validateOnly {
		fmt.Printf("%s: ok\n", args[0])
		return nil
	}

	res, err := scenario.NewRunner().Run(cfg)
	if err != nil {
		return err
	}
	fmt.Print(res.Format())

	if res.Fatal != "" {
		return fmt.Errorf("runtime fatal: %s", res.Fatal)
	}
	if checkHeap && res.Check != "" {
		return fmt.Errorf("heap check failed: %s", res.Check)
	}
	return nil
}
