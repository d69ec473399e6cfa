package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lazyeval",
	Short: "Lazy value runtime scenario driver",
	Long: `lazyeval drives the go-lazy runtime core from declarative scenario
files. A scenario describes a reference-counted heap graph of thunks,
indirections and values, the rewrite rules that evaluate each thunk
constructor, and the roots to force.

Forcing a root walks the full protocol: unique thunks are consumed in
place, shared thunks are blackholed while a moved-out copy evaluates,
and every alias observes the memoized result through an indirection.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
