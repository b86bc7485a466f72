package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "scrideo",
		Short:        "Caption videos and serve them over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags; everything else comes from SCRIDEO_* env vars.
	root.Flags().Int("port", 0, "Listen port (overrides SCRIDEO_PORT)")
	root.Flags().String("data", "", "Data directory (overrides SCRIDEO_DATA_DIR)")
	root.Flags().String("log-level", "", "Log level (overrides SCRIDEO_LOG_LEVEL)")
	root.Flags().Bool("pretty", false, "Human-readable console logs")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
