package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "nekopara",
	Short: "Resumable, rate-limited recursive crawler",
	Long: "Nekopara runs template-driven recursive crawls with bounded\n" +
		"concurrency and a global request interval. Progress is kept as a\n" +
		"snapshot tree, so an interrupted run can be resumed later.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./nekopara.yaml", "path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
