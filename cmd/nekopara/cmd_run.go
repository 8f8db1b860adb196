package main

import (
	"github.com/spf13/cobra"

	"github.com/Chocolatl/nekopara/pkg/logx"
)

var runFlags struct {
	url      string
	template string
	name     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new crawl from an entry URL",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.url, "url", "", "entry URL (required)")
	f.StringVar(&runFlags.template, "template", "page", "entry template: page or title")
	f.StringVar(&runFlags.name, "name", "run", "snapshot name to save progress under")

	_ = runCmd.MarkFlagRequired("url")
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := registerTemplates(a.sched); err != nil {
		return err
	}
	a.log.Info("starting crawl",
		logx.String("template", runFlags.template),
		logx.String("url", runFlags.url))
	return a.runUntilDone(cmd, runFlags.name, func() error {
		return a.sched.Start(runFlags.template, runFlags.url)
	})
}
