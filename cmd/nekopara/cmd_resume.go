package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Chocolatl/nekopara/internal/storage"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

var resumeFlags struct {
	name string
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume an interrupted crawl from a saved snapshot",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeFlags.name, "name", "run", "snapshot name to resume")
}

func runResume(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.store == nil {
		return errors.New("storage is disabled; nothing to resume from")
	}
	root, err := a.store.LoadSnapshot(cmd.Context(), resumeFlags.name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no snapshot named %q; run 'nekopara inspect' to list saved runs", resumeFlags.name)
		}
		return err
	}

	if err := registerTemplates(a.sched); err != nil {
		return err
	}
	a.log.Info("resuming crawl", logx.String("name", resumeFlags.name))
	return a.runUntilDone(cmd, resumeFlags.name, func() error {
		return a.sched.Resume(root)
	})
}
