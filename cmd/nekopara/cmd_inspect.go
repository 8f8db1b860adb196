package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chocolatl/nekopara/internal/config"
	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/internal/storage"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

var inspectFlags struct {
	name string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List saved snapshots, or summarize one with --name",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFlags.name, "name", "", "snapshot name to summarize")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	store, err := storage.Open(cfg.Storage, logx.Nop())
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("storage is disabled; no snapshots to inspect")
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if inspectFlags.name == "" {
		infos, err := store.ListSnapshots(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(out, "no snapshots saved")
			return nil
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%-20s %s  %d bytes\n", info.Name, info.SavedAt.Format("2006-01-02 15:04:05"), info.Size)
		}
		return nil
	}

	root, err := store.LoadSnapshot(cmd.Context(), inspectFlags.name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no snapshot named %q", inspectFlags.name)
		}
		return err
	}

	var waiting, done, failed, data int
	crawl.Walk(root, func(n *crawl.Node) {
		switch n.Kind {
		case crawl.KindData:
			data++
		case crawl.KindTask:
			switch n.State {
			case crawl.StateDone:
				done++
			case crawl.StateFail:
				failed++
			default:
				waiting++
			}
		}
	})

	fmt.Fprintf(out, "snapshot: %s\n", inspectFlags.name)
	fmt.Fprintf(out, "  entry:   %s %s\n", root.Template, root.URL)
	fmt.Fprintf(out, "  tasks:   %d done, %d waiting, %d failed\n", done, waiting, failed)
	fmt.Fprintf(out, "  data:    %d\n", data)
	if waiting+failed > 0 {
		fmt.Fprintf(out, "  resumable: yes ('nekopara resume --name %s')\n", inspectFlags.name)
	} else {
		fmt.Fprintf(out, "  resumable: no (run complete)\n")
	}
	return nil
}
