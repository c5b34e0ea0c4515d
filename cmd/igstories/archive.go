package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igstories/pkg/logger"
	"igstories/pkg/storage"
	"igstories/pkg/ui"
)

var listArchives bool

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Bundle loose JSON snapshots into a compressed archive",
	Long: `Bundle every loose JSON snapshot into <snapshots>/archive/<unix>_snapshots.tar.zst
and remove the loose files once the archive is safely on disk.

Runs do this automatically unless --no-archive was given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		snapshots, err := storage.NewManager(snapshotDir(cfg), logger.GetLogger())
		if err != nil {
			return err
		}

		if listArchives {
			return printArchives(snapshots)
		}

		path, n, err := snapshots.Archive()
		if err != nil {
			return err
		}
		if n == 0 {
			ui.PrintInfo("Nothing to archive", snapshots.Dir())
			return nil
		}
		ui.PrintSuccess(fmt.Sprintf("Archived %d snapshots", n))
		ui.PrintInfo("Archive", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringVarP(&rootDir, "root", "o", "", "directory holding the snapshot directory")
	archiveCmd.Flags().BoolVarP(&listArchives, "list", "l", false, "list existing archives and their contents")
}

func printArchives(snapshots *storage.Manager) error {
	archives, err := snapshots.Archives()
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		ui.PrintInfo("No archives", snapshots.ArchiveDir())
		return nil
	}

	for _, path := range archives {
		entries, err := storage.ListArchive(path)
		if err != nil {
			ui.PrintWarning("Unreadable archive", err)
			continue
		}
		var total int64
		for _, size := range entries {
			total += size
		}
		ui.PrintInfo(path, fmt.Sprintf("%d snapshots, %s", len(entries), ui.FormatBytes(total)))
	}
	return nil
}
