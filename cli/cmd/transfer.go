package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/relvacode/iso8601"
	"github.com/spf13/cobra"
	"github.com/wkalt/outline/cli/client"
	"github.com/wkalt/outline/cli/util"
)

var (
	exportOutput string
	restoreKey   string
	restoreAt    string
)

var importCmd = &cobra.Command{
	Use:   "import [book] [pattern...]",
	Short: "Import outline documents into a book",
	Long: `Import appends the outline documents matching each pattern to a book, in
the order the patterns are given. Patterns support ** for any path depth.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := globAll(args[1:])
		if err != nil {
			return err
		}
		c := newClient()
		for _, path := range paths {
			if err := importFile(cmd, c, args[0], path); err != nil {
				return err
			}
		}
		return nil
	},
}

// globAll expands patterns, failing if any pattern matches nothing.
func globAll(patterns []string) ([]string, error) {
	paths := []string{}
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("error globbing: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files found matching %s", pattern)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func importFile(cmd *cobra.Command, c *client.Client, book string, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	inserted, err := c.Import(cmd.Context(), book, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d divisions from %s\n", len(inserted), path)
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export [book]",
	Short: "Export a book as an outline document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			if err := c.Export(cmd.Context(), args[0], f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}
		return c.Export(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [book]",
	Short: "Snapshot a book to the server's snapshot storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := newClient().Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.Key)
		return nil
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [book]",
	Short: "List the snapshots of a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := newClient().Snapshots(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, []string{info.Taken.Format(time.RFC3339Nano), info.Key})
		}
		return util.PrintTable(cmd.OutOrStdout(), []string{"taken", "key"}, rows)
	},
}

var deleteSnapshotCmd = &cobra.Command{
	Use:   "delete-snapshot [book] [key]",
	Short: "Delete a snapshot of a book",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteSnapshot(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted snapshot %s\n", args[1])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [book]",
	Short: "Replace a book with one of its snapshots",
	Long: `Restore replaces a book with the snapshot named by --key, or with the newest
snapshot taken at or before --at. --at accepts any ISO 8601 time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (restoreKey == "") == (restoreAt == "") {
			return errors.New("exactly one of --key and --at is required")
		}
		var at time.Time
		if restoreAt != "" {
			var err error
			at, err = iso8601.Parse([]byte(restoreAt))
			if err != nil {
				return fmt.Errorf("error parsing --at: %w", err)
			}
		}
		resp, err := newClient().Restore(cmd.Context(), args[0], restoreKey, at)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d divisions from %s\n", resp.Restored, resp.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(deleteSnapshotCmd)
	rootCmd.AddCommand(restoreCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	restoreCmd.Flags().StringVarP(&restoreKey, "key", "k", "", "Snapshot key")
	restoreCmd.Flags().StringVarP(&restoreAt, "at", "", "", "Restore the newest snapshot at or before this time")
}
