package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the journal to JSONL or YAML",
	Long: `Export every entry to a portable file, one record per day.

The format follows the file extension (.jsonl or .yaml), or --format.
Without a file the export goes to stdout as JSONL.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		entries := a.store.Snapshot()

		if len(args) == 0 {
			if err := export.WriteJSONL(os.Stdout, entries); err != nil {
				fail("%v", err)
			}
			return
		}

		path := args[0]
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = formatFromExt(path)
		}

		f, err := os.Create(path)
		if err != nil {
			fail("%v", err)
		}
		defer f.Close()

		switch format {
		case "jsonl":
			err = export.WriteJSONL(f, entries)
		case "yaml":
			err = export.WriteYAML(f, entries)
		default:
			fail("unknown format %q (want jsonl or yaml)", format)
		}
		if err != nil {
			fail("%v", err)
		}

		fmt.Printf("Exported %d entries to %s\n", len(entries), path)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a JSONL or YAML export",
	Long: `Import entries from a file written by daybook export.

Imported entries overwrite local days with the same date and land
unsynced, so the next sync pushes them to the remote store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			fail("%v", err)
		}
		defer f.Close()

		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = formatFromExt(path)
		}

		var records []export.Record
		switch format {
		case "jsonl":
			records, err = export.ReadJSONL(f)
		case "yaml":
			records, err = export.ReadYAML(f)
		default:
			fail("unknown format %q (want jsonl or yaml)", format)
		}
		if err != nil {
			fail("%v", err)
		}

		n := export.Import(a.store, records)
		fmt.Printf("Imported %d entries\n", n)
	},
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "jsonl"
	}
}

func init() {
	exportCmd.Flags().String("format", "", "export format: jsonl or yaml")
	importCmd.Flags().String("format", "", "import format: jsonl or yaml")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
