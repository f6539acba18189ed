package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/journal"
)

var attachCmd = &cobra.Command{
	Use:   "attach <file> [day]",
	Short: "Attach a file to a day's entry",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		path, err := filepath.Abs(args[0])
		if err != nil {
			fail("%v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			fail("%v", err)
		}
		if info.IsDir() {
			fail("%s is a directory", path)
		}

		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		day, err := parseDayArg(argOrEmpty(args[1:]))
		if err != nil {
			fail("%v", err)
		}

		e, _ := a.store.Get(day)
		for _, f := range e.Files {
			if f.URI == path {
				fmt.Printf("%s is already attached to %s\n", filepath.Base(path), day)
				return
			}
		}

		typ := mime.TypeByExtension(filepath.Ext(path))
		if typ == "" {
			typ = "application/octet-stream"
		} else if i := strings.IndexByte(typ, ';'); i >= 0 {
			typ = typ[:i]
		}

		files := append(e.Files, journal.Attachment{
			URI:  path,
			Type: typ,
			Name: filepath.Base(path),
		})
		a.store.SetAttachments(day, files)
		fmt.Printf("Attached %s to %s\n", filepath.Base(path), styles.Accent.Render(day))

		pushNow(a, day)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
