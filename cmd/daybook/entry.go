package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daybook-sh/daybook/internal/conflict"
	"github.com/daybook-sh/daybook/internal/transcribe"
	"github.com/daybook-sh/daybook/internal/ui"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Create, view and manage journal entries",
}

var entrySetCmd = &cobra.Command{
	Use:   "set [content...]",
	Short: "Write the entry for a day",
	Long: `Write the journal entry for a day (today by default).

Content comes from the arguments, from stdin when piped, or from a
voice recording via --from-audio. Transcribed content that disagrees
with an already-saved entry opens the conflict prompt.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		dayArg, _ := cmd.Flags().GetString("day")
		day, err := parseDayArg(dayArg)
		if err != nil {
			fail("%v", err)
		}

		title, _ := cmd.Flags().GetString("title")
		audio, _ := cmd.Flags().GetString("from-audio")

		if audio != "" {
			if err := setFromAudio(a, day, title, audio); err != nil {
				fail("%v", err)
			}
			pushNow(a, day)
			return
		}

		content := strings.Join(args, " ")
		if content == "" {
			data, err := readStdin()
			if err != nil {
				fail("%v", err)
			}
			content = data
		}
		if content == "" && title == "" {
			fail("nothing to save; pass content, pipe it in, or use --from-audio")
		}

		e, _ := a.store.Get(day)
		if title == "" {
			title = e.Title
		}
		a.store.SetEntry(day, content, title, e.Moods, nil)
		fmt.Printf("Saved entry for %s\n", styles.Accent.Render(day))

		pushNow(a, day)
	},
}

var entryShowCmd = &cobra.Command{
	Use:   "show [day]",
	Short: "Show the entry for a day",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		day, err := parseDayArg(argOrEmpty(args))
		if err != nil {
			fail("%v", err)
		}

		e, ok := a.store.Get(day)
		if !ok {
			fmt.Printf("No entry for %s\n", day)
			return
		}
		fmt.Print(styles.RenderEntry(day, e))
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all entries, oldest first",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		entries := a.store.Snapshot()
		if len(entries) == 0 {
			fmt.Println("No entries yet. Start with: daybook entry set \"...\"")
			return
		}

		days := make([]string, 0, len(entries))
		for day := range entries {
			days = append(days, day)
		}
		sort.Strings(days)

		for _, day := range days {
			fmt.Println(styles.RenderListLine(day, entries[day]))
		}
	},
}

var entryRmCmd = &cobra.Command{
	Use:   "rm [day]",
	Short: "Delete the entry for a day",
	Long: `Delete the local entry for a day.

Deletion is local by default: the remote copy survives and would come
back on the next pull. Pass --remote to also delete the remote row and
notify other devices.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(cmd)
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		day, err := parseDayArg(argOrEmpty(args))
		if err != nil {
			fail("%v", err)
		}

		if _, ok := a.store.Get(day); !ok {
			fmt.Printf("No entry for %s\n", day)
			return
		}

		alsoRemote, _ := cmd.Flags().GetBool("remote")
		if alsoRemote {
			if err := a.requireSyncer(); err != nil {
				fail("%v", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.syncer.DeleteRemote(ctx, day); err != nil {
				fail("%v", err)
			}
		}

		a.store.RemoveEntry(day)
		fmt.Printf("Deleted entry for %s\n", styles.Accent.Render(day))
	},
}

// setFromAudio transcribes the recording and runs the result through
// the conflict resolver before it lands in the store.
func setFromAudio(a *app, day, title, audioPath string) error {
	if a.cfg.WhisperURL == "" {
		return fmt.Errorf("no transcription endpoint configured; set whisper_url in config.toml")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tr := transcribe.NewWhisperClient(a.cfg.WhisperURL, a.logger)
	text, err := tr.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	resolver := conflict.New(a.store, a.logger)
	if resolver.Open(day, text) == conflict.StatePending {
		action, err := ui.PromptConflict(styles, day, resolver.Stored(), resolver.Supplied())
		if err != nil {
			return err
		}
		resolver.Resolve(action)
	}

	if title != "" {
		e, _ := a.store.Get(day)
		a.store.SetEntry(day, e.Content, title, e.Moods, nil)
	}

	fmt.Printf("Saved transcription for %s\n", styles.Accent.Render(day))
	return nil
}

// pushNow opportunistically pushes a day before the process exits.
// Failures are not fatal: the entry stays unsynced and the daemon or a
// later command retries.
func pushNow(a *app, day string) {
	if a.syncer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.syncer.PushDay(ctx, day); err != nil {
		fmt.Fprintf(os.Stderr, "%s entry saved locally, sync pending: %v\n", styles.Muted.Render("note:"), err)
	}
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// readStdin returns piped input, or empty when stdin is a terminal.
func readStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func init() {
	entrySetCmd.Flags().String("day", "", "day to write (default today)")
	entrySetCmd.Flags().String("title", "", "entry title")
	entrySetCmd.Flags().String("from-audio", "", "transcribe an audio file into the entry")
	entryRmCmd.Flags().Bool("remote", false, "also delete the remote copy")

	entryCmd.AddCommand(entrySetCmd)
	entryCmd.AddCommand(entryShowCmd)
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryRmCmd)
	rootCmd.AddCommand(entryCmd)
}
