package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/progress"
	"github.com/twopane/twopane/internal/queue"
)

// progressUnits is the bar resolution for one transfer: fractional progress
// maps onto 0..progressUnits.
const progressUnits = 1000

// newCpCmd creates the 'cp' command.
func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <source>... <destination>",
		Short: "Copy files between local directories and devices",
		Long: `Copy one or more sources into a destination directory or device node.
Transfers run in order on a single worker; a failing item is reported and
the rest continue. Name collisions at the destination are resolved by
numbering ("report.txt" -> "report 1.txt").

Examples:
  # Local to local
  twopane cp ~/in/a.txt ~/in/b.txt ~/out

  # Device file to a local directory
  twopane cp mtp:SER123:65537:4294967295/IMG_0001.jpg ~/Pictures

  # Local file onto a device storage root
  twopane cp ~/music/song.mp3 mtp:SER123:65537:4294967295`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, queue.KindCopy)
		},
	}
}

// newMvCmd creates the 'mv' command.
func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source>... <destination>",
		Short: "Move files between local directories and devices",
		Long: `Move one or more sources into a destination directory or device node.
A move is a copy followed by removal of the source; an interrupted move
never deletes a source whose copy did not finish.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args, queue.KindMove)
		},
	}
}

// runTransfer enqueues the sources, renders progress from the event bus, and
// reports a per-item summary. The exit status is non-zero when any item
// failed.
func runTransfer(cmd *cobra.Command, args []string, kind queue.Kind) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	destArg := args[len(args)-1]
	srcArgs := args[:len(args)-1]

	sources := make([]models.Entry, 0, len(srcArgs))
	for _, arg := range srcArgs {
		entry, err := resolveSourceEntry(app, arg)
		if err != nil {
			return fmt.Errorf("source %q: %w", arg, err)
		}
		sources = append(sources, entry)
	}
	dest, err := parseDestination(app, destArg)
	if err != nil {
		return fmt.Errorf("destination %q: %w", destArg, err)
	}

	// Subscribe before enqueueing so no lifecycle event is missed.
	ch := app.bus.SubscribeAll()
	done := make(chan struct{})
	var reporter progress.Reporter = progress.NewCLIProgress()
	if quiet {
		reporter = progress.NewNoOpProgress()
	}
	go renderTransfers(ch, done, reporter)

	app.q.Enqueue(sources, dest, kind)
	app.q.Wait()
	close(done)

	failed := 0
	out := cmd.OutOrStdout()
	for _, op := range app.q.Operations() {
		if op.Status == queue.StatusFailed {
			failed++
			fmt.Fprintf(out, "failed: %s: %v\n", op.Source.Name, op.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s -> %s\n", op.Kind, op.Source.Name, op.DestName)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(sources))
	}
	return nil
}

// renderTransfers drives one progress bar per transfer off the event stream
// until done closes. The queue is strictly sequential, so at most one bar is
// live at a time.
func renderTransfers(ch <-chan events.Event, done <-chan struct{}, reporter progress.Reporter) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			te, isTransfer := ev.(*events.TransferEvent)
			if !isTransfer {
				continue
			}
			switch te.Type() {
			case events.EventTransferStarted:
				reporter.Start(progressUnits, fmt.Sprintf("%s %s", te.Kind, te.Name))
			case events.EventTransferProgress:
				reporter.Update(int64(te.Progress * progressUnits))
			case events.EventTransferCompleted:
				reporter.Update(progressUnits)
				reporter.Finish()
			case events.EventTransferFailed:
				reporter.Finish()
				reporter.Error(te.Error)
			}
		}
	}
}
