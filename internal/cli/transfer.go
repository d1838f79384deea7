package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/baulhq/baul/internal/events"
	"github.com/baulhq/baul/internal/transfer"
)

var putFlags struct {
	prefix string
}

var putCmd = &cobra.Command{
	Use:   "put <connection> <bucket> <file>...",
	Short: "Upload files to a bucket",
	Long: `Upload one or more local files. Files in a single invocation form one
batch and upload sequentially; a failure does not stop the remaining files.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		connID, bucket := args[0], args[1]
		batch := make([]transfer.Descriptor, 0, len(args)-2)
		for _, path := range args[2:] {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory; uploads take files", path)
			}
			name := filepath.Base(path)
			batch = append(batch, transfer.Descriptor{
				Type:         transfer.TypeUpload,
				ConnectionID: connID,
				Bucket:       bucket,
				Key:          putFlags.prefix + name,
				LocalPath:    path,
				Name:         name,
				TotalBytes:   info.Size(),
			})
		}

		return runBatch(cmd, a, batch)
	},
}

var getFlags struct {
	out string
}

var getCmd = &cobra.Command{
	Use:   "get <connection> <bucket> <key>...",
	Short: "Download objects from a bucket",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		connID, bucket := args[0], args[1]
		batch := make([]transfer.Descriptor, 0, len(args)-2)
		for _, key := range args[2:] {
			batch = append(batch, transfer.Descriptor{
				Type:         transfer.TypeDownload,
				ConnectionID: connID,
				Bucket:       bucket,
				Key:          key,
				LocalPath:    getFlags.out,
				Name:         filepath.Base(key),
			})
		}

		return runBatch(cmd, a, batch)
	},
}

// runBatch executes the batch synchronously while a renderer goroutine
// turns bus events into progress bars.
func runBatch(cmd *cobra.Command, a *app, batch []transfer.Descriptor) error {
	done := make(chan struct{})
	go renderProgress(a.bus, done)

	result := a.executor.Run(cmd.Context(), batch)
	close(done)

	fmt.Printf("%d succeeded, %d failed\n", result.Succeeded, result.Failed)
	if result.Failed > 0 {
		for _, rec := range a.queue.Records() {
			if rec.State == transfer.StateFailed {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", rec.Name, rec.Error)
			}
		}
		return fmt.Errorf("%d transfer(s) failed", result.Failed)
	}
	return nil
}

// renderProgress draws one bar per transfer from queue events until done
// closes. Bars are keyed by record id; within a batch they appear one
// after another.
func renderProgress(bus *events.Bus, done <-chan struct{}) {
	ch := bus.SubscribeAll()
	defer bus.UnsubscribeAll(ch)

	bars := make(map[string]*progressbar.ProgressBar)
	for {
		select {
		case <-done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			te, ok := ev.(*events.TransferEvent)
			if !ok {
				continue
			}
			switch ev.Type() {
			case events.EventTransferStarted:
				bars[te.RecordID] = progressbar.DefaultBytes(te.TotalBytes, te.Name)
			case events.EventTransferProgress:
				if bar, ok := bars[te.RecordID]; ok {
					_ = bar.Set64(te.Bytes)
				}
			case events.EventTransferCompleted:
				if bar, ok := bars[te.RecordID]; ok {
					_ = bar.Finish()
					delete(bars, te.RecordID)
				}
			case events.EventTransferFailed, events.EventTransferCancelled:
				if bar, ok := bars[te.RecordID]; ok {
					_ = bar.Exit()
					delete(bars, te.RecordID)
				}
			}
		}
	}
}

func init() {
	putCmd.Flags().StringVar(&putFlags.prefix, "prefix", "", "key prefix for uploaded objects (e.g. photos/2026/)")
	getCmd.Flags().StringVar(&getFlags.out, "out", ".", "destination directory or file path")
}
