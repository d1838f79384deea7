package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets <connection>",
	Short: "List buckets visible to a connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gw, err := a.registry.Open(args[0])
		if err != nil {
			return err
		}
		buckets, err := gw.ListBuckets(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCREATED")
		for _, b := range buckets {
			fmt.Fprintf(w, "%s\t%s\n", b.Name, b.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var duCmd = &cobra.Command{
	Use:   "du <connection> <bucket>",
	Short: "Total object count and size of a bucket",
	Long:  "Walk the bucket's full listing and report the object count and total size. Large buckets take a while; every page is fetched.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gw, err := a.registry.Open(args[0])
		if err != nil {
			return err
		}
		stats, err := gw.BucketStats(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d objects, %s\n", stats.Name, stats.ObjectCount, formatBytes(stats.TotalSize))
		return nil
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
