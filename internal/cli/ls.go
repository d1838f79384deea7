package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baulhq/baul/internal/listing"
)

var lsFlags struct {
	pages    int
	all      bool
	pageSize int32
}

var lsCmd = &cobra.Command{
	Use:   "ls <connection> <bucket> [prefix]",
	Short: "List objects under a prefix",
	Long: `List objects and folders under a prefix, one "/"-delimited level at a
time. Listing is paginated: by default one page is fetched; --pages fetches
more and --all keeps going until the store reports no further pages. Fetched
pages accumulate and the merged view is printed.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		prefix := ""
		if len(args) == 3 {
			prefix = args[2]
		}
		scope := listing.Scope{ConnectionID: args[0], Bucket: args[1], Prefix: prefix}

		cache := a.cache
		if lsFlags.pageSize > 0 {
			cache = listing.NewCache(a.registry, a.bus, lsFlags.pageSize)
		}

		pages := lsFlags.pages
		if pages < 1 {
			pages = 1
		}
		for i := 0; i < pages || lsFlags.all; i++ {
			if i > 0 && !cache.HasMore(scope) {
				break
			}
			if _, err := cache.FetchPage(cmd.Context(), scope, i); err != nil {
				return err
			}
		}

		flat := cache.Flatten(scope)
		printListing(flat)
		return nil
	},
}

func printListing(flat listing.Flattened) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	for _, p := range flat.Prefixes {
		fmt.Fprintf(w, "%12s\t%s\t%s\n", "DIR", "", p)
	}
	for _, e := range flat.Entries {
		fmt.Fprintf(w, "%12d\t%s\t%s\n", e.Size, e.LastModified.Format("2006-01-02 15:04"), e.Key)
	}
	w.Flush()

	if flat.HasMore {
		fmt.Println(strings.Repeat("-", 20))
		fmt.Println("More objects available; rerun with --pages N or --all")
	}
}

func init() {
	lsCmd.Flags().IntVar(&lsFlags.pages, "pages", 1, "number of pages to fetch")
	lsCmd.Flags().BoolVar(&lsFlags.all, "all", false, "fetch every page")
	lsCmd.Flags().Int32Var(&lsFlags.pageSize, "page-size", 0, "objects per page (default 500, max 1000)")
}
