package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/baulhq/baul/internal/gateway"
)

var rmCmd = &cobra.Command{
	Use:   "rm <connection> <bucket> <key>...",
	Short: "Delete objects",
	Args:  cobra.MinimumNArgs(3),
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
		if err := gw.DeleteObjects(cmd.Context(), args[1], args[2:]); err != nil {
			return err
		}

		a.bus.PublishBucketMutated(args[0], args[1])
		fmt.Printf("Deleted %d object(s)\n", len(args)-2)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <connection> <bucket> <key>",
	Short: "Show object metadata",
	Args:  cobra.ExactArgs(3),
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
		meta, err := gw.HeadMetadata(cmd.Context(), args[1], args[2])
		if err != nil {
			return err
		}

		fmt.Printf("Key:           %s\n", meta.Key)
		fmt.Printf("Size:          %s (%d bytes)\n", formatBytes(meta.Size), meta.Size)
		fmt.Printf("Last modified: %s\n", meta.LastModified.Format(time.RFC3339))
		fmt.Printf("ETag:          %s\n", meta.ETag)
		fmt.Printf("Content type:  %s\n", meta.ContentType)
		if meta.StorageClass != "" {
			fmt.Printf("Storage class: %s\n", meta.StorageClass)
		}
		if meta.VersionID != "" {
			fmt.Printf("Version id:    %s\n", meta.VersionID)
		}
		if meta.ContentEncoding != "" {
			fmt.Printf("Encoding:      %s\n", meta.ContentEncoding)
		}
		if len(meta.UserMetadata) > 0 {
			fmt.Println("User metadata:")
			keys := make([]string, 0, len(meta.UserMetadata))
			for k := range meta.UserMetadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %s\n", k, meta.UserMetadata[k])
			}
		}
		return nil
	},
}

var presignFlags struct {
	ttl time.Duration
}

var presignCmd = &cobra.Command{
	Use:   "presign <connection> <bucket> <key>",
	Short: "Generate a time-limited download URL",
	Args:  cobra.ExactArgs(3),
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
		url, err := gw.PresignURL(cmd.Context(), args[1], args[2], presignFlags.ttl)
		if err != nil {
			return err
		}

		fmt.Println(url)
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <connection> <bucket> <path>",
	Short: "Create an empty folder",
	Long:  "Create an empty folder by writing its zero-byte marker object. Object stores have no real directories; the marker makes the folder visible before it has contents.",
	Args:  cobra.ExactArgs(3),
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
		if err := gw.CreateFolder(cmd.Context(), args[1], args[2]); err != nil {
			return err
		}

		a.bus.PublishBucketMutated(args[0], args[1])
		fmt.Printf("Created %s\n", gateway.FolderPath(args[2]))
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <connection> <bucket> <old-key> <new-key>",
	Short: "Rename an object within a bucket",
	Long:  "Rename via server-side copy plus delete. Not atomic: if the delete fails both keys remain and the error is reported.",
	Args:  cobra.ExactArgs(4),
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
		if err := gateway.RenameObject(cmd.Context(), gw, args[1], args[2], args[3]); err != nil {
			return err
		}

		a.bus.PublishBucketMutated(args[0], args[1])
		fmt.Printf("Renamed %s -> %s\n", args[2], args[3])
		return nil
	},
}

func init() {
	presignCmd.Flags().DurationVar(&presignFlags.ttl, "ttl", 15*time.Minute, "URL lifetime (max 168h)")
}
