package cli

import (
	"github.com/spf13/cobra"
)

// AddCacheCommand registers the "forge cache" command group. Its only
// subcommand today is "purge"; the group exists on its own (distinct
// from the bare "clean" verb) so cache-specific operations have a
// namespace to grow into without crowding the top-level command list.
func AddCacheCommand(root *cobra.Command, flags *GlobalFlags) {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or manage the build cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove every entry from the local cache tier",
		RunE: func(_ *cobra.Command, _ []string) error {
			e, err := newEngine(flags)
			if err != nil {
				return err
			}
			store, closeStore, err := e.buildCacheStore()
			if err != nil {
				return err
			}
			if closeStore != nil {
				defer func() { _ = closeStore() }()
			}
			return store.Purge()
		},
	})

	root.AddCommand(cacheCmd)
}
