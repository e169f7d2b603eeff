package cli

import (
	"github.com/spf13/cobra"
)

// AddCleanCommand registers "forge clean": discard every cached
// artifact so the next build recompiles and repackages everything
// from scratch. §4.4 leaves cache retention entirely to an external
// operator; this is that operator, exposed as a CLI verb.
func AddCleanCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Purge the local build cache",
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
}
