// Command santa draws a gift exchange locally, without the HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "santa",
		Short: "Secret Santa organizer",
		Long: `santa pairs every participant with someone else to buy a gift for.

Nobody draws themselves and everyone receives exactly one gift. With
--tokens each recipient is shown as an opaque display token instead of
a name. Tokens are for display only: nothing can open them later and they
are not a way to keep the pairs confidential.`,
		SilenceUsage: true,
	}
	root.SetErrPrefix(fmt.Sprintf("%s:", root.Use))
	root.AddCommand(newDrawCmd())
	return root
}
