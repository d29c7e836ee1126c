package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Validate and list the analyst identities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identities, err := loadIdentities()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, id := range identities.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", id.ID, id.Name, id.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d identities loaded from %s\n", identities.Len(), GetConfig().IdentitiesPath(GetRootDir()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}
