package cmd

import (
	"fmt"

	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived chart images, newest day first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer store.Close()

		days, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyJSON {
			if days == nil {
				days = []archive.Day{}
			}
			b, err := utils.PrettyJSON(days)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(days) == 0 {
			fmt.Fprintln(out, "No archived charts yet. Run 'vizloom chart <file> -q \"...\" --archive' to create one.")
			return nil
		}
		for _, d := range days {
			fmt.Fprintf(out, "%s (%d)\n", d.Date, len(d.Files))
			for _, f := range d.Files {
				typ := f.ChartType
				if typ == "" {
					typ = "-"
				}
				fmt.Fprintf(out, "  %-48s %-8s %8d bytes\n", f.Name, typ, f.Size)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the listing as JSON")
}
