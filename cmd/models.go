package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the known model catalog and pricing",
	Example: `  vizloom models
  vizloom models --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		out := cmd.OutOrStdout()
		if modelsJSON {
			b, err := utils.PrettyJSON(cat)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tIN $/1K\tOUT $/1K\tCODE")
		for _, m := range cat {
			code := ""
			if m.Code {
				code = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.5f\t%.5f\t%s\n", m.Name, m.Provider, m.ContextTokens, m.InputPerK, m.OutputPerK, code)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalog as JSON")
}
