package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/vizloom-cli/internal/markdown"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rdEngine   string
	rdTerminal bool
	rdWidth    int
	rdOutput   string
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render model-style markdown to HTML or the terminal",
	Long: `Reads markdown from a file or stdin. The lite engine handles the subset models
reply with (headings, bold, lists, tables); goldmark renders full CommonMark with GFM.`,
	Example: `  vizloom render summary.md
  echo "## Title" | vizloom render --engine goldmark
  vizloom render summary.md --terminal`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			src []byte
			err error
		)
		if len(args) == 1 && args[0] != "-" {
			src, err = os.ReadFile(args[0])
		} else {
			src, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read markdown: %w", err)
		}

		var out string
		if rdTerminal {
			out, err = markdown.RenderTerminal(string(src), rdWidth)
		} else {
			out, err = markdown.RenderWith(rdEngine, string(src))
		}
		if err != nil {
			return err
		}

		if rdOutput != "" {
			if err := utils.SafeWriteFile(rdOutput, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", rdOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&rdEngine, "engine", markdown.EngineLite, "HTML engine: lite|goldmark")
	renderCmd.Flags().BoolVar(&rdTerminal, "terminal", false, "style for the terminal instead of HTML")
	renderCmd.Flags().IntVar(&rdWidth, "width", 100, "word wrap width for --terminal")
	renderCmd.Flags().StringVarP(&rdOutput, "output", "o", "", "write the result to this path")
}
