package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/dataset"
	"github.com/KaramelBytes/vizloom-cli/internal/markdown"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaFormat     string
	anaPreview    int
	anaLLM        bool
	anaModel      string
	anaProvider   string
	anaBackup     bool
	anaWidth      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Preview and summarize a CSV/TSV/XLSX file",
	Long: `Loads a data file, prints a preview and a local summary (column kinds, units,
head rows, group counts). With --llm the model also describes the dataset.`,
	Example: `  vizloom analyze sales.csv
  vizloom analyze sales.xlsx --format json
  vizloom analyze sales.csv --llm --format terminal`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(anaFormat))
		switch format {
		case "markdown", "md", "json", "html", "terminal":
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json|html|terminal)", anaFormat)
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}

		ds, raw, err := loadDatasetFile(args[0])
		if err != nil {
			return err
		}
		summary := ds.Summarize()

		var report string
		if format == "json" {
			if report, err = summary.JSON(); err != nil {
				return err
			}
		} else {
			preview := anaPreview
			if !cmd.Flags().Changed("preview") {
				preview = c.PreviewLines
			}
			md := summary.Markdown()
			if preview > 0 {
				md = "[PREVIEW]\n```\n" + ds.Preview(preview) + "\n```\n\n" + md
			}
			if report, err = renderReport(md, format, anaWidth); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if anaBackup {
			store, err := openStore(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer store.Close()
			js, err := summary.JSON()
			if err != nil {
				return err
			}
			dataPath, _, err := store.SaveBackup(ds.Name, raw, js)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Backed up %s to %s\n", ds.Name, dataPath)
		}

		if anaLLM {
			svc, providerName, err := newService(c, serviceOptions{Provider: anaProvider, Model: anaModel, Logger: cliLogger(cmd)})
			if err != nil {
				return err
			}
			desc, err := svc.Describe(cmd.Context(), ds)
			if err != nil {
				return explainError(err, providerName, selectModel(c, anaModel))
			}
			var text string
			switch format {
			case "json":
				js, err := utils.PrettyJSON(map[string]any{"summary": summary, "description": desc})
				if err != nil {
					return err
				}
				report = string(js)
			case "html":
				text = desc.HTML
			default:
				if text, err = renderReport(desc.Markdown, format, anaWidth); err != nil {
					return err
				}
			}
			if text != "" {
				report += "\n\n[MODEL SUMMARY: " + desc.Model + "]\n" + text
			}
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(report)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(out, report)
		return nil
	},
}

// loadDatasetFile opens path and returns the dataset with its raw bytes.
func loadDatasetFile(path string) (*dataset.Dataset, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read data file: %w", err)
	}
	ds, err := dataset.Load(filepath.Base(path), bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	return ds, raw, nil
}

func renderReport(md, format string, width int) (string, error) {
	switch format {
	case "html":
		return markdown.RenderFull(md)
	case "terminal":
		return markdown.RenderTerminal(md, width)
	}
	return md, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "report format: markdown|json|html|terminal")
	analyzeCmd.Flags().IntVar(&anaPreview, "preview", 0, "number of raw lines to preview (default from config preview_lines; 0 disables)")
	analyzeCmd.Flags().BoolVar(&anaLLM, "llm", false, "ask the model to describe the dataset")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model to use with --llm (default from config)")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "provider: deepseek|openai|ollama (default from config)")
	analyzeCmd.Flags().BoolVar(&anaBackup, "backup", false, "copy the file and its summary into the data dir backups")
	analyzeCmd.Flags().IntVar(&anaWidth, "width", 100, "word wrap width for --format terminal")
}
