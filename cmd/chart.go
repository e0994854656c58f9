package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/chart"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/KaramelBytes/vizloom-cli/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	chQuestion    string
	chOut         string
	chCodeFile    string
	chArchive     bool
	chModel       string
	chProvider    string
	chPrintCode   bool
	chDryRun      bool
	chBudgetLimit float64
	chWidth       int
	chHeight      int
	chFormat      string
)

var chartCmd = &cobra.Command{
	Use:   "chart [file]",
	Short: "Ask the model for Chart.js code and render it to an image",
	Long: `Sends the rows of a data file and a question to the model, extracts the Chart.js
code from the reply and draws it to PNG or SVG. --code-file skips the model and
draws code (or a raw reply with fences) read from a file.`,
	Example: `  vizloom chart sales.csv -q "monthly sales as a bar chart" --out sales.png
  vizloom chart sales.csv -q "share by region" --format svg --archive
  vizloom chart --code-file reply.md --out chart.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		canvas := newCanvas(c, chWidth, chHeight, chFormat)
		var store *archive.Store
		if chArchive {
			if store, err = openStore(ctx, c); err != nil {
				return err
			}
			defer store.Close()
		}

		svcOpts := serviceOptions{
			Provider: chProvider,
			Model:    chModel,
			Canvas:   canvas,
			Store:    store,
			Logger:   cliLogger(cmd),
			Offline:  chCodeFile != "",
		}

		var code, prompt string
		if chCodeFile != "" {
			b, err := os.ReadFile(chCodeFile)
			if err != nil {
				return fmt.Errorf("read code file: %w", err)
			}
			if code, err = chart.Extract(string(b)); err != nil {
				return explainError(err, "", "")
			}
			prompt = "code file " + chCodeFile
		} else {
			if len(args) != 1 {
				return fmt.Errorf("a data file is required unless --code-file is given")
			}
			if strings.TrimSpace(chQuestion) == "" {
				return fmt.Errorf("--question is required")
			}
			ds, _, err := loadDatasetFile(args[0])
			if err != nil {
				return err
			}
			prompt = chQuestion
			model := ai.ChartModel(selectModel(c, chModel))

			chartPrompt, err := ai.ChartPrompt(ds.Records(), chQuestion, ai.DefaultCanvasID)
			if err != nil {
				return err
			}
			tokens := utils.CountTokens(chartPrompt)
			est, priced := ai.EstimateCostUSD(model, tokens, c.MaxTokens)
			if chDryRun {
				fmt.Fprintln(out, chartPrompt)
				fmt.Fprintf(out, "\nModel: %s\nPrompt tokens: ~%d\n", model, tokens)
				if priced {
					fmt.Fprintf(out, "Estimated cost: ~$%.4f (max %d completion tokens)\n", est, c.MaxTokens)
				}
				return enforceBudget(est, chBudgetLimit)
			}
			if err := enforceBudget(est, chBudgetLimit); err != nil {
				return err
			}

			svc, providerName, err := newService(c, svcOpts)
			if err != nil {
				return err
			}
			_, code, model, err = svc.GenerateCode(ctx, ds, chQuestion)
			if err != nil {
				return explainError(err, providerName, model)
			}
			return drawAndSave(cmd, svc, code, prompt)
		}

		svc, _, err := newService(c, svcOpts)
		if err != nil {
			return err
		}
		return drawAndSave(cmd, svc, code, prompt)
	},
}

// drawAndSave executes code on the service canvas, then writes and archives the image.
func drawAndSave(cmd *cobra.Command, svc *workflow.Service, code, prompt string) error {
	out := cmd.OutOrStdout()
	if chPrintCode {
		fmt.Fprintln(out, code)
	}
	res, err := svc.Draw(code)
	if err != nil {
		return explainError(err, "", "")
	}
	typ := res.Config.Type

	path := chOut
	if path == "" && svc.Store() == nil {
		path = "chart" + svc.Canvas().Ext()
	}
	if path != "" {
		if err := utils.SafeWriteFile(path, res.Image); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		fmt.Fprintf(out, "✓ Wrote %s chart to %s (%d bytes)\n", typ, path, len(res.Image))
	}
	if svc.Store() != nil {
		rec, err := svc.Archive(cmd.Context(), res, prompt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Archived %s chart as %s/%s\n", typ, rec.Day, rec.Name)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chQuestion, "question", "q", "", "what to chart, in plain language")
	chartCmd.Flags().StringVarP(&chOut, "out", "o", "", "image output path (default chart.<format> unless --archive)")
	chartCmd.Flags().StringVar(&chCodeFile, "code-file", "", "draw chart code from this file instead of asking the model")
	chartCmd.Flags().BoolVar(&chArchive, "archive", false, "store the image in the dated archive")
	chartCmd.Flags().StringVar(&chModel, "model", "", "chat model; a code model from the same provider is preferred")
	chartCmd.Flags().StringVar(&chProvider, "provider", "", "provider: deepseek|openai|ollama (default from config)")
	chartCmd.Flags().BoolVar(&chPrintCode, "print-code", false, "print the extracted chart code")
	chartCmd.Flags().BoolVar(&chDryRun, "dry-run", false, "print the prompt and a cost estimate without calling the model")
	chartCmd.Flags().Float64Var(&chBudgetLimit, "budget-limit", 0, "fail if the estimated cost in USD exceeds this value")
	chartCmd.Flags().IntVar(&chWidth, "width", 0, "image width in pixels (default from config)")
	chartCmd.Flags().IntVar(&chHeight, "height", 0, "image height in pixels (default from config)")
	chartCmd.Flags().StringVar(&chFormat, "format", "", "image format: png|svg (default from config)")
}
