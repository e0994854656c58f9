package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abOutDir string
	abFormat string
	abBackup bool
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Summarize multiple CSV/TSV/XLSX files with progress",
	Long: `Expands globs, summarizes each file locally and writes <name>.summary.md (or .json)
into --out-dir. Files sharing a base name get a __2, __3 ... suffix instead of overwriting.`,
	Example: `  vizloom analyze-batch "data/*.csv" --out-dir summaries
  vizloom analyze-batch q1.xlsx q2.xlsx --format json --backup`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		ext := ".summary.md"
		switch strings.ToLower(abFormat) {
		case "markdown", "md":
		case "json":
			ext = ".summary.json"
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", abFormat)
		}
		if err := utils.EnsureDir(abOutDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		out := cmd.OutOrStdout()
		var store *archive.Store
		if abBackup {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			if store, err = openStore(cmd.Context(), c); err != nil {
				return err
			}
			defer store.Close()
		}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, raw, err := loadDatasetFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			summary := ds.Summarize()
			js, err := summary.JSON()
			if err != nil {
				return err
			}
			body := summary.Markdown()
			if ext == ".summary.json" {
				body = js
			}

			base := filepath.Base(path)
			outFile := uniquePath(abOutDir, strings.TrimSuffix(base, filepath.Ext(base)), ext)
			if err := utils.SafeWriteFile(outFile, []byte(body)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if store != nil {
				if _, _, err := store.SaveBackup(ds.Name, raw, js); err != nil {
					return err
				}
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ %s: %d rows, %d columns -> %s\n", base, summary.Rows, len(summary.Columns), outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// uniquePath returns dir/stem+ext, or the first free dir/stem__N+ext.
func uniquePath(dir, stem, ext string) string {
	p := filepath.Join(dir, stem+ext)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "summaries", "directory for the summary files")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "summary format: markdown|json")
	analyzeBatchCmd.Flags().BoolVar(&abBackup, "backup", false, "also copy each file and its summary into the data dir backups")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
