package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibecope/vibecope/internal/features"
	httpapi "github.com/vibecope/vibecope/internal/http"
	"github.com/vibecope/vibecope/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file|-]",
	Short: "Score a post from a file or stdin",
	Long: `Score a post from a file or stdin and print the verdict under the current
settings.

Examples:
  # Score a file
  vibecope score post.txt

  # Score from stdin as JSON
  pbpaste | vibecope score --json -

  # Score with the English patterns only
  vibecope score --locales en post.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

var explainCmd = &cobra.Command{
	Use:   "explain [file|-]",
	Short: "Show the heuristic breakdown for a post",
	Long: `Show every feature value and the aggregation branch behind a heuristic
score. The breakdown is heuristic even when a classifier is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, explainCmd} {
		c.Flags().Bool("json", false, "print JSON")
		c.Flags().String("locales", "", "comma-separated locale ids overriding the settings")
	}
}

func runScore(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	override, _ := cmd.Flags().GetString("locales")

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.initPatterns(ctx, override); err != nil {
		return err
	}
	st, err := a.store.Get(ctx)
	if err != nil {
		return err
	}

	result := a.engine.ScorePost(text)
	verdict := st.Verdict(result.Score)
	resp := httpapi.ScoreResponse{
		Score:    result.Score,
		Reasons:  result.Reasons,
		Filtered: verdict.Filtered,
		Action:   verdict.Action,
		Path:     a.engine.Path(),
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Score: %d/100 (%s)\n", resp.Score, resp.Path)
	if resp.Filtered {
		fmt.Fprintf(out, "Verdict: filtered (%s)\n", resp.Action)
	} else {
		fmt.Fprintln(out, "Verdict: pass")
	}
	writeReasons(out, resp.Reasons)
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	override, _ := cmd.Flags().GetString("locales")

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.initPatterns(cmd.Context(), override); err != nil {
		return err
	}

	exp := a.engine.Explain(text)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), exp)
	}
	writeExplanation(cmd.OutOrStdout(), exp)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReasons(w io.Writer, reasons []string) {
	if len(reasons) == 0 {
		return
	}
	fmt.Fprintln(w, "Reasons:")
	for _, r := range reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

func writeExplanation(w io.Writer, exp scoring.Explanation) {
	b := exp.Breakdown
	fmt.Fprintf(w, "Score: %d/100 (%s branch)\n", exp.Result.Score, b.Branch)
	fmt.Fprintf(w, "Pattern score: %.2f  Structural sum: %.3f  Raw: %.2f\n", b.PatternScore, b.StructuralSum, b.Raw)
	fmt.Fprintf(w, "Locales: %s\n", strings.Join(exp.Locales, ", "))
	fmt.Fprintln(w, "Features:")
	for _, k := range features.All() {
		r := exp.Features[k.String()]
		fmt.Fprintf(w, "  %-20s %-10s %.2f  %s\n", k, k.Group(), r.Value, r.Reason)
	}
	writeReasons(w, exp.Result.Reasons)
}
