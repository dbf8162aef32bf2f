package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	httpapi "github.com/vibecope/vibecope/internal/http"
)

var localesCmd = &cobra.Command{
	Use:   "locales",
	Short: "List available locales",
	Long: `List the locale tables vibecope can match against. Enabled locales are
marked with "*".`,
	Args: cobra.NoArgs,
	RunE: runLocales,
}

func init() {
	localesCmd.Flags().Bool("json", false, "print JSON")
}

func runLocales(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	enabled, err := a.store.EnabledLocales(cmd.Context())
	if err != nil {
		return err
	}

	available := a.locales.Available()
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), httpapi.LocalesResponse{Available: available, Enabled: enabled})
	}

	out := cmd.OutOrStdout()
	for _, info := range available {
		mark := " "
		if slices.Contains(enabled, info.Locale) {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-4s %s\n", mark, info.Locale, info.Label)
	}
	return nil
}
