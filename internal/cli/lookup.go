package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	lookupTimeout time.Duration
	lookupJSON    bool
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <company>",
	Short: "Search recent headlines for one company and record its signals",
	Long: `Lookup runs a targeted search for a single company:
- Fetch headlines from the source chain (news API, feed search, fallback)
- Score each headline for construction relevance
- Summarise the company and locate its headquarters
- Write the profile and relevant signals to the database

Example:
  leadmaster lookup "Acme Foods"
  leadmaster lookup "Acme Foods" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().DurationVar(&lookupTimeout, "timeout", 2*time.Minute, "overall lookup timeout")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the result as JSON")
}

func runLookup(cmd *cobra.Command, args []string) error {
	company := strings.Join(args, " ")

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
	defer cancel()

	result, err := rt.pipeline.ManualSearch(ctx, company)
	if result == nil {
		return eris.Wrapf(err, "lookup %q failed", company)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: result not saved: %v\n", err)
	}

	if lookupJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printLookup(os.Stdout, result)
	return nil
}

func printLookup(w io.Writer, r *model.LookupResult) {
	fmt.Fprintf(w, "\n%s\n", r.Company)
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if r.NoSignals {
		fmt.Fprintln(w, "No relevant construction signals found.")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Summary:     %s\n", r.Summary.Summary)
	fmt.Fprintf(w, "  Sector:      %s\n", orDash(r.Summary.Sector))
	fmt.Fprintf(w, "  Confidence:  %.2f\n", r.Summary.Confidence)
	fmt.Fprintf(w, "  Land:        %s\n", yesNo(r.Summary.LandPurchase))
	if r.Lat != nil && r.Lon != nil {
		fmt.Fprintf(w, "  Location:    %.4f, %.4f\n", *r.Lat, *r.Lon)
	}
	fmt.Fprintf(w, "  Saved:       %d signal(s)\n", r.Written)
	fmt.Fprintln(w)

	for _, h := range r.Headlines {
		fmt.Fprintf(w, "  [%.2f] %s  %s\n", h.Relevance, orDash(h.Date), h.Headline)
		if h.URL != "" {
			fmt.Fprintf(w, "         %s\n", h.URL)
		}
	}
	fmt.Fprintln(w)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
