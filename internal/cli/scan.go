package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scanTimeout time.Duration
	scanJSON    bool
	scanNATS    bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a broad keyword scan and record every prospect found",
	Long: `Scan searches every scan keyword across the source chain:
- Load or refresh the keyword list (expanded weekly from the seed phrases)
- Fetch headlines for each keyword concurrently
- Drop near-duplicate headlines and those matching no keyword
- Score the remaining headlines and group them per company
- Summarise, locate and write each company with its signals

Press Ctrl-C to stop early; work already written is kept and the report
shows partial counts.

Example:
  leadmaster scan
  leadmaster scan --timeout 30m --json
  leadmaster scan --nats`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "overall scan timeout (0 = none)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the report as JSON")
	scanCmd.Flags().BoolVar(&scanNATS, "nats", false, "publish progress to NATS (notify.nats_url)")
}

func runScan(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanTimeout)
		defer cancel()
	}

	progress := notify.Log(zap.L())
	if scanNATS || rt.cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(rt.cfg.Notify.NATSURL, rt.cfg.Notify.Subject)
		if err != nil {
			zap.L().Warn("progress publishing disabled", zap.Error(err))
		} else {
			defer func() {
				if err := pub.Close(); err != nil {
					zap.L().Warn("closing nats connection", zap.Error(err))
				}
			}()
			progress = notify.Multi(progress, pub.Progress())
		}
	}

	report := rt.pipeline.NationalScan(ctx, progress)

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printScanReport(os.Stdout, report)
	return nil
}

func printScanReport(w io.Writer, r *model.ScanReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	if r.Cancelled {
		fmt.Fprintln(w, "  Scan stopped early (partial results)")
	} else {
		fmt.Fprintln(w, "  Scan complete")
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Run:          %s\n", r.RunID)
	fmt.Fprintf(w, "  Duration:     %v\n", r.Duration.Round(time.Second))
	fmt.Fprintf(w, "  Keywords:     %d/%d fetched\n", r.KeywordsFetched, r.Keywords)
	fmt.Fprintf(w, "  Headlines:    %d fetched, %d unique, %d matched\n", r.Fetched, r.Unique, r.Matched)
	fmt.Fprintf(w, "  Relevant:     %d\n", r.Relevant)
	fmt.Fprintf(w, "  Companies:    %d written, %d failed, %d total\n", r.CompaniesWritten, r.CompaniesFailed, r.Companies)
	fmt.Fprintf(w, "  Signals:      %d written\n", r.SignalsWritten)
	fmt.Fprintf(w, "  Spend:        %d¢", r.SpentCents)
	if r.BudgetExhausted {
		fmt.Fprint(w, " (daily budget exhausted, heuristics used)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}
