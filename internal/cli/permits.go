package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/leadmaster/internal/permits"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	permitsPerFeed int
	permitsTimeout time.Duration
	permitsJSON    bool
)

// permitsCmd represents the permits command
var permitsCmd = &cobra.Command{
	Use:   "permits",
	Short: "List recent building permit notices",
	Long: `Permits searches the national building-permit feed and a set of county
government sites for permit notices. Notices that mention a contractor
are left out since the work is already awarded. Results are listed only.

Example:
  leadmaster permits
  leadmaster permits --max 5 --json`,
	Args: cobra.NoArgs,
	RunE: runPermits,
}

func init() {
	rootCmd.AddCommand(permitsCmd)

	permitsCmd.Flags().IntVar(&permitsPerFeed, "max", 10, "max notices per feed")
	permitsCmd.Flags().DurationVar(&permitsTimeout, "timeout", 2*time.Minute, "overall timeout")
	permitsCmd.Flags().BoolVar(&permitsJSON, "json", false, "print notices as JSON")
}

// newPermitFetcher builds the permit fetcher on the feed-search adapter
func newPermitFetcher(rps float64, concurrency int) (*permits.Fetcher, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if rps <= 0 {
		rps = cfg.Search.RequestsPerSecond
	}
	if concurrency <= 0 {
		concurrency = cfg.Search.Concurrency
	}
	_, feeds := source.DefaultChain(cfg, worker.NewLimiter(rps, 2))
	return permits.NewFetcher(feeds, nil, concurrency), nil
}

func runPermits(cmd *cobra.Command, args []string) error {
	fetcher, err := newPermitFetcher(0, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), permitsTimeout)
	defer cancel()

	notices := fetcher.Fetch(ctx, permitsPerFeed)

	if permitsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(notices)
	}
	printPermits(os.Stdout, notices)
	return nil
}

func printPermits(w io.Writer, notices []permits.Permit) {
	if len(notices) == 0 {
		fmt.Fprintln(w, "No permit notices found.")
		return
	}
	for _, n := range notices {
		fmt.Fprintf(w, "%-10s %-9s %s\n", n.Feed, orDash(n.Date), n.Headline)
		if n.URL != "" {
			fmt.Fprintf(w, "%-20s %s\n", "", n.URL)
		}
	}
	fmt.Fprintf(w, "\n%d notice(s)\n", len(notices))
}
