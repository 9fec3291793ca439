package cli

import (
	"fmt"
	"io"
	"strings"

	"agency-ledger/internal/app"
	"agency-ledger/internal/core"
)

// printTable renders data for terminal reading. It reports false when
// there is no table layout for the type.
func printTable(w io.Writer, data any) bool {
	switch v := data.(type) {
	case *app.TrialBalanceResult:
		printTrialBalance(w, v)
	case *app.RankingsResult:
		printRankings(w, v.Rankings)
	case *core.ReceivablesReport:
		printReceivables(w, v)
	default:
		return false
	}
	return true
}

func printTrialBalance(w io.Writer, result *app.TrialBalanceResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 74))
	fmt.Fprintf(w, "  %-70s\n", "TRIAL BALANCE")
	fmt.Fprintln(w, strings.Repeat("=", 74))
	fmt.Fprintf(w, "  %-10s %-30s %14s %14s\n", "CODE", "NAME", "DEBIT", "CREDIT")
	fmt.Fprintln(w, strings.Repeat("-", 74))
	if result.TrialBalance != nil {
		for _, l := range result.Lines {
			fmt.Fprintf(w, "  %-10s %-30s %14s %14s\n", l.Code, truncate(l.Name, 30), amount(l.Debit.IsZero(), l.Debit.StringFixed(2)), amount(l.Credit.IsZero(), l.Credit.StringFixed(2)))
		}
		fmt.Fprintln(w, strings.Repeat("-", 74))
		fmt.Fprintf(w, "  %-41s %14s %14s\n", "TOTAL", result.TotalDebit.StringFixed(2), result.TotalCredit.StringFixed(2))
		if !result.IsBalanced {
			fmt.Fprintln(w, "  WARNING: debits and credits differ")
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 74))
}

func printRankings(w io.Writer, rankings []core.AgencyRanking) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-74s\n", "AGENCY RANKINGS")
	fmt.Fprintln(w, strings.Repeat("=", 78))
	if len(rankings) == 0 {
		fmt.Fprintln(w, "  No rankings calculated yet.")
		fmt.Fprintln(w, strings.Repeat("=", 78))
		return
	}
	fmt.Fprintf(w, "  %4s  %-10s %-24s %8s  %-9s %14s\n", "RANK", "CODE", "NAME", "SCORE", "TIER", "REVENUE")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, r := range rankings {
		fmt.Fprintf(w, "  %4d  %-10s %-24s %8s  %-9s %14s\n",
			r.Rank, r.AgencyCode, truncate(r.AgencyName, 24), r.Score.StringFixed(2), r.Tier, r.Revenue.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("=", 78))
}

func printReceivables(w io.Writer, report *core.ReceivablesReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  ACCOUNTS RECEIVABLE AGING as of %s\n", report.AsOf.Format("2006-01-02"))
	fmt.Fprintln(w, strings.Repeat("=", 78))
	if len(report.Agencies) == 0 {
		fmt.Fprintln(w, "  No outstanding invoices.")
		fmt.Fprintln(w, strings.Repeat("=", 78))
		return
	}
	fmt.Fprintf(w, "  %-10s %11s %11s %11s %11s %11s\n", "AGENCY", "CURRENT", "1-30", "31-60", "61-90", "90+")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, a := range report.Agencies {
		fmt.Fprintf(w, "  %-10s %11s %11s %11s %11s %11s\n", a.AgencyCode,
			a.Buckets[core.BucketCurrent].StringFixed(2), a.Buckets[core.Bucket1To30].StringFixed(2),
			a.Buckets[core.Bucket31To60].StringFixed(2), a.Buckets[core.Bucket61To90].StringFixed(2),
			a.Buckets[core.BucketOver90].StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 78))
	fmt.Fprintf(w, "  %-10s %11s %11s %11s %11s %11s\n", "TOTAL",
		report.Buckets[core.BucketCurrent].StringFixed(2), report.Buckets[core.Bucket1To30].StringFixed(2),
		report.Buckets[core.Bucket31To60].StringFixed(2), report.Buckets[core.Bucket61To90].StringFixed(2),
		report.Buckets[core.BucketOver90].StringFixed(2))
	fmt.Fprintf(w, "  Outstanding: %s\n", report.Total.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 78))
}

func amount(zero bool, s string) string {
	if zero {
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
