package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agency-ledger/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Runtime is what a command needs once the process is wired up.
type Runtime struct {
	Svc app.ApplicationService
	Log *zap.Logger
	// Migrate applies pending schema migrations.
	Migrate func(ctx context.Context) error
}

// Opener wires the runtime on first use; the returned func releases it.
type Opener func(ctx context.Context) (*Runtime, func(), error)

// errFailed marks a command whose envelope already reported the failure.
var errFailed = errors.New("operation failed")

// NewRootCmd builds the command tree. Every command prints the
// {success, data|error} envelope as indented JSON. The returned func releases
// whatever the opener acquired and must run after Execute, failed or not.
func NewRootCmd(open Opener) (*cobra.Command, func()) {
	root := &cobra.Command{
		Use:           "app",
		Short:         "Agency ledger and commission engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("format", "json", "Output format: json or table")

	var rt *Runtime
	var done func()
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		r, release, err := open(cmd.Context())
		if err != nil {
			return err
		}
		rt, done = r, release
		return nil
	}
	runtime := func() *Runtime { return rt }

	root.AddCommand(
		migrateCmd(runtime),
		rankingsCmd(runtime),
	)
	root.AddCommand(reportCmds(runtime)...)
	root.AddCommand(commissionCmd(runtime), bookingCmd(runtime))

	release := func() {
		if done != nil {
			done()
			done = nil
		}
	}
	return root, release
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, open Opener, args []string) error {
	root, release := NewRootCmd(open)
	defer release()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errFailed) {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
	}
	return err
}

// printResult writes the envelope, or a table when asked for one, and
// returns errFailed for failures.
func printResult(cmd *cobra.Command, data any, err error) error {
	env := app.Wrap(data, err)
	if format, _ := cmd.Flags().GetString("format"); format == "table" {
		if env.Success && printTable(cmd.OutOrStdout(), data) {
			return nil
		}
		if !env.Success {
			fmt.Fprintf(cmd.OutOrStdout(), "error: %s: %s\n", env.Error.Code, env.Error.Message)
			return errFailed
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(env); encErr != nil {
		return encErr
	}
	if !env.Success {
		return errFailed
	}
	return nil
}

func migrateCmd(rt func() *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt().Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func rankingsCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Agency performance rankings",
	}

	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Recalculate all agency rankings and replace the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rt().Svc.CalculateAgencyRankings(cmd.Context())
			return printResult(cmd, result, err)
		},
	}

	top := &cobra.Command{
		Use:   "top",
		Short: "Show the top performing agencies from the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			result, err := rt().Svc.GetTopPerformingAgencies(cmd.Context(), limit)
			return printResult(cmd, result, err)
		},
	}
	top.Flags().IntP("limit", "n", 10, "Number of agencies to show")

	report := &cobra.Command{
		Use:   "report",
		Short: "Show the full ranking report with tier distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rt().Svc.GetAgencyRankingReport(cmd.Context())
			return printResult(cmd, result, err)
		},
	}

	cmd.AddCommand(recompute, top, report)
	return cmd
}

func reportCmds(rt func() *Runtime) []*cobra.Command {
	balances := &cobra.Command{
		Use:   "balances",
		Short: "Show the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := rt().Svc.GetTrialBalance(cmd.Context())
			return printResult(cmd, result, err)
		},
	}

	ar := &cobra.Command{
		Use:   "ar",
		Short: "Show the accounts receivable aging report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, _ := cmd.Flags().GetString("as-of")
			result, err := rt().Svc.GetAccountsReceivable(cmd.Context(), asOf)
			return printResult(cmd, result, err)
		},
	}
	ar.Flags().String("as-of", "", "Report date (YYYY-MM-DD, default today)")

	bs := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Show the balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, _ := cmd.Flags().GetString("as-of")
			result, err := rt().Svc.GetBalanceSheet(cmd.Context(), asOf)
			return printResult(cmd, result, err)
		},
	}
	bs.Flags().String("as-of", "", "Report date (YYYY-MM-DD, default today)")

	is := &cobra.Command{
		Use:   "income-statement",
		Short: "Show the income statement for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			result, err := rt().Svc.GetIncomeStatement(cmd.Context(), start, end)
			return printResult(cmd, result, err)
		},
	}
	is.Flags().String("start", "", "Period start (YYYY-MM-DD)")
	is.Flags().String("end", "", "Period end (YYYY-MM-DD)")
	_ = is.MarkFlagRequired("start")
	_ = is.MarkFlagRequired("end")

	return []*cobra.Command{balances, ar, bs, is}
}

func commissionCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commission",
		Short: "Commission calculation",
	}

	calc := &cobra.Command{
		Use:   "calculate",
		Short: "Resolve the commission for a booking without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := bookingFromFlags(cmd)
			result, err := rt().Svc.CalculateCommission(cmd.Context(), req)
			return printResult(cmd, result, err)
		},
	}
	bookingFlags(calc)

	cmd.AddCommand(calc)
	return cmd
}

func bookingCmd(rt func() *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Booking notifications from the booking subsystem",
	}

	status := &cobra.Command{
		Use:   "status BOOKING_REF STATUS",
		Short: "Record a booking status change and update its commission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := rt().Svc.BookingStatusChanged(cmd.Context(), args[0], args[1])
			return printResult(cmd, result, err)
		},
	}

	cmd.AddCommand(status)
	return cmd
}

func bookingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("agency", 0, "Agency id")
	cmd.Flags().String("amount", "", "Booking amount")
	cmd.Flags().String("category", "", "Product category")
	cmd.Flags().String("destination", "", "Destination")
	cmd.Flags().String("currency", "", "ISO currency code")
	cmd.Flags().String("ref", "", "Booking reference")
	_ = cmd.MarkFlagRequired("agency")
	_ = cmd.MarkFlagRequired("amount")
}

func bookingFromFlags(cmd *cobra.Command) app.BookingRequest {
	agency, _ := cmd.Flags().GetInt("agency")
	amount, _ := cmd.Flags().GetString("amount")
	category, _ := cmd.Flags().GetString("category")
	destination, _ := cmd.Flags().GetString("destination")
	currency, _ := cmd.Flags().GetString("currency")
	ref, _ := cmd.Flags().GetString("ref")
	return app.BookingRequest{
		BookingRef:      ref,
		AgencyID:        agency,
		Amount:          amount,
		ProductCategory: category,
		Destination:     destination,
		Currency:        currency,
	}
}
