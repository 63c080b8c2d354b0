package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/models"
	"github.com/mmynk/brokewise/pkg/logging"
)

// rateFlags selects where exchange rates come from.
type rateFlags struct {
	file    string
	live    bool
	baseURL string
}

func (f *rateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "rates", "", "YAML file with fixed exchange rates")
	cmd.Flags().BoolVar(&f.live, "live", false, "fetch current rates from the rates API")
	cmd.Flags().StringVar(&f.baseURL, "rates-url", fx.DefaultBaseURL, "rates API base URL (with --live)")
	cmd.MarkFlagsMutuallyExclusive("rates", "live")
}

// gateway builds the rate gateway. With neither a rates file nor --live,
// every cross-currency lookup falls back to 1:1 and results are flagged.
func (f *rateFlags) gateway(base currency.Code) (*fx.Gateway, error) {
	switch {
	case f.live:
		provider := fx.NewHTTPProvider(fx.HTTPOptions{BaseURL: f.baseURL})
		return fx.NewGateway(fx.NewCachedProvider(provider, fx.NewMemoryCache(), time.Hour)), nil
	case f.file != "":
		provider, err := loadRatesFile(f.file)
		if err != nil {
			return nil, err
		}
		return fx.NewGateway(provider), nil
	default:
		return fx.NewGateway(&fx.StaticProvider{Pivot: base, Source: "none"}), nil
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "brokewise",
		Short:        "Settle shared expenses across currencies",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newSettleCmd(), newSplitCmd(), newValidateCmd())
	return root
}

func newSettleCmd() *cobra.Command {
	var (
		path  string
		base  string
		rates rateFlags
	)

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Print balances and the transfers that settle a ledger",
		Example: `  brokewise settle --file trip.yaml --base EUR --rates rates.yaml
  brokewise settle --file trip.yaml --live`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseCode, err := currency.Parse(base)
			if err != nil {
				return err
			}
			lf, err := loadLedgerFile(path)
			if err != nil {
				return err
			}
			gw, err := rates.gateway(baseCode)
			if err != nil {
				return err
			}
			return runSettle(cmd.Context(), cmd.OutOrStdout(), gw, lf, baseCode)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "ledger file (YAML or JSON)")
	cmd.Flags().StringVar(&base, "base", "USD", "currency to settle in")
	cmd.MarkFlagRequired("file")
	rates.register(cmd)
	return cmd
}

func runSettle(ctx context.Context, out io.Writer, gw *fx.Gateway, lf *ledgerFile, base currency.Code) error {
	ledger, err := admitAll(ctx, gw, lf)
	if err != nil {
		return err
	}

	summary, err := calculator.Aggregate(ctx, gw, ledger, base)
	if err != nil {
		return err
	}
	balances := calculator.RoundBalances(summary.Balances)
	transfers := calculator.Settle(balances, base)

	fmt.Fprintln(out, headingStyle.Render("Balances ("+string(base)+")"))
	fmt.Fprintln(out, balancesTable(balances))
	fmt.Fprintln(out)
	fmt.Fprintln(out, headingStyle.Render("Transfers"))
	if len(transfers) == 0 {
		fmt.Fprintln(out, "Everyone is settled up.")
	}
	for _, t := range transfers {
		fmt.Fprintf(out, "%s pays %s %s %s\n", t.From, t.To, t.Amount.StringFixedBank(2), t.Currency)
	}
	fmt.Fprintf(out, "\nRates: %s\n", rateSource(summary.Rates))
	for _, w := range summary.Warnings {
		fmt.Fprintln(out, warningStyle.Render("warning: "+w))
	}
	return nil
}

// admitAll validates every expense and builds the ledger. It stops at the
// first rejected expense.
func admitAll(ctx context.Context, gw *fx.Gateway, lf *ledgerFile) (models.Ledger, error) {
	var ledger models.Ledger
	var err error
	for _, name := range lf.Participants {
		if ledger, err = ledger.AddParticipant(name); err != nil {
			return models.Ledger{}, err
		}
	}

	v := calculator.NewValidator(gw)
	for i, e := range lf.Expenses {
		adm, err := v.Validate(ctx, e.draft())
		if err != nil {
			return models.Ledger{}, fmt.Errorf("expense %d (%s): %w", i+1, e.Description, err)
		}
		if ledger, err = ledger.AddExpense(adm.Expense); err != nil {
			return models.Ledger{}, fmt.Errorf("expense %d (%s): %w", i+1, e.Description, err)
		}
	}
	return ledger, nil
}

func newSplitCmd() *cobra.Command {
	var (
		total string
		names []string
		code  string
	)

	cmd := &cobra.Command{
		Use:     "split",
		Short:   "Divide a total evenly, to the cent",
		Example: `  brokewise split --total 100 --names Alice,Bob,Charlie`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := calculator.ParseAmount(total)
			if err != nil {
				return fmt.Errorf("invalid total: %w", err)
			}
			c, err := currency.Parse(code)
			if err != nil {
				return err
			}

			people := make([]string, 0, len(names))
			for _, n := range names {
				if n = strings.TrimSpace(n); n != "" {
					people = append(people, n)
				}
			}
			shares, err := calculator.Allocate(amount, len(people))
			if err != nil {
				return err
			}

			rows := make([][]string, len(people))
			for i, p := range people {
				rows[i] = []string{p, shares[i].StringFixedBank(2) + " " + string(c)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), sharesTable(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&total, "total", "", "amount to divide")
	cmd.Flags().StringSliceVar(&names, "names", nil, "comma-separated participant names")
	cmd.Flags().StringVar(&code, "currency", "USD", "currency of the total")
	cmd.MarkFlagRequired("total")
	return cmd
}

var errRejected = errors.New("ledger has rejected expenses")

func newValidateCmd() *cobra.Command {
	var (
		path  string
		rates rateFlags
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every expense in a ledger file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := loadLedgerFile(path)
			if err != nil {
				return err
			}
			gw, err := rates.gateway(currency.USD)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cmd.OutOrStdout(), gw, lf)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "ledger file (YAML or JSON)")
	cmd.MarkFlagRequired("file")
	rates.register(cmd)
	return cmd
}

// runValidate reports on every expense rather than stopping at the first
// problem.
func runValidate(ctx context.Context, out io.Writer, gw *fx.Gateway, lf *ledgerFile) error {
	var ledger models.Ledger
	var err error
	for _, name := range lf.Participants {
		if ledger, err = ledger.AddParticipant(name); err != nil {
			return err
		}
	}

	v := calculator.NewValidator(gw)
	rejected := 0
	for i, e := range lf.Expenses {
		adm, err := v.Validate(ctx, e.draft())
		if err == nil {
			ledger, err = ledger.AddExpense(adm.Expense)
		}

		label := fmt.Sprintf("%d. %s", i+1, e.Description)
		switch {
		case err != nil:
			rejected++
			fmt.Fprintf(out, "%s %s: %v [%s]\n", errorStyle.Render("FAIL"), label, err, calculator.KindOf(err))
		case adm.Degraded:
			fmt.Fprintf(out, "%s %s: balanced at 1:1, rates unavailable\n", warningStyle.Render("WARN"), label)
		default:
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("ok"), label)
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d", errRejected, rejected, len(lf.Expenses))
	}
	fmt.Fprintf(out, "%d expenses ok\n", len(lf.Expenses))
	return nil
}

func rateSource(info fx.Info) string {
	if info.Degraded || info.Timestamp == 0 {
		return info.Source
	}
	return fmt.Sprintf("%s as of %s", info.Source, time.Unix(info.Timestamp, 0).UTC().Format(time.RFC3339))
}
