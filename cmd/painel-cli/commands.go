package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"painel/internal/backend"
	"painel/internal/cli"
	"painel/internal/config"
	"painel/internal/core"
	applog "painel/internal/log"
	"painel/internal/pipeline"
)

// options are read through viper: flags first, then PAINEL_* variables,
// then the optional config file.
type options struct {
	Backend      string  `mapstructure:"backend"`
	SeedFile     string  `mapstructure:"seed-file"`
	AnnualRate   float64 `mapstructure:"annual-rate"`
	RateAchieved float64 `mapstructure:"rate-achieved"`
	FillGaps     bool    `mapstructure:"fill-gaps"`
	JSON         bool    `mapstructure:"json"`
}

type app struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	var configFile string

	root := &cobra.Command{
		Use:   "painel-cli",
		Short: "Summarise a personal finance spreadsheet from the terminal",
		Long: `painel-cli reads the transaction sheet through the same backends as the
dashboard server and prints the monthly table, the health score and a
month drill-down.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd, configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (toml, yaml or json)")
	flags.String("backend", config.BackendMemory, "data backend: "+strings.Join(backend.GetBackendTypeStrings(), ", "))
	flags.String("seed-file", "./data/transacoes.csv", "CSV export read by the memory backend")
	flags.Float64("annual-rate", pipeline.DefaultAnnualRate, "nominal annual rate, percent")
	flags.Float64("rate-achieved", pipeline.DefaultRateAchieved, "percent of the annual rate actually earned")
	flags.Bool("fill-gaps", false, "include months without transactions in the table")
	flags.Bool("json", false, "print JSON instead of a table")

	root.AddCommand(a.reportCmd(), a.monthsCmd(), a.focusCmd(), a.transactionsCmd())
	return root
}

func (a *app) loadConfig(cmd *cobra.Command, configFile string) error {
	a.v.SetEnvPrefix("PAINEL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if configFile != "" {
		a.v.SetConfigFile(configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func (a *app) options() (options, error) {
	var o options
	if err := a.v.Unmarshal(&o); err != nil {
		return options{}, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if !backend.BackendType(o.Backend).IsValid() {
		return options{}, fmt.Errorf("unknown backend %q", o.Backend)
	}
	return o, nil
}

// run reads the rows and runs the pipeline with the CLI options applied.
func (a *app) run(ctx context.Context, tweak func(*pipeline.Params)) (pipeline.Dashboard, options, error) {
	o, err := a.options()
	if err != nil {
		return pipeline.Dashboard{}, o, err
	}

	cfg := config.Load()
	cfg.DataBackend = o.Backend
	cfg.SeedFile = o.SeedFile

	res, err := cli.OpenBackend(ctx, applog.Discard(), cfg, backend.BackendType(o.Backend))
	if err != nil {
		return pipeline.Dashboard{}, o, err
	}
	defer res.Close()

	rows, err := res.Source.ReadRows(ctx)
	if err != nil {
		return pipeline.Dashboard{}, o, fmt.Errorf("read transactions: %w", err)
	}

	params := pipeline.DefaultParams()
	settings := core.Settings{AnnualRate: o.AnnualRate, RateAchieved: o.RateAchieved}
	if err := settings.Validate(); err != nil {
		return pipeline.Dashboard{}, o, err
	}
	params = params.WithSettings(settings)
	params.FillGaps = o.FillGaps
	if tweak != nil {
		tweak(&params)
	}
	return pipeline.Run(rows, params), o, nil
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the health score and the latest month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, o, err := a.run(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(a.out, d)
			}
			return writeReport(a.out, d)
		},
	}
}

func (a *app) monthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "Print the monthly table with the simulated investment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, o, err := a.run(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(a.out, d.Months)
			}
			return writeMonths(a.out, d.Months)
		},
	}
}

func (a *app) focusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus [YYYY-MM]",
		Short: "Print one month's transactions and expenses by category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var month string
			if len(args) == 1 {
				m, err := core.ParseMonthKey(args[0])
				if err != nil {
					return err
				}
				month = m.String()
			}
			d, o, err := a.run(cmd.Context(), func(p *pipeline.Params) { p.FocusMonth = month })
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(a.out, d.Focus)
			}
			return writeFocus(a.out, d.Focus)
		},
	}
}

func (a *app) transactionsCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List expanded transactions, optionally within a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r core.DateRange
			if start != "" || end != "" {
				s, err := core.ParseDate(start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				e, err := core.ParseDate(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				r = core.DateRange{Start: s, End: e}
			}
			d, o, err := a.run(cmd.Context(), func(p *pipeline.Params) { p.Range = r })
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(a.out, d.Transactions)
			}
			return writeTransactions(a.out, d)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, DD/MM/YYYY")
	cmd.Flags().StringVar(&end, "end", "", "last day, DD/MM/YYYY")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, d pipeline.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Score\t%d/100\n", d.Health.Score)
	fmt.Fprintf(tw, "Savings ratio\t%s\n", core.FormatPercent(d.Health.SavingsRatio))
	fmt.Fprintf(tw, "Total income\t%s\n", core.FormatBRL(d.Health.TotalIncome))
	fmt.Fprintf(tw, "Total invested\t%s\n", core.FormatBRL(d.Health.TotalContribution))
	fmt.Fprintf(tw, "Monthly rate\t%s\n", core.FormatPercent(d.MonthlyRate*100))
	if d.Latest != nil {
		fmt.Fprintf(tw, "Latest month\t%s\n", d.Latest.Month)
		fmt.Fprintf(tw, "Cumulative balance\t%s\n", core.FormatBRL(d.Latest.CumulativeBalance))
		fmt.Fprintf(tw, "Simulated investment\t%s\n", core.FormatBRL(d.Latest.SimulatedInvestment))
	} else {
		fmt.Fprintln(tw, "No dated transactions")
	}
	if n := len(d.Undated); n > 0 {
		fmt.Fprintf(tw, "Undated rows\t%d\n", n)
	}
	if n := len(d.Warnings); n > 0 {
		fmt.Fprintf(tw, "Parse warnings\t%d\n", n)
	}
	return tw.Flush()
}

func writeMonths(w io.Writer, months []core.MonthlyBucket) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tIncome\tExpense\tInvested\tBalance\tCumulative\tSimulated\t")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			m.Month,
			core.FormatBRL(m.Income),
			core.FormatBRL(m.Expense),
			core.FormatBRL(m.Contribution),
			core.FormatBRL(m.Balance),
			core.FormatBRL(m.CumulativeBalance),
			core.FormatBRL(m.SimulatedInvestment))
	}
	return tw.Flush()
}

func writeFocus(w io.Writer, focus *core.MonthFocus) error {
	if focus == nil {
		_, err := fmt.Fprintln(w, "No dated transactions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Month\t%s\n", focus.Month)
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatBRL(focus.IncomeTotal))
	fmt.Fprintf(tw, "Expense\t%s\n", core.FormatBRL(focus.ExpenseTotal))
	fmt.Fprintln(tw)
	for _, c := range focus.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, core.FormatBRL(c.Amount), core.FormatPercent(c.Share))
	}
	return tw.Flush()
}

func writeTransactions(w io.Writer, d pipeline.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Range\t%s - %s\n", d.Range.Start, d.Range.End)
	for _, tx := range d.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Kind, tx.Category, tx.Description, core.FormatBRL(tx.Amount))
	}
	return tw.Flush()
}
