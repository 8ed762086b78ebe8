package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ConversionResult is the JSON output of convert.
type ConversionResult struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Result    float64 `json:"result"`
	Formatted string  `json:"formatted"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])
			res := ConversionResult{Amount: amount, From: from, To: to}
			res.Result = a.currency.Convert(amount, from, to)
			res.Formatted = a.currency.Format(res.Result, to)

			return emit(cmd, rootOpts, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s = %s\n", a.currency.Format(amount, from), res.Formatted)
				return err
			})
		},
	}
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "format <amount> <currency>",
		Short: "Format an amount for display",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			text := a.currency.Format(amount, strings.ToUpper(args[1]))
			return emit(cmd, rootOpts, map[string]string{"text": text}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, text)
				return err
			})
		},
	}
}

// NewRatesCommand creates the rates command and its subcommands.
func NewRatesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the exchange rate table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.currency.Config()
			return emit(cmd, rootOpts, cfg, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "CURRENCY\tRATE (%s)\n", cfg.BaseCurrency)
				for _, code := range a.currency.Currencies() {
					fmt.Fprintf(tw, "%s\t%g\n", code, a.currency.Rate(code))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <currency> <rate>",
		Short: "Set the rate of a currency to the base currency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.currency.SetRate(cmd.Context(), args[0], rate)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "base <currency>",
		Short: "Switch the base currency, rebasing every rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.currency.SetBaseCurrency(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "apply <file|->",
		Short: "Apply suggested rates from a JSON object",
		Long: `Apply suggested rates from a JSON object mapping currency codes to
rates, optionally wrapped in {"rates": ...}. Invalid entries are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			var err error
			if args[0] == "-" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read rates: %w", err)
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			applied, err := a.currency.ApplyRates(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return emit(cmd, rootOpts, map[string]int{"applied": applied}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d rate(s) applied\n", applied)
				return err
			})
		},
	})

	return cmd
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return f, nil
}
