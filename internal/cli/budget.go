package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmynk/planner/internal/budget"
	"github.com/mmynk/planner/internal/models"
)

// BudgetOutput is the JSON output of budget.
type BudgetOutput struct {
	Settings    models.BudgetSettings `json:"settings"`
	Report      budget.Report         `json:"report"`
	Upcoming    []models.Subscription `json:"upcoming"`
	MonthlySubs float64               `json:"monthlySubscriptions"`
}

// NewBudgetCommand creates the budget command.
func NewBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show this month's spending against the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			asOf := a.clock()
			settings := a.store.Budget()
			subs := a.store.Subscriptions().List()
			out := BudgetOutput{
				Settings:    settings,
				Report:      budget.Status(settings, a.store.Transactions().List(), a.currency, asOf),
				Upcoming:    budget.Upcoming(subs, asOf, a.cfg.Budget.UpcomingWithin),
				MonthlySubs: budget.MonthlyCost(subs, a.currency, settings.Currency),
			}
			if out.Upcoming == nil {
				out.Upcoming = []models.Subscription{}
			}

			return emit(cmd, rootOpts, out, func(w io.Writer) error {
				r := out.Report
				fmt.Fprintf(w, "%s: spent %s of %s (%.1f%%)\n", r.Month,
					a.currency.Format(r.Spent, r.Currency), a.currency.Format(r.Budget, r.Currency), r.Percent)
				switch {
				case r.Exceeded:
					fmt.Fprintln(w, "Budget exceeded")
				case r.Warning:
					fmt.Fprintf(w, "Warning: above %g%% of the budget\n", settings.WarningThreshold)
				}
				fmt.Fprintf(w, "Subscriptions per month: %s\n", a.currency.Format(out.MonthlySubs, settings.Currency))
				for _, s := range out.Upcoming {
					fmt.Fprintf(w, "  due %s  %s  %s\n", s.NextPayment.In(a.loc).Format("2006-01-02"), s.Name, a.currency.Format(s.Amount, s.Currency))
				}
				return nil
			})
		},
	}

	var monthly, threshold float64
	var currencyCode string
	var notifications bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the budget settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			flags := cmd.Flags()
			updated := a.store.UpdateBudget(cmd.Context(), func(b *models.BudgetSettings) {
				if flags.Changed("monthly") {
					b.MonthlyBudget = monthly
				}
				if flags.Changed("currency") {
					b.Currency = currencyCode
				}
				if flags.Changed("threshold") {
					b.WarningThreshold = threshold
				}
				if flags.Changed("notifications") {
					b.Notifications = notifications
				}
			})
			return emit(cmd, rootOpts, updated, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Budget: %s per month, warning at %g%%\n",
					a.currency.Format(updated.MonthlyBudget, updated.Currency), updated.WarningThreshold)
				return err
			})
		},
	}
	set.Flags().Float64Var(&monthly, "monthly", 0, "monthly budget")
	set.Flags().StringVar(&currencyCode, "currency", "", "budget currency")
	set.Flags().Float64Var(&threshold, "threshold", 0, "warning threshold in percent")
	set.Flags().BoolVar(&notifications, "notifications", true, "enable budget notifications")
	cmd.AddCommand(set)

	return cmd
}
