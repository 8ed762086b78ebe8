package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/planner/internal/models"
)

// NewHabitsCommand creates the habits command and its subcommands.
func NewHabitsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Show habit momentum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			o := a.habits.Overview()
			return emit(cmd, rootOpts, o, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTRENGTH\tSTREAK\tLAST 7\tMASTERY")
				for _, h := range o.Computed {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d/7\t%d\n", h.ID, h.Name, h.Strength, h.Streak, h.Last7Done, h.Mastery)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "\nOverall strength %d, %d mastered\n", o.OverallStrength, o.MasteredCount)
				return err
			})
		},
	}

	var frequency string
	var target int
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Start tracking a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			h := a.habits.Add(cmd.Context(), models.Habit{
				Name:          args[0],
				Frequency:     models.Frequency(frequency),
				TargetPerWeek: target,
			})
			return emit(cmd, rootOpts, h, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added habit %s (%s)\n", h.Name, h.ID)
				return err
			})
		},
	}
	add.Flags().StringVar(&frequency, "frequency", string(models.FrequencyDaily), "daily or weekly")
	add.Flags().IntVar(&target, "target", 7, "target check-ins per week (1-7)")
	cmd.AddCommand(add)

	var date string
	checkin := &cobra.Command{
		Use:   "checkin <id>",
		Short: "Toggle today's check-in (or --date)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			found := false
			if date != "" {
				found, err = a.habits.ToggleCheckinOn(cmd.Context(), args[0], date)
				if err != nil {
					return err
				}
			} else {
				found = a.habits.ToggleCheckin(cmd.Context(), args[0])
			}
			if !found {
				return fmt.Errorf("habit %s not found", args[0])
			}
			return nil
		},
	}
	checkin.Flags().StringVar(&date, "date", "", "calendar date (YYYY-MM-DD) instead of today")
	cmd.AddCommand(checkin)

	cmd.AddCommand(&cobra.Command{
		Use:   "mastery <id> <0-100>",
		Short: "Set the self-reported mastery of a habit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid mastery %q: %w", args[1], err)
			}
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.habits.SetMastery(cmd.Context(), args[0], value) {
				return fmt.Errorf("habit %s not found", args[0])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.habits.Remove(cmd.Context(), args[0]) {
				return fmt.Errorf("habit %s not found", args[0])
			}
			return nil
		},
	})

	return cmd
}
