package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/domain"
)

var (
	prefsCycle, prefsPeriod, prefsLuteal int

	cycleEnd, cycleNotes string

	logMood, logFlow, logNotes string
	logSymptoms                []string
	logLimit                   int

	insightsWindow, insightsLimit int

	remindersAsOf string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage declared cycle averages",
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Overwrite the user's preferences",
	Long: `Stores the declared average cycle length, period length and luteal phase.
Every field is overwritten; omitted fields are cleared, except the luteal
phase which defaults to 14 days.

Example:
  flowcare prefs set -u 628123456789 --cycle 28 --period 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.ledger.UpsertPreferences(ctx, userID,
				flagInt(cmd, "cycle", prefsCycle),
				flagInt(cmd, "period", prefsPeriod),
				flagInt(cmd, "luteal", prefsLuteal),
			)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), p, textLine("preferences saved for %s", p.UserID))
		})
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Record and inspect period starts",
}

var cycleAddCmd = &cobra.Command{
	Use:   "add START",
	Short: "Record a period start (YYYY-MM-DD)",
	Long: `Records a period start and back-fills the length of the cycle before it.

Example:
  flowcare cycle add -u 628123456789 2025-09-05 --end 2025-09-09`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		start, err := domain.ParseDate(args[0])
		if err != nil {
			return err
		}
		var end *civil.Date
		if cycleEnd != "" {
			d, err := domain.ParseDate(cycleEnd)
			if err != nil {
				return err
			}
			end = &d
		}
		var notes *string
		if cycleNotes != "" {
			notes = &cycleNotes
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.ledger.AddCycle(ctx, userID, start, end, notes)
			if err != nil {
				return err
			}
			if res.Backfill == domain.WriteFailed {
				logger.Warn("previous cycle length not updated")
			}
			pp, err := a.ledger.PrevAndPredicted(ctx, userID)
			if err != nil {
				return err
			}
			out := struct {
				Cycle    *domain.Cycle            `json:"cycle" yaml:"cycle"`
				Backfill string                   `json:"backfill" yaml:"backfill"`
				Summary  usecase.PrevAndPredicted `json:"summary" yaml:"summary"`
			}{res.Cycle, res.Backfill.String(), pp}
			return render(cmd.OutOrStdout(), out, textLine("%s", a.ledger.Summary(pp)))
		})
	},
}

var cycleEndCmd = &cobra.Command{
	Use:   "end START END",
	Short: "Set the end date of a recorded period",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		start, err := domain.ParseDate(args[0])
		if err != nil {
			return err
		}
		end, err := domain.ParseDate(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			c, err := a.ledger.UpdateCycleEnd(ctx, userID, start, end)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c, textLine("cycle %s: period of %d days", c.StartDate, domain.PeriodLength(start, end)))
		})
	},
}

var cycleLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest and previous starts and the predicted next start",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			pp, err := a.ledger.PrevAndPredicted(ctx, userID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), pp, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "latest\t%s\n", dateOrDash(pp.LatestStart))
				fmt.Fprintf(tw, "previous\t%s\n", dateOrDash(pp.PreviousStart))
				fmt.Fprintf(tw, "predicted next\t%s\n", dateOrDash(pp.PredictedNextStart))
				return tw.Flush()
			})
		})
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Daily mood, flow and symptom logs",
}

var logAddCmd = &cobra.Command{
	Use:   "add DATE",
	Short: "Log a day",
	Long: `Stores a daily log. Symptom tags are trimmed, lower-cased and de-duplicated.

Example:
  flowcare log add -u 628123456789 2025-09-02 -s fatigue,cramps --mood tired`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		day, err := domain.ParseDate(args[0])
		if err != nil {
			return err
		}
		entry := usecase.DailyEntry{
			Mood:     optional(logMood),
			Flow:     optional(logFlow),
			Symptoms: logSymptoms,
			Notes:    optional(logNotes),
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.ledger.LogDaily(ctx, userID, day, entry)
			if err != nil {
				return err
			}
			if res.Mirror == domain.WriteFailed {
				logger.Warn("users mirror not updated")
			}
			l := res.Log
			return render(cmd.OutOrStdout(), l, textLine("logged %s: %s", l.LogDate, strings.Join(l.Symptoms, ", ")))
		})
	},
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent daily logs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			logs, err := a.ledger.RecentDailyLogs(ctx, userID, logLimit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), logs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tFLOW\tMOOD\tSYMPTOMS")
				for _, l := range logs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.LogDate, deref(l.Flow), deref(l.Mood), strings.Join(l.Symptoms, ","))
				}
				return tw.Flush()
			})
		})
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the next period and the fertile window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			pred, err := a.predictor.PredictNextPeriod(ctx, userID)
			if err != nil {
				return err
			}
			ovu, err := a.predictor.PredictOvulation(ctx, userID)
			if err != nil {
				return err
			}
			out := struct {
				Prediction *domain.Prediction      `json:"prediction" yaml:"prediction"`
				Ovulation  *domain.OvulationWindow `json:"ovulation" yaml:"ovulation"`
			}{pred, ovu}
			return render(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if pred == nil {
					_, err := fmt.Fprintln(w, "no cycles recorded")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "predicted start\t%s\n", pred.PredictedStart)
				fmt.Fprintf(tw, "predicted end\t%s\n", dateOrDash(pred.PredictedEnd))
				fmt.Fprintf(tw, "average cycle\t%d days\n", pred.AvgCycleLengthDays)
				fmt.Fprintf(tw, "ovulation\t%s\n", ovu.OvulationDay)
				fmt.Fprintf(tw, "fertile window\t%s to %s\n", ovu.FertileStart, ovu.FertileEnd)
				return tw.Flush()
			})
		})
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Most frequent symptoms logged shortly before a period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			top, err := a.insights.TopPreperiodSymptoms(ctx, userID, insightsWindow, insightsLimit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), top, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SYMPTOM\tCOUNT")
				for _, s := range top {
					fmt.Fprintf(tw, "%s\t%d\n", s.Symptom, s.Count)
				}
				return tw.Flush()
			})
		})
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Schedule, list and acknowledge reminders",
}

var remindersScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Write reminders for the predicted period (D-3, D-1, D)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.scheduler.SchedulePeriodReminders(ctx, userID)
			if err != nil {
				return err
			}
			type entry struct {
				Reminder  *domain.Reminder `json:"reminder" yaml:"reminder"`
				Persisted bool             `json:"persisted" yaml:"persisted"`
				Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
			}
			out := struct {
				Status    string  `json:"status" yaml:"status"`
				Reminders []entry `json:"reminders" yaml:"reminders"`
			}{Status: res.Status.String()}
			for _, sr := range res.Reminders {
				e := entry{Reminder: sr.Reminder, Persisted: sr.Persisted}
				if sr.Err != nil {
					e.Error = sr.Err.Error()
				}
				out.Reminders = append(out.Reminders, e)
			}
			return render(cmd.OutOrStdout(), out, textLine("%s: %d of %d reminders stored", res.Status, res.PersistedCount(), len(res.Reminders)))
		})
	},
}

var remindersDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List unsent reminders that are due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseAsOf(remindersAsOf)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			due, err := a.scheduler.DueReminders(ctx, asOf)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), due, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSER\tREMIND AT\tMESSAGE")
				for _, r := range due {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.UserID, r.RemindAt.Format(time.RFC3339), r.Message())
				}
				return tw.Flush()
			})
		})
	},
}

var remindersMarkSentCmd = &cobra.Command{
	Use:   "mark-sent ID",
	Short: "Mark a reminder as delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.scheduler.MarkSent(ctx, args[0]); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), map[string]string{"id": args[0], "sent": "true"}, textLine("marked %s sent", args[0]))
		})
	},
}

func init() {
	prefsSetCmd.Flags().IntVar(&prefsCycle, "cycle", 0, "Average cycle length in days (15-90)")
	prefsSetCmd.Flags().IntVar(&prefsPeriod, "period", 0, "Average period length in days (1-10)")
	prefsSetCmd.Flags().IntVar(&prefsLuteal, "luteal", 0, "Luteal phase in days (8-20, default 14)")
	prefsCmd.AddCommand(prefsSetCmd)

	cycleAddCmd.Flags().StringVar(&cycleEnd, "end", "", "Period end date (YYYY-MM-DD)")
	cycleAddCmd.Flags().StringVar(&cycleNotes, "notes", "", "Free-form notes")
	cycleCmd.AddCommand(cycleAddCmd, cycleEndCmd, cycleLatestCmd)

	logAddCmd.Flags().StringVar(&logMood, "mood", "", "Mood")
	logAddCmd.Flags().StringVar(&logFlow, "flow", "", "Flow: none, light, medium or heavy")
	logAddCmd.Flags().StringSliceVarP(&logSymptoms, "symptoms", "s", nil, "Comma-separated symptom tags")
	logAddCmd.Flags().StringVar(&logNotes, "notes", "", "Free-form notes")
	logListCmd.Flags().IntVar(&logLimit, "limit", usecase.RecentDailyLogLimit, "Maximum number of logs")
	logCmd.AddCommand(logAddCmd, logListCmd)

	insightsCmd.Flags().IntVar(&insightsWindow, "window", usecase.DefaultSymptomWindowDays, "Days before each start to examine")
	insightsCmd.Flags().IntVar(&insightsLimit, "limit", usecase.DefaultSymptomLimit, "Maximum number of symptoms")

	remindersDueCmd.Flags().StringVar(&remindersAsOf, "as-of", "", "RFC3339 timestamp or YYYY-MM-DD (default now)")
	remindersDispatchCmd.Flags().StringVar(&remindersAsOf, "as-of", "", "RFC3339 timestamp or YYYY-MM-DD (default now)")
	remindersCmd.AddCommand(remindersScheduleCmd, remindersDueCmd, remindersMarkSentCmd, remindersDispatchCmd)
}

// flagInt returns nil for flags the user did not pass.
func flagInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func dateOrDash(d *civil.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return domain.ToCanonical(d), nil
}
