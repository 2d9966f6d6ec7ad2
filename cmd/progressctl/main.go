// Command progressctl inspects, exports and resets stored learning progress
// using the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conatuslab/conatuslab/internal/app"
	"github.com/conatuslab/conatuslab/internal/platform/config"
	"github.com/conatuslab/conatuslab/internal/platform/logging"
	"github.com/conatuslab/conatuslab/internal/progress"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:           "progressctl",
		Short:         "Inspect and manage stored learning progress",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Profile ID (empty for the default record)")

	cmd.AddCommand(
		coursesCmd(),
		showCmd(&profile),
		exportCmd(&profile),
		resetCmd(&profile),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "progressctl version %s\n", version)
			},
		},
	)
	return cmd
}

// open loads configuration and wires storage. Logs go to stderr so command
// output stays clean.
func open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, cfg.Log)))
	return app.Open(ctx, cfg)
}

// withStore runs fn with the selected profile's store. Loading it is not
// learner activity, and a profile without a record is not written unless fn
// changes it.
func withStore(cmd *cobra.Command, profile string, fn func(*app.App, *progress.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Registry.Open(ctx, profile)
	if err != nil {
		return err
	}
	return fn(a, st)
}

func coursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the course catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLEVEL\tMODULES\tLESSONS\tTITLE")
			for _, c := range a.Catalog.Courses() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", c.ID, c.Level, c.ModuleCount(), c.LessonCount(), c.Title)
			}
			return tw.Flush()
		},
	}
}

func showCmd(profile *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a profile's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *profile, func(a *app.App, st *progress.Store) error {
				snap := st.Snapshot()
				if !st.Stored() {
					fmt.Fprintln(cmd.ErrOrStderr(), "no stored progress for this profile")
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				return printSummary(cmd.OutOrStdout(), a, st, snap)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw snapshot as JSON")
	return cmd
}

func printSummary(w io.Writer, a *app.App, st *progress.Store, snap progress.UserProgress) error {
	skills := "none"
	if len(snap.SkillsAcquired) > 0 {
		skills = strings.Join(snap.SkillsAcquired, ", ")
	}
	fmt.Fprintf(w, "Hours spent: %g\nStreak: %d days\nSkills: %s\n\n", snap.TotalHoursSpent, snap.StreakDays, skills)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tPROGRESS\tMODULES\tLESSONS")
	for _, c := range a.Catalog.Courses() {
		cp, _ := snap.Course(c.ID)
		fmt.Fprintf(tw, "%s\t%d%%\t%d/%d\t%d/%d\n",
			c.ID,
			st.OverallProgress(c.ID),
			len(cp.CompletedModules), c.ModuleCount(),
			cp.CompletedLessonCount(), c.LessonCount(),
		)
	}
	return tw.Flush()
}

func exportCmd(profile *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a profile's progress report as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *profile, func(a *app.App, st *progress.Store) error {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating report: %w", err)
				}
				if err := progress.WriteReport(f, a.Catalog, st.Snapshot()); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "progress.xlsx", "Output file")
	return cmd
}

func resetCmd(profile *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard a profile's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withStore(cmd, *profile, func(_ *app.App, st *progress.Store) error {
				if err := st.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
