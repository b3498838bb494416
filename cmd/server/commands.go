package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tj/go-naturaldate"

	"worktime-backend/internal/report"
	"worktime-backend/internal/utils"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Compute attendance outside the scheduled sweep",
}

var attendanceDailyCmd = &cobra.Command{
	Use:   "daily <workspace-id>",
	Short: "Compute daily attendance for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceDaily,
}

var attendanceMonthlyCmd = &cobra.Command{
	Use:   "monthly <workspace-id>",
	Short: "Show monthly attendance for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceMonthly,
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Target maintenance",
}

var targetsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recompute every active or failed target status",
	RunE:  runTargetsSweep,
}

var timersCmd = &cobra.Command{
	Use:   "timers",
	Short: "Timer maintenance",
}

var timersRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Heal timers left behind by an interrupted stop",
	RunE:  runTimersRepair,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every scheduled sweep once",
	RunE:  runSweep,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue an access token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	attendanceDailyCmd.Flags().String("date", "today", `Day to compute, YYYY-MM-DD or natural ("yesterday", "last friday")`)
	attendanceMonthlyCmd.Flags().String("month", "this month", `Month to show, YYYY-MM or natural ("last month")`)
	attendanceMonthlyCmd.Flags().Bool("refresh", false, "Recompute each day from time entries first")
	attendanceMonthlyCmd.Flags().String("pdf", "", "Write the report as PDF to this path")
	tokenCmd.Flags().String("name", "", "Display name claim")
	tokenCmd.Flags().Int("minutes", 60, "Lifetime in minutes")

	attendanceCmd.AddCommand(attendanceDailyCmd, attendanceMonthlyCmd)
	targetsCmd.AddCommand(targetsSweepCmd)
	timersCmd.AddCommand(timersRepairCmd)
	rootCmd.AddCommand(attendanceCmd, targetsCmd, timersCmd, sweepCmd, tokenCmd)
}

func runAttendanceDaily(cmd *cobra.Command, args []string) error {
	workspaceID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid workspace id: %w", err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	value, _ := cmd.Flags().GetString("date")
	date, err := parseDay(value, a.clock.Now())
	if err != nil {
		return err
	}
	daily, err := a.attendance.ComputeDailyAttendance(cmd.Context(), workspaceID, date)
	if err != nil {
		return err
	}
	return printJSON(daily)
}

func runAttendanceMonthly(cmd *cobra.Command, args []string) error {
	workspaceID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid workspace id: %w", err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	value, _ := cmd.Flags().GetString("month")
	month, err := parseMonth(value, a.clock.Now())
	if err != nil {
		return err
	}
	refresh, _ := cmd.Flags().GetBool("refresh")
	monthly, err := a.attendance.ComputeMonthlyAttendance(cmd.Context(), workspaceID, month, refresh)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("pdf"); path != "" {
		out, err := report.MonthlyAttendancePDF(monthly)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing pdf: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}
	return printJSON(monthly)
}

func runTargetsSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.targets.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runTimersRepair(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.timers.RepairStale(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	return printJSON(a.runner().RunOnce(cmd.Context()))
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	name, _ := cmd.Flags().GetString("name")
	minutes, _ := cmd.Flags().GetInt("minutes")
	token, err := utils.GenerateAccessToken(userID, name, a.cfg.JwtSecret, minutes)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// parseDay accepts YYYY-MM-DD or a natural expression relative to now.
func parseDay(value string, now time.Time) (string, error) {
	if day, err := time.Parse("2006-01-02", value); err == nil {
		return day.Format("2006-01-02"), nil
	}
	parsed, err := naturaldate.Parse(value, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return parsed.UTC().Format("2006-01-02"), nil
}

func parseMonth(value string, now time.Time) (string, error) {
	if month, err := time.Parse("2006-01", value); err == nil {
		return month.Format("2006-01"), nil
	}
	if value == "this month" {
		return now.UTC().Format("2006-01"), nil
	}
	parsed, err := naturaldate.Parse(value, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", value, err)
	}
	return parsed.UTC().Format("2006-01"), nil
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
