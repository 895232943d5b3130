package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
	"github.com/robfig/cron/v3"
)

const minutesPerDay = 24 * 60

// cronParser validates generated and custom expressions. Standard five fields;
// the CRON_TZ prefix is handled by the runner.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// BuildCronExpression converts an automation's schedule into a five-field cron
// expression. The automation starts leadTime minutes before the declared send
// time; when the subtraction crosses midnight the expression lands on the
// previous local day.
func BuildCronExpression(a *models.Automation) (string, error) {
	if a.Schedule.Frequency == models.FrequencyCustom {
		expr := strings.TrimSpace(a.Schedule.CronExpression)
		if expr == "" {
			return "", NewValidationError("cronExpression is required for custom frequency")
		}
		if _, err := cronParser.Parse(expr); err != nil {
			return "", NewValidationError("invalid cronExpression %q: %v", expr, err)
		}
		return expr, nil
	}

	sendHour, sendMinute, err := parseExecutionTime(a.Schedule.ExecutionTime)
	if err != nil {
		return "", err
	}

	startMinutes := sendHour*60 + sendMinute - a.LeadTimeMinutes()
	if startMinutes < 0 {
		startMinutes += minutesPerDay
	}
	startHour := startMinutes / 60
	startMinute := startMinutes % 60

	switch a.Schedule.Frequency {
	case models.FrequencyOnce:
		day, month, err := parseStartDate(a.Schedule.StartDate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d %d %d *", startMinute, startHour, day, month), nil
	case models.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", startMinute, startHour), nil
	case models.FrequencyWeekly:
		dow := 1 // Monday unless overridden
		if a.Schedule.DayOfWeek != nil {
			dow = *a.Schedule.DayOfWeek
		}
		return fmt.Sprintf("%d %d * * %d", startMinute, startHour, dow), nil
	case models.FrequencyMonthly:
		dom := 1
		if a.Schedule.DayOfMonth != nil {
			dom = *a.Schedule.DayOfMonth
		}
		return fmt.Sprintf("%d %d %d * *", startMinute, startHour, dom), nil
	default:
		return "", NewValidationError("unsupported frequency: %s", a.Schedule.Frequency)
	}
}

// BuildCronSpec prefixes the expression with the automation's timezone so the
// cron runner evaluates it in local time.
func BuildCronSpec(a *models.Automation) (string, error) {
	expr, err := BuildCronExpression(a)
	if err != nil {
		return "", err
	}

	tz := a.Timezone()
	if _, err := time.LoadLocation(tz); err != nil {
		return "", NewValidationError("invalid timezone %q: %v", tz, err)
	}
	return "CRON_TZ=" + tz + " " + expr, nil
}

// parseExecutionTime parses a local HH:MM send time.
func parseExecutionTime(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, NewValidationError("executionTime must be HH:MM, got %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, NewValidationError("executionTime has invalid hour: %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, NewValidationError("executionTime has invalid minute: %q", value)
	}
	return hour, minute, nil
}

// parseStartDate extracts day and month from a YYYY-MM-DD start date.
func parseStartDate(value string) (day, month int, err error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, NewValidationError("startDate must be YYYY-MM-DD for once frequency, got %q", value)
	}
	return t.Day(), int(t.Month()), nil
}
