package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"worktime-backend/internal/apperr"
	"worktime-backend/internal/models"
)

const productID = "-//worktime//time entries//EN"

// EntriesICS writes completed entries as VEVENTs, one per entry, with the
// entry id as UID. Running entries have no end yet and are skipped.
func EntriesICS(w io.Writer, entries []models.TimeEntry, projectNames map[uuid.UUID]string, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, entry := range entries {
		if entry.IsRunning || entry.EndTime == nil {
			continue
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, entry.ID.String())
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, entry.StartTime.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, entry.EndTime.UTC())
		event.Props.SetText(ical.PropSummary, summary(entry, projectNames[entry.ProjectID]))
		event.Props.SetText(ical.PropDescription, fmt.Sprintf("Tracked %s", formatSeconds(entry.Duration)))
		cal.Children = append(cal.Children, event.Component)
	}
	if len(cal.Children) == 0 {
		return apperr.NotFoundf("no completed time entries to export")
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func summary(entry models.TimeEntry, project string) string {
	parts := make([]string, 0, 2)
	if project != "" {
		parts = append(parts, project)
	}
	if description := strings.TrimSpace(entry.Description); description != "" {
		parts = append(parts, description)
	}
	if len(parts) == 0 {
		return "Time entry"
	}
	return strings.Join(parts, ": ")
}

func formatSeconds(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
