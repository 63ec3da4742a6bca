package jobs

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

const timeLayout = time.RFC3339

// Reporter runs the scheduled notification tasks: daily booking reminders
// and monthly per-user activity reports.
type Reporter struct {
	userRepo        repository.UserRepository
	resRepo         repository.ReservationRepository
	lotRepo         repository.ParkingLotRepository
	notificationDir string
	reportDir       string
}

func NewReporter(
	userRepo repository.UserRepository,
	resRepo repository.ReservationRepository,
	lotRepo repository.ParkingLotRepository,
	notificationDir string,
	reportDir string,
) *Reporter {
	return &Reporter{
		userRepo:        userRepo,
		resRepo:         resRepo,
		lotRepo:         lotRepo,
		notificationDir: notificationDir,
		reportDir:       reportDir,
	}
}

// SendDailyReminders appends a reminder line for every user with no
// reservation in the last 24 hours. Skipped entirely when no lot has a free
// spot, since there is nothing to book.
func (r *Reporter) SendDailyReminders(ctx context.Context) error {
	available, err := r.lotRepo.FindAvailable(ctx)
	if err != nil {
		return fmt.Errorf("checking lot availability: %w", err)
	}
	if len(available) == 0 {
		return nil
	}

	users, err := r.userRepo.FindByRole(ctx, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	now := time.Now().UTC()
	since := now.Add(-24 * time.Hour)
	var reminders []string
	for _, user := range users {
		recent, err := r.resRepo.CountSince(ctx, user.ID, since)
		if err != nil {
			return fmt.Errorf("counting recent reservations for user %d: %w", user.ID, err)
		}
		if recent == 0 {
			reminders = append(reminders,
				fmt.Sprintf("%s :: %s :: please book a spot if needed", now.Format(timeLayout), user.Username))
		}
	}
	if len(reminders) == 0 {
		return nil
	}

	if err := os.MkdirAll(r.notificationDir, 0o755); err != nil {
		return fmt.Errorf("creating notification dir: %w", err)
	}
	path := filepath.Join(r.notificationDir, fmt.Sprintf("reminders_%s.txt", now.Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening reminder log: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(strings.Join(reminders, "\n") + "\n"); err != nil {
		return fmt.Errorf("writing reminders: %w", err)
	}
	log.Printf("wrote %d reminders to %s", len(reminders), path)
	return nil
}

var reportTemplate = template.Must(template.New("monthly_report").Parse(`<html>
  <body>
    <h2>Monthly Activity Report for {{.Username}}</h2>
    <p>Total Reservations: {{.Total}}</p>
    <p>Total Cost: {{printf "%.2f" .TotalCost}}</p>
    <p>Most Used Lot: {{.MostUsedLot}}</p>
    <table border="1" cellpadding="4">
      <thead><tr><th>ID</th><th>Lot</th><th>Parked At</th><th>Left At</th><th>Cost</th></tr></thead>
      <tbody>
      {{- range .Rows}}
        <tr><td>{{.ID}}</td><td>{{.Lot}}</td><td>{{.ParkedAt}}</td><td>{{.LeftAt}}</td><td>{{printf "%.2f" .Cost}}</td></tr>
      {{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

type reportRow struct {
	ID       int
	Lot      string
	ParkedAt string
	LeftAt   string
	Cost     float64
}

type reportData struct {
	Username    string
	Total       int
	TotalCost   float64
	MostUsedLot string
	Rows        []reportRow
}

// SendMonthlyReports writes an HTML activity report per user covering the
// last 30 days. Users without bookings in the window are skipped.
func (r *Reporter) SendMonthlyReports(ctx context.Context) error {
	users, err := r.userRepo.FindByRole(ctx, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	now := time.Now().UTC()
	since := now.Add(-30 * 24 * time.Hour)
	for _, user := range users {
		bookings, err := r.resRepo.FindByUserSince(ctx, user.ID, since)
		if err != nil {
			return fmt.Errorf("loading monthly summary for user %d: %w", user.ID, err)
		}
		if len(bookings) == 0 {
			continue
		}

		data := reportData{Username: user.Username, Total: len(bookings), MostUsedLot: "N/A"}
		lotCounts := make(map[string]int)
		for _, booking := range bookings {
			data.TotalCost += booking.Cost
			if booking.LotName != "" {
				lotCounts[booking.LotName]++
			}
			row := reportRow{
				ID:       booking.ID,
				Lot:      booking.LotName,
				ParkedAt: booking.ParkedAt.Format(timeLayout),
				Cost:     booking.Cost,
			}
			if booking.LeftAt.Valid {
				row.LeftAt = booking.LeftAt.Time.Format(timeLayout)
			}
			data.Rows = append(data.Rows, row)
		}
		best := 0
		for lot, count := range lotCounts {
			if count > best || (count == best && lot < data.MostUsedLot) {
				data.MostUsedLot = lot
				best = count
			}
		}

		if err := os.MkdirAll(r.reportDir, 0o755); err != nil {
			return fmt.Errorf("creating report dir: %w", err)
		}
		path := filepath.Join(r.reportDir,
			fmt.Sprintf("report_%s_%s.html", user.Username, now.Format("2006-01-02")))
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		if err := reportTemplate.Execute(file, data); err != nil {
			file.Close()
			return fmt.Errorf("rendering report for %s: %w", user.Username, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing report file: %w", err)
		}
		log.Printf("wrote monthly report for %s: %s", user.Username, path)
	}
	return nil
}
