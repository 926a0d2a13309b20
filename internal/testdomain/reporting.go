package testdomain

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoReports is returned when there is nothing to send
var ErrNoReports = errors.New("no reports to send")

type Report struct {
	ID   int
	Name string
}

// ReportBuilder produces the reports to send
type ReportBuilder interface {
	CreateReports() []Report
}

// ReportSender delivers a single report
type ReportSender interface {
	Send(report Report) error
}

// DefaultReportBuilder builds ten numbered reports
type DefaultReportBuilder struct{}

func (DefaultReportBuilder) CreateReports() []Report {
	reports := make([]Report, 10)
	for i := range reports {
		reports[i] = Report{ID: i, Name: fmt.Sprintf("Name_%d", i)}
	}
	return reports
}

// EmailReportSender logs each report it would mail
type EmailReportSender struct{}

func (EmailReportSender) Send(report Report) error {
	slog.Info("EmailReportSender: sending report", "id", report.ID, "name", report.Name)
	return nil
}

// AuditReportSender keeps every report it is given
type AuditReportSender struct {
	mu   sync.Mutex
	sent []Report
}

func (s *AuditReportSender) Send(report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, report)
	return nil
}

// Sent returns a copy of the reports received so far
func (s *AuditReportSender) Sent() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.sent...)
}

// Reporter sends every report its builder produces
type Reporter struct {
	Builder ReportBuilder `inject:""`
	Sender  ReportSender  `inject:""`
}

func (r *Reporter) SendReports() error {
	reports := r.Builder.CreateReports()
	if len(reports) == 0 {
		return ErrNoReports
	}
	for _, report := range reports {
		if err := r.Sender.Send(report); err != nil {
			return fmt.Errorf("send report %d: %w", report.ID, err)
		}
	}
	return nil
}
