package voicelink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// FileReport records an abuse report against a voice message. New reports
// always start pending.
func (s *service) FileReport(ctx context.Context, voiceID, reporterID, reason, note string) (rpt Report, err error) {
	if err := s.checkConnected(); err != nil {
		return Report{}, err
	}
	if err := validateReport(voiceID, reporterID, reason, note); err != nil {
		return Report{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.FileReport",
		attribute.String("voice_id", voiceID))
	defer func() { end(err) }()

	rpt = Report{
		ID:         newReportID(),
		VoiceID:    voiceID,
		ReporterID: reporterID,
		Reason:     strings.TrimSpace(reason),
		Note:       strings.TrimSpace(note),
		Status:     ReportStatusPending,
		CreatedAt:  formatTimestamp(s.opts.now()),
	}

	if err = s.store.SetMerge(ctx, collectionReports, rpt.ID, rpt.fields()); err != nil {
		return Report{}, err
	}

	s.logger.Info("report filed",
		"report_id", rpt.ID,
		"voice_id", voiceID,
	)
	return rpt, nil
}

// PendingReports lists unreviewed reports, oldest first, for moderation
// queues. Served by the fallback engine.
func (s *service) PendingReports(ctx context.Context, limit int) (rpts []Report, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.PendingReports")
	defer func() { end(err) }()

	start := time.Now()

	rpts, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionReports,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldStatus, ReportStatusPending),
		},
		OrderBy: fieldCreatedAt,
		Order:   docstore.SortAsc,
		Limit:   s.clampLimit(limit),
	}, reportFromDocument)

	s.otel.recordQuery(ctx, collectionReports, time.Since(start), fellBack, err)
	return rpts, err
}

// ReportsForVoice lists every report filed against a voice message, newest
// first. Served by the fallback engine.
func (s *service) ReportsForVoice(ctx context.Context, voiceID string, limit int) (rpts []Report, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := validateID("voice", voiceID); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.ReportsForVoice",
		attribute.String("voice_id", voiceID))
	defer func() { end(err) }()

	start := time.Now()

	rpts, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionReports,
		Conditions: []docstore.Condition{
			docstore.Eq(fieldVoiceID, voiceID),
		},
		OrderBy: fieldCreatedAt,
		Order:   docstore.SortDesc,
		Limit:   s.clampLimit(limit),
	}, reportFromDocument)

	s.otel.recordQuery(ctx, collectionReports, time.Since(start), fellBack, err)
	return rpts, err
}

// UpdateReportStatus moves a report through the moderation workflow.
func (s *service) UpdateReportStatus(ctx context.Context, reportID, status string) (err error) {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("report", reportID); err != nil {
		return err
	}
	switch status {
	case ReportStatusPending, ReportStatusReviewed, ReportStatusDismissed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReport, status)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.UpdateReportStatus",
		attribute.String("report_id", reportID),
		attribute.String("status", status))
	defer func() { end(err) }()

	err = s.store.UpdateFields(ctx, collectionReports, reportID, map[string]any{
		fieldStatus: status,
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			return fmt.Errorf("%w: report %s", ErrNotFound, reportID)
		}
		return err
	}
	return nil
}

// DeleteReport removes a report. Deleting an unknown report is a no-op.
func (s *service) DeleteReport(ctx context.Context, reportID string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("report", reportID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.store.Delete(ctx, collectionReports, reportID)
}

func newReportID() string {
	return "rpt-" + uuid.NewString()
}
