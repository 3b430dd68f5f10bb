package voicelink

import (
	"context"
	"errors"
	"testing"
)

func TestFileReport(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending report", func(t *testing.T) {
		svc, _ := setupTestService(t)
		defer svc.Close(ctx)

		rpt, err := svc.FileReport(ctx, "dm-100-aaaa", "alice", "spam", "  keeps sending ads  ")
		if err != nil {
			t.Fatalf("file report: %v", err)
		}
		if rpt.ID == "" {
			t.Fatal("expected generated report ID")
		}
		if rpt.VoiceID != "dm-100-aaaa" {
			t.Errorf("voice id = %q, want %q", rpt.VoiceID, "dm-100-aaaa")
		}
		if rpt.Status != ReportStatusPending {
			t.Errorf("status = %q, want %q", rpt.Status, ReportStatusPending)
		}
		if rpt.Note != "keeps sending ads" {
			t.Errorf("note = %q, want trimmed", rpt.Note)
		}
		if rpt.CreatedAt == "" {
			t.Error("expected created timestamp")
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, _ := setupTestService(t)
		defer svc.Close(ctx)

		cases := []struct{ voice, reporter, reason string }{
			{"", "alice", "spam"},
			{"dm-100-aaaa", "", "spam"},
			{"dm-100-aaaa", "alice", ""},
			{"dm-100-aaaa", "alice", "   "},
		}
		for _, c := range cases {
			if _, err := svc.FileReport(ctx, c.voice, c.reporter, c.reason, ""); !errors.Is(err, ErrInvalidReport) && !errors.Is(err, ErrInvalidAccount) {
				t.Errorf("FileReport(%q,%q,%q) = %v, want validation error", c.voice, c.reporter, c.reason, err)
			}
		}
	})
}

func TestPendingReports(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	defer svc.Close(ctx)

	r1, _ := svc.FileReport(ctx, "dm-100-aaaa", "alice", "spam", "")
	r2, _ := svc.FileReport(ctx, "dm-101-bbbb", "alice", "abuse", "")
	r3, _ := svc.FileReport(ctx, "dm-100-aaaa", "dave", "spam", "")
	if err := svc.UpdateReportStatus(ctx, r2.ID, ReportStatusDismissed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := svc.PendingReports(ctx, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pending, want 2", len(got))
	}
	// Oldest first, for moderation queues.
	if got[0].ID != r1.ID || got[1].ID != r3.ID {
		t.Errorf("got order %q, %q; want %q, %q", got[0].ID, got[1].ID, r1.ID, r3.ID)
	}
}

func TestReportsForVoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	defer svc.Close(ctx)

	r1, _ := svc.FileReport(ctx, "dm-100-aaaa", "alice", "spam", "")
	if _, err := svc.FileReport(ctx, "dm-101-bbbb", "alice", "spam", ""); err != nil {
		t.Fatalf("file report: %v", err)
	}
	r3, _ := svc.FileReport(ctx, "dm-100-aaaa", "dave", "abuse", "")

	got, err := svc.ReportsForVoice(ctx, "dm-100-aaaa", 0)
	if err != nil {
		t.Fatalf("reports for voice: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d reports, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != r3.ID || got[1].ID != r1.ID {
		t.Errorf("got order %q, %q; want %q, %q", got[0].ID, got[1].ID, r3.ID, r1.ID)
	}
}

func TestUpdateReportStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	defer svc.Close(ctx)

	rpt, err := svc.FileReport(ctx, "dm-100-aaaa", "alice", "spam", "")
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	if err := svc.UpdateReportStatus(ctx, rpt.ID, ReportStatusReviewed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := svc.ReportsForVoice(ctx, "dm-100-aaaa", 0)
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(got) != 1 || got[0].Status != ReportStatusReviewed {
		t.Errorf("got %+v, want reviewed", got)
	}

	if err := svc.UpdateReportStatus(ctx, rpt.ID, "bogus"); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport, got %v", err)
	}
	if err := svc.UpdateReportStatus(ctx, "ghost", ReportStatusReviewed); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	defer svc.Close(ctx)

	rpt, err := svc.FileReport(ctx, "dm-100-aaaa", "alice", "spam", "")
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if err := svc.DeleteReport(ctx, rpt.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := svc.PendingReports(ctx, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("report still listed after delete: %+v", got)
	}

	// Deleting an unknown report is a no-op.
	if err := svc.DeleteReport(ctx, "ghost"); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}
