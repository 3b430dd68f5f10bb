package voicelink

import "github.com/voicelink/voicelink/docstore"

// Report document field names.
const (
	fieldVoiceID    = "voice_id"
	fieldReporterID = "reporter_id"
	fieldReason     = "reason"
	fieldNote       = "note"
	fieldStatus     = "status"
	fieldCreatedAt  = "created_at"
)

// Report statuses.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusDismissed = "dismissed"
)

// Report is a moderation record filed against a voice message.
type Report struct {
	// ID is the report identifier (document key).
	ID string

	// VoiceID is the reported voice message.
	VoiceID string

	// ReporterID is the account that filed the report.
	ReporterID string

	// Reason is the required report category or explanation.
	Reason string

	// Note is optional free text. Stored trimmed; omitted when blank.
	Note string

	// Status is one of the ReportStatus constants. New reports are pending.
	Status string

	// CreatedAt is the creation time in timestampLayout.
	CreatedAt string
}

// reportFromDocument is the single place report documents are decoded.
func reportFromDocument(doc docstore.Document) Report {
	return Report{
		ID:         doc.Key,
		VoiceID:    doc.GetString(fieldVoiceID),
		ReporterID: doc.GetString(fieldReporterID),
		Reason:     doc.GetString(fieldReason),
		Note:       doc.GetString(fieldNote),
		Status:     doc.GetString(fieldStatus),
		CreatedAt:  doc.GetString(fieldCreatedAt),
	}
}

// fields is the single place report documents are encoded.
// A blank note is left out of the document entirely.
func (r Report) fields() map[string]any {
	fields := map[string]any{
		fieldVoiceID:    r.VoiceID,
		fieldReporterID: r.ReporterID,
		fieldReason:     r.Reason,
		fieldStatus:     r.Status,
		fieldCreatedAt:  r.CreatedAt,
	}
	if r.Note != "" {
		fields[fieldNote] = r.Note
	}
	return fields
}
