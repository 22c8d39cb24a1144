package finalize

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborcrm/esign/internal/attachments"
	"github.com/harborcrm/esign/internal/esign"
	"github.com/harborcrm/esign/internal/mail"
)

type ContractStore interface {
	GetContract(ctx context.Context, contractID string) (esign.Contract, error)
	ListAudit(ctx context.Context, contractID string) ([]esign.AuditEvent, error)
}

type AttachmentStore interface {
	AddAttachment(ctx context.Context, a attachments.Attachment) error
}

// Finalizer produces the executed-contract deliverables: an immutable
// HTML snapshot stored as an inline attachment, and a notification email
// to every signer with a link to it.
type Finalizer struct {
	Contracts     ContractStore
	Attachments   AttachmentStore
	Mailer        mail.Mailer
	PublicBaseURL string
	Log           *slog.Logger
}

func (f *Finalizer) FinalizeExecutedContract(ctx context.Context, contractID string) error {
	c, err := f.Contracts.GetContract(ctx, contractID)
	if err != nil {
		return fmt.Errorf("load contract: %w", err)
	}
	audit, err := f.Contracts.ListAudit(ctx, contractID)
	if err != nil {
		return fmt.Errorf("load audit trail: %w", err)
	}

	text := BuildSignedCopyText(c, audit)
	htmlBody := TextToSafeHTML(text)

	attachmentID := "att_" + uuid.NewString()
	a := attachments.Attachment{
		AttachmentID: attachmentID,
		ContractID:   contractID,
		FileName:     "signed-contract.html",
		ContentType:  "text/html; charset=utf-8",
		FileURL:      "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlBody)),
	}
	if err := f.Attachments.AddAttachment(ctx, a); err != nil {
		return fmt.Errorf("store signed copy: %w", err)
	}

	link := fmt.Sprintf("%s/esign/v1/attachments/%s/%s", f.PublicBaseURL, contractID, attachmentID)
	subject := fmt.Sprintf("Fully executed: %s", c.Title)
	mailText := fmt.Sprintf("The contract %q is now fully executed.\n\nDownload your signed copy: %s\n", c.Title, link)
	mailHTML := fmt.Sprintf("<p>The contract <strong>%s</strong> is now fully executed.</p><p><a href=%q>Download your signed copy</a></p>", c.Title, link)

	// Email failures do not undo the snapshot; the copy stays reachable
	// through the attachment endpoint.
	for _, to := range recipients(c) {
		if err := f.Mailer.Send(ctx, to, subject, mailHTML, mailText); err != nil {
			f.Log.Error("signed copy email failed", "contract_id", contractID, "to", to, "error", err)
		}
	}

	f.Log.Info("contract finalized", "contract_id", contractID, "attachment_id", attachmentID)
	return nil
}
