package attachments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrContractNotFound   = errors.New("contract not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Attachment is one stored contract file. FileURL is either a data: URL
// holding the bytes inline or an external https URL.
type Attachment struct {
	AttachmentID string
	ContractID   string
	FileName     string
	ContentType  string
	FileURL      string
	CreatedAt    time.Time
}

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// GetAttachment distinguishes a missing contract from a missing
// attachment so the handler can report which path segment was wrong.
func (s *Store) GetAttachment(ctx context.Context, contractID, attachmentID string) (Attachment, error) {
	var exists bool
	if err := s.DB.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM contracts WHERE contract_id=$1)
`, contractID).Scan(&exists); err != nil {
		return Attachment{}, err
	}
	if !exists {
		return Attachment{}, ErrContractNotFound
	}

	var a Attachment
	err := s.DB.QueryRow(ctx, `
SELECT attachment_id, contract_id, file_name, content_type, file_url, created_at
FROM contract_attachments
WHERE contract_id=$1 AND attachment_id=$2
`, contractID, attachmentID).Scan(&a.AttachmentID, &a.ContractID, &a.FileName, &a.ContentType, &a.FileURL, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attachment{}, ErrAttachmentNotFound
		}
		return Attachment{}, err
	}
	return a, nil
}

func (s *Store) AddAttachment(ctx context.Context, a Attachment) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO contract_attachments(attachment_id, contract_id, file_name, content_type, file_url)
VALUES($1,$2,$3,$4,$5)
`, a.AttachmentID, a.ContractID, a.FileName, a.ContentType, a.FileURL)
	return err
}
