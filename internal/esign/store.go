package esign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// GetInvite looks an invite up by exact token match. No business rules
// are enforced here; the handler owns all validation.
func (s *Store) GetInvite(ctx context.Context, token string) (Invite, error) {
	var inv Invite
	err := s.DB.QueryRow(ctx, `
SELECT token, contract_id, role, email, name, title, status,
       expires_at, otp_hash, otp_expires_at, otp_verified_at, login_id,
       used_at, created_at
FROM signature_invites
WHERE token=$1
`, token).Scan(&inv.Token, &inv.ContractID, &inv.Role, &inv.Email, &inv.Name, &inv.Title, &inv.Status,
		&inv.ExpiresAt, &inv.OTPHash, &inv.OTPExpiresAt, &inv.OTPVerifiedAt, &inv.LoginID,
		&inv.UsedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invite{}, ErrInviteNotFound
		}
		return Invite{}, err
	}
	return inv, nil
}

func (s *Store) CreateInvite(ctx context.Context, inv Invite) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO signature_invites(token, contract_id, role, email, name, title, status,
  expires_at, otp_hash, otp_expires_at, login_id)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, inv.Token, inv.ContractID, string(inv.Role), inv.Email, inv.Name, inv.Title, string(inv.Status),
		inv.ExpiresAt, inv.OTPHash, inv.OTPExpiresAt, inv.LoginID)
	return err
}

func (s *Store) MarkOTPVerified(ctx context.Context, token string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `
UPDATE signature_invites SET otp_verified_at=$2 WHERE token=$1
`, token, at.UTC())
	return err
}

func (s *Store) GetContract(ctx context.Context, contractID string) (Contract, error) {
	var c Contract
	err := s.DB.QueryRow(ctx, `
SELECT contract_id, title, status, customer_name, customer_email,
       provider_name, provider_email,
       signed_by_customer, signed_at_customer,
       signed_by_provider, signed_at_provider,
       executed_date, internal_owner_user_id, created_at, updated_at
FROM contracts
WHERE contract_id=$1
`, contractID).Scan(&c.ContractID, &c.Title, &c.Status, &c.CustomerName, &c.CustomerEmail,
		&c.ProviderName, &c.ProviderEmail,
		&c.SignedByCustomer, &c.SignedAtCustomer,
		&c.SignedByProvider, &c.SignedAtProvider,
		&c.ExecutedDate, &c.InternalOwnerUserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrContractNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

// ApplySignature performs the one logical write of a Sign submission as a
// single transaction: the invite's pending->signed transition, the
// role-keyed contract patch, and the audit append. The conditional update
// on the invite row is the at-most-once guard; zero rows affected means a
// concurrent or earlier submission already consumed the invite.
func (s *Store) ApplySignature(ctx context.Context, rec SignatureRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	at := rec.At.UTC()
	ct, err := tx.Exec(ctx, `
UPDATE signature_invites
SET status='signed', used_at=$2, name=$3, title=$4
WHERE token=$1 AND status='pending'
`, rec.Token, at, rec.Name, rec.Title)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInviteUsed
	}

	var patch string
	switch rec.Role {
	case RoleCustomerSigner:
		patch = `UPDATE contracts SET signed_by_customer=$2, signed_at_customer=$3, updated_at=$3 WHERE contract_id=$1`
	case RoleProviderSigner:
		patch = `UPDATE contracts SET signed_by_provider=$2, signed_at_provider=$3, updated_at=$3 WHERE contract_id=$1`
	default:
		return fmt.Errorf("invite %s carries unknown role %q", rec.Token, rec.Role)
	}
	ct, err = tx.Exec(ctx, patch, rec.ContractID, rec.Name, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrContractNotFound
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO contract_signature_audit(contract_id, event, actor, ip, user_agent, details, at)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, rec.ContractID, rec.Role.SignedEvent(), rec.Name, rec.IP, rec.UserAgent, rec.Email, at); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkExecuted sets the execution fields iff the contract has not been
// executed before. Returns true only for the call that won the transition.
func (s *Store) MarkExecuted(ctx context.Context, contractID string, at time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
UPDATE contracts
SET status='active', executed_date=$2, updated_at=$2
WHERE contract_id=$1 AND executed_date IS NULL
`, contractID, at.UTC())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) AppendAudit(ctx context.Context, contractID string, ev AuditEvent) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO contract_signature_audit(contract_id, event, actor, ip, user_agent, details, at)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, contractID, ev.Event, ev.Actor, ev.IP, ev.UserAgent, ev.Details, ev.At.UTC())
	return err
}

func (s *Store) ListAudit(ctx context.Context, contractID string) ([]AuditEvent, error) {
	rows, err := s.DB.Query(ctx, `
SELECT event, actor, ip, user_agent, details, at
FROM contract_signature_audit
WHERE contract_id=$1
ORDER BY audit_id ASC
`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.Event, &ev.Actor, &ev.IP, &ev.UserAgent, &ev.Details, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
