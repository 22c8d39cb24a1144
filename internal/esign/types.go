package esign

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrInviteNotFound   = errors.New("signature invite not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrInviteUsed       = errors.New("signature invite already used")
)

// Role determines which contract signature fields an invite may populate.
type Role string

const (
	RoleCustomerSigner Role = "customerSigner"
	RoleProviderSigner Role = "providerSigner"
)

func (r Role) Valid() bool {
	return r == RoleCustomerSigner || r == RoleProviderSigner
}

// SignedEvent is the audit event name recorded when this role signs.
func (r Role) SignedEvent() string { return "signed_" + string(r) }

const EventFullyExecuted = "fully_executed"
const EventInviteSent = "invite_sent"

type InviteStatus string

const (
	InvitePending InviteStatus = "pending"
	InviteSigned  InviteStatus = "signed"
)

// Invite is a single-use, tokenized grant allowing one named signer to
// view and sign one contract in one role. The token is the only external
// address of an invite.
type Invite struct {
	Token      string
	ContractID string
	Role       Role
	Email      string
	Name       string
	Title      string
	Status     InviteStatus
	ExpiresAt  *time.Time

	// OTP gate. A non-empty OTPHash means the gate applies; the contract
	// body is not disclosed until OTPVerifiedAt is set.
	OTPHash       string
	OTPExpiresAt  *time.Time
	OTPVerifiedAt *time.Time
	LoginID       string

	UsedAt    *time.Time
	CreatedAt time.Time
}

func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

func (i Invite) OTPRequired() bool { return i.OTPHash != "" }

func (i Invite) OTPUnlocked() bool { return i.OTPVerifiedAt != nil }

// Contract is the subset of the contract document this core reads and
// mutates. The audit trail and attachments live in their own tables and
// are never part of the client-safe projection.
type Contract struct {
	ContractID    string
	Title         string
	Status        string
	CustomerName  string
	CustomerEmail string
	ProviderName  string
	ProviderEmail string

	SignedByCustomer *string
	SignedAtCustomer *time.Time
	SignedByProvider *string
	SignedAtProvider *time.Time

	ExecutedDate *time.Time

	InternalOwnerUserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditEvent is one immutable entry of a contract's signature audit trail.
type AuditEvent struct {
	At        time.Time `json:"at"`
	Actor     string    `json:"actor"`
	Event     string    `json:"event"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// SignatureRecord carries everything one Sign submission writes: the
// invite transition, the role-keyed contract patch, and the audit entry.
type SignatureRecord struct {
	Token      string
	ContractID string
	Role       Role
	Name       string
	Title      string
	Email      string
	IP         string
	UserAgent  string
	At         time.Time
}

// HashCode returns the hex SHA-256 digest used for stored OTP codes.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
