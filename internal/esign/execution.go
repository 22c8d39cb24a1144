package esign

import (
	"context"
	"log/slog"
	"time"
)

// ExecutionPolicy decides when a contract counts as fully executed.
type ExecutionPolicy string

const (
	// PolicyBothSigners executes only once customer and provider have
	// both signed. Default.
	PolicyBothSigners ExecutionPolicy = "both_signers"
	// PolicyAnySigner executes on the first signature of either role.
	PolicyAnySigner ExecutionPolicy = "any_signer"
)

func (p ExecutionPolicy) Satisfied(c Contract) bool {
	switch p {
	case PolicyAnySigner:
		return c.SignedAtCustomer != nil || c.SignedAtProvider != nil
	default:
		return c.SignedAtCustomer != nil && c.SignedAtProvider != nil
	}
}

// Finalizer renders the immutable signed snapshot and notifies signers.
// Failures are best-effort by contract: the signature itself is the
// durable fact, document rendering is retryable later.
type Finalizer interface {
	FinalizeExecutedContract(ctx context.Context, contractID string) error
}

type ExecutionStore interface {
	GetContract(ctx context.Context, contractID string) (Contract, error)
	MarkExecuted(ctx context.Context, contractID string, at time.Time) (bool, error)
	AppendAudit(ctx context.Context, contractID string, ev AuditEvent) error
}

type ExecutionTrigger struct {
	Store           ExecutionStore
	Finalizer       Finalizer
	Policy          ExecutionPolicy
	FinalizeTimeout time.Duration
	Log             *slog.Logger
}

// AfterSignature re-evaluates the contract once a signature has been
// committed and, when the policy is satisfied for the first time,
// transitions it to active and invokes the finalizer. It returns the
// refreshed contract for the response body.
func (t *ExecutionTrigger) AfterSignature(ctx context.Context, contractID, actor string) (Contract, error) {
	c, err := t.Store.GetContract(ctx, contractID)
	if err != nil {
		return Contract{}, err
	}
	if !t.Policy.Satisfied(c) {
		return c, nil
	}

	if c.ExecutedDate != nil {
		// Previously executed. Under the any-signer policy a later
		// signature still refreshes the rendered copy; no second
		// fully_executed audit event is appended.
		if t.Policy == PolicyAnySigner {
			t.finalize(ctx, contractID)
		}
		return c, nil
	}

	now := time.Now().UTC()
	won, err := t.Store.MarkExecuted(ctx, contractID, now)
	if err != nil {
		return Contract{}, err
	}
	if !won {
		// A concurrent submission executed the contract between our
		// reload and the conditional update.
		return t.Store.GetContract(ctx, contractID)
	}

	if err := t.Store.AppendAudit(ctx, contractID, AuditEvent{
		At:      now,
		Actor:   actor,
		Event:   EventFullyExecuted,
		Details: "all required signatures captured",
	}); err != nil {
		return Contract{}, err
	}

	t.finalize(ctx, contractID)
	return t.Store.GetContract(ctx, contractID)
}

func (t *ExecutionTrigger) finalize(ctx context.Context, contractID string) {
	if t.Finalizer == nil {
		return
	}
	timeout := t.FinalizeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.Finalizer.FinalizeExecutedContract(fctx, contractID); err != nil {
		// Deliberately swallowed: the signer still gets a success
		// response even when snapshot generation or email fails.
		t.Log.Error("finalize executed contract failed",
			"contract_id", contractID, "error", err)
	}
}
