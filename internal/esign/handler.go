package esign

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborcrm/esign/pkg/httpx"
)

// SigningStore is what the public signing handler needs from persistence.
type SigningStore interface {
	GetInvite(ctx context.Context, token string) (Invite, error)
	MarkOTPVerified(ctx context.Context, token string, at time.Time) error
	GetContract(ctx context.Context, contractID string) (Contract, error)
	ApplySignature(ctx context.Context, rec SignatureRecord) error
}

// Handler serves the anonymous signing surface: invite view, security-code
// verification, and signature submission. Every route is addressed by the
// invite token alone.
type Handler struct {
	Store   SigningStore
	Trigger *ExecutionTrigger
	Log     *slog.Logger
}

func NewHandler(store SigningStore, trigger *ExecutionTrigger, log *slog.Logger) *Handler {
	return &Handler{Store: store, Trigger: trigger, Log: log}
}

// loadLiveInvite fetches the invite and enforces the checks shared by all
// three operations: existence, terminal state, link expiry. When ok is
// false the response has already been written.
func (h *Handler) loadLiveInvite(w http.ResponseWriter, r *http.Request) (Invite, bool) {
	token := chi.URLParam(r, "token")
	inv, err := h.Store.GetInvite(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "invalid_or_expired", "signing link is invalid or expired")
			return Invite{}, false
		}
		h.Log.Error("load invite failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load signing link")
		return Invite{}, false
	}
	if inv.Status != InvitePending {
		httpx.WriteError(w, http.StatusGone, "already_used", "this signing link has already been used")
		return Invite{}, false
	}
	if inv.Expired(time.Now().UTC()) {
		httpx.WriteError(w, http.StatusGone, "expired", "this signing link has expired")
		return Invite{}, false
	}
	return inv, true
}

// GetInviteView handles GET /sign/{token}. Before the security code is
// verified the response discloses only the signer identity hints; the
// contract body appears once the gate is passed.
func (h *Handler) GetInviteView(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadLiveInvite(w, r)
	if !ok {
		return
	}

	if inv.OTPRequired() && !inv.OTPUnlocked() {
		httpx.WriteData(w, http.StatusOK, map[string]any{
			"requiresOtp": true,
			"role":        inv.Role,
			"signer":      SignerOf(inv),
		})
		return
	}

	c, err := h.Store.GetContract(r.Context(), inv.ContractID)
	if err != nil {
		if errors.Is(err, ErrContractNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "contract_not_found", "contract no longer exists")
			return
		}
		h.Log.Error("load contract failed", "contract_id", inv.ContractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load contract")
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]any{
		"requiresOtp": false,
		"contract":    PublicViewOf(c),
		"role":        inv.Role,
		"signer":      SignerOf(inv),
	})
}

type verifyOTPRequest struct {
	LoginID string `json:"loginId"`
	OTPCode string `json:"otpCode"`
}

// VerifyOTP handles POST /sign/{token}/otp.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadLiveInvite(w, r)
	if !ok {
		return
	}

	var req verifyOTPRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "body must be JSON with loginId and otpCode")
		return
	}
	req.LoginID = strings.TrimSpace(req.LoginID)
	req.OTPCode = strings.TrimSpace(req.OTPCode)
	if req.LoginID == "" || req.OTPCode == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "loginId and otpCode are required")
		return
	}

	now := time.Now().UTC()
	if err := CheckOTP(inv, req.LoginID, req.OTPCode, now); err != nil {
		switch {
		case errors.Is(err, ErrOTPNotConfigured):
			httpx.WriteError(w, http.StatusBadRequest, "otp_not_configured", "no security code is configured for this link")
		case errors.Is(err, ErrOTPExpired):
			httpx.WriteError(w, http.StatusGone, "otp_expired", "the security code has expired; request a new link")
		case errors.Is(err, ErrLoginInvalid):
			httpx.WriteError(w, http.StatusUnauthorized, "login_invalid", "login id or security code is incorrect")
		default:
			httpx.WriteError(w, http.StatusUnauthorized, "otp_invalid", "login id or security code is incorrect")
		}
		return
	}

	if err := h.Store.MarkOTPVerified(r.Context(), inv.Token, now); err != nil {
		h.Log.Error("mark otp verified failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not record verification")
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]any{"ok": true})
}

type signRequest struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
}

// Sign handles POST /sign/{token}. The entire write happens inside
// Store.ApplySignature; this method validates, collects request metadata,
// and lets the execution trigger decide whether the contract is done.
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadLiveInvite(w, r)
	if !ok {
		return
	}

	if inv.OTPRequired() && !inv.OTPUnlocked() {
		httpx.WriteError(w, http.StatusForbidden, "otp_not_verified", "verify the security code before signing")
		return
	}
	if !inv.Role.Valid() {
		h.Log.Error("invite carries unknown role", "token_suffix", tokenSuffix(inv.Token), "role", inv.Role)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not process signature")
		return
	}

	var req signRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "body must be JSON with name and email")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Title = strings.TrimSpace(req.Title)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "name and email are required")
		return
	}
	if req.Title == "" {
		req.Title = inv.Title
	}

	if _, err := h.Store.GetContract(r.Context(), inv.ContractID); err != nil {
		if errors.Is(err, ErrContractNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "contract_not_found", "contract no longer exists")
			return
		}
		h.Log.Error("load contract failed", "contract_id", inv.ContractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load contract")
		return
	}

	rec := SignatureRecord{
		Token:      inv.Token,
		ContractID: inv.ContractID,
		Role:       inv.Role,
		Name:       req.Name,
		Title:      req.Title,
		Email:      req.Email,
		IP:         clientIPFromRequest(r),
		UserAgent:  r.UserAgent(),
		At:         time.Now().UTC(),
	}
	if err := h.Store.ApplySignature(r.Context(), rec); err != nil {
		if errors.Is(err, ErrInviteUsed) {
			httpx.WriteError(w, http.StatusGone, "already_used", "this signing link has already been used")
			return
		}
		h.Log.Error("apply signature failed", "contract_id", inv.ContractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "update_failed", "could not record signature")
		return
	}

	c, err := h.Trigger.AfterSignature(r.Context(), inv.ContractID, req.Name)
	if err != nil {
		// The signature is committed; report it even if the execution
		// re-evaluation could not complete.
		h.Log.Error("execution check failed", "contract_id", inv.ContractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "update_failed", "signature recorded but contract state could not be refreshed")
		return
	}

	h.Log.Info("signature recorded",
		"contract_id", inv.ContractID, "role", inv.Role, "executed", c.ExecutedDate != nil)
	httpx.WriteData(w, http.StatusOK, map[string]any{
		"contract": PublicViewOf(c),
		"role":     inv.Role,
	})
}

// clientIPFromRequest prefers the left-most X-Forwarded-For hop, falling
// back to the socket peer.
func clientIPFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tokenSuffix keeps full invite tokens out of logs.
func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "…" + token[len(token)-6:]
}
