package invites

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborcrm/esign/internal/esign"
	"github.com/harborcrm/esign/pkg/httpx"
)

type Store interface {
	GetContract(ctx context.Context, contractID string) (esign.Contract, error)
	CreateInvite(ctx context.Context, inv esign.Invite) error
	AppendAudit(ctx context.Context, contractID string, ev esign.AuditEvent) error
	ListAudit(ctx context.Context, contractID string) ([]esign.AuditEvent, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Handler is the operator-facing surface: issuing signature invites and
// reading a contract's audit trail. Everything here sits behind the
// admin bearer token.
type Handler struct {
	Store         Store
	Mailer        Mailer
	PublicBaseURL string
	InviteTTL     time.Duration
	OTPTTL        time.Duration
	DevExposeOTP  bool
	Log           *slog.Logger
}

type createInviteRequest struct {
	Role    string `json:"role"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	LoginID string `json:"loginId"`
}

// CreateInvite handles POST /contracts/{contract_id}/invites.
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")

	var req createInviteRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "body must be JSON")
		return
	}
	role := esign.Role(strings.TrimSpace(req.Role))
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.LoginID = strings.TrimSpace(req.LoginID)
	if !role.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "role must be customerSigner or providerSigner")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "a valid signer email is required")
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "signer name is required")
		return
	}
	if req.LoginID == "" {
		req.LoginID = strings.ToLower(req.Email)
	}

	c, err := h.Store.GetContract(r.Context(), contractID)
	if err != nil {
		if errors.Is(err, esign.ErrContractNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "contract_not_found", "contract not found")
			return
		}
		h.Log.Error("load contract failed", "contract_id", contractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load contract")
		return
	}

	now := time.Now().UTC()
	expiresAt := now.Add(h.InviteTTL)
	otpExpiresAt := now.Add(h.OTPTTL)
	token, err := newInviteToken()
	if err != nil {
		h.Log.Error("generate invite token failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not issue invite")
		return
	}
	otp, err := randomSecurityCode()
	if err != nil {
		h.Log.Error("generate security code failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not issue invite")
		return
	}

	inv := esign.Invite{
		Token:        token,
		ContractID:   contractID,
		Role:         role,
		Email:        req.Email,
		Name:         req.Name,
		Title:        strings.TrimSpace(req.Title),
		Status:       esign.InvitePending,
		ExpiresAt:    &expiresAt,
		OTPHash:      esign.HashCode(otp),
		OTPExpiresAt: &otpExpiresAt,
		LoginID:      req.LoginID,
	}
	if err := h.Store.CreateInvite(r.Context(), inv); err != nil {
		h.Log.Error("create invite failed", "contract_id", contractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not issue invite")
		return
	}

	if err := h.Store.AppendAudit(r.Context(), contractID, esign.AuditEvent{
		At:      now,
		Actor:   "admin",
		Event:   esign.EventInviteSent,
		IP:      clientIP(r),
		Details: fmt.Sprintf("%s invite to %s", role, maskEmail(req.Email)),
	}); err != nil {
		h.Log.Error("append invite_sent audit failed", "contract_id", contractID, "error", err)
	}

	h.sendInviteMail(r.Context(), c, inv, otp)

	resp := map[string]any{
		"token":     token,
		"signUrl":   h.signURL(token),
		"role":      role,
		"expiresAt": expiresAt,
	}
	if h.DevExposeOTP {
		resp["otpCode"] = otp
	}
	httpx.WriteData(w, http.StatusCreated, resp)
}

// GetAudit handles GET /contracts/{contract_id}/audit.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")
	if _, err := h.Store.GetContract(r.Context(), contractID); err != nil {
		if errors.Is(err, esign.ErrContractNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "contract_not_found", "contract not found")
			return
		}
		h.Log.Error("load contract failed", "contract_id", contractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load contract")
		return
	}
	events, err := h.Store.ListAudit(r.Context(), contractID)
	if err != nil {
		h.Log.Error("list audit failed", "contract_id", contractID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load audit trail")
		return
	}
	if events == nil {
		events = []esign.AuditEvent{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"contractId": contractID, "events": events})
}

func (h *Handler) signURL(token string) string {
	return fmt.Sprintf("%s/esign/v1/sign/%s", strings.TrimRight(h.PublicBaseURL, "/"), token)
}

func (h *Handler) sendInviteMail(ctx context.Context, c esign.Contract, inv esign.Invite, otp string) {
	link := h.signURL(inv.Token)
	subject := fmt.Sprintf("Signature requested: %s", c.Title)
	text := fmt.Sprintf("Hello %s,\n\nYou have been asked to sign %q.\n\nOpen your signing link: %s\n", inv.Name, c.Title, link)
	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>You have been asked to sign <strong>%s</strong>.</p><p><a href=%q>Open your signing link</a></p>", inv.Name, c.Title, link)
	if err := h.Mailer.Send(ctx, inv.Email, subject, htmlBody, text); err != nil {
		h.Log.Error("invite email failed", "to", maskEmail(inv.Email), "error", err)
	}

	// The security code travels in its own message so the link alone
	// never unlocks the contract body.
	codeText := fmt.Sprintf("Your signing security code is %s. It expires in %d minutes.\nYour login id is %s.\n", otp, int(h.OTPTTL.Minutes()), inv.LoginID)
	codeHTML := fmt.Sprintf("<p>Your signing security code is <strong>%s</strong>. It expires in %d minutes.</p><p>Your login id is <code>%s</code>.</p>", otp, int(h.OTPTTL.Minutes()), inv.LoginID)
	if err := h.Mailer.Send(ctx, inv.Email, "Your signing security code", codeHTML, codeText); err != nil {
		h.Log.Error("security code email failed", "to", maskEmail(inv.Email), "error", err)
	}
}

// RequireAdmin is the bearer-token guard for operator routes.
func RequireAdmin(token string, log *slog.Logger) func(http.Handler) http.Handler {
	hashed := sha256.Sum256([]byte(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				log.Warn("admin route hit but no admin token configured")
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "admin access is not configured")
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			gotHash := sha256.Sum256([]byte(strings.TrimSpace(got)))
			if subtle.ConstantTimeCompare(hashed[:], gotHash[:]) != 1 {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// newInviteToken returns 16 random bytes hex encoded.
func newInviteToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// randomSecurityCode returns a 6 digit code with no modulo bias.
func randomSecurityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
