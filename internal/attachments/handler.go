package attachments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborcrm/esign/pkg/httpx"
)

type Getter interface {
	GetAttachment(ctx context.Context, contractID, attachmentID string) (Attachment, error)
}

// Handler resolves stored attachments: inline data: URLs are decoded and
// served as bytes, anything else is a redirect to the external location.
type Handler struct {
	Store Getter
	Log   *slog.Logger
}

func NewHandler(store Getter, log *slog.Logger) *Handler {
	return &Handler{Store: store, Log: log}
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contract_id")
	attachmentID := chi.URLParam(r, "attachment_id")
	if !validID(contractID, "ctr_") || !validID(attachmentID, "att_") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", "malformed contract or attachment id")
		return
	}

	a, err := h.Store.GetAttachment(r.Context(), contractID, attachmentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrContractNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "contract not found")
		case errors.Is(err, ErrAttachmentNotFound):
			httpx.WriteError(w, http.StatusNotFound, "attachment_not_found", "attachment not found")
		default:
			h.Log.Error("load attachment failed", "contract_id", contractID, "attachment_id", attachmentID, "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load attachment")
		}
		return
	}

	if !strings.HasPrefix(a.FileURL, "data:") {
		http.Redirect(w, r, a.FileURL, http.StatusFound)
		return
	}

	d, err := ParseDataURL(a.FileURL)
	if err == nil {
		var body []byte
		body, err = d.Decode()
		if err == nil {
			ct := a.ContentType
			if ct == "" {
				ct = d.MediaType
			}
			w.Header().Set("Content-Type", ct)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}
	h.Log.Error("decode stored attachment failed", "attachment_id", attachmentID, "error", err)
	httpx.WriteError(w, http.StatusInternalServerError, "attachment_decode_failed", "stored attachment could not be decoded")
}

// validID accepts ids of the form <prefix><uuid>.
func validID(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
