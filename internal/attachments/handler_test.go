package attachments

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakeGetter struct {
	attachment   Attachment
	contractOK   bool
	attachmentOK bool
}

func (f *fakeGetter) GetAttachment(ctx context.Context, contractID, attachmentID string) (Attachment, error) {
	if !f.contractOK {
		return Attachment{}, ErrContractNotFound
	}
	if !f.attachmentOK {
		return Attachment{}, ErrAttachmentNotFound
	}
	return f.attachment, nil
}

const (
	ctrID = "ctr_11111111-1111-4111-8111-111111111111"
	attID = "att_22222222-2222-4222-8222-222222222222"
)

func resolve(h *Handler, contractID, attachmentID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/attachments/"+contractID+"/"+attachmentID, nil)
	req = withChiParams(req, "contract_id", contractID, "attachment_id", attachmentID)
	rr := httptest.NewRecorder()
	h.Resolve(rr, req)
	return rr
}

func newTestAttachmentHandler(store Getter) *Handler {
	return NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolve_InvalidIDs(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{contractOK: true, attachmentOK: true})
	for _, pair := range [][2]string{
		{"ctr_not-a-uuid", attID},
		{"bogus", attID},
		{ctrID, "att_nope"},
		{ctrID, "ctr_22222222-2222-4222-8222-222222222222"},
	} {
		rr := resolve(h, pair[0], pair[1])
		if rr.Code != 400 {
			t.Fatalf("ids %v: expected 400, got %d", pair, rr.Code)
		}
	}
}

func TestResolve_NotFound(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{contractOK: false})
	if rr := resolve(h, ctrID, attID); rr.Code != 404 {
		t.Fatalf("missing contract: expected 404, got %d", rr.Code)
	}

	h = newTestAttachmentHandler(&fakeGetter{contractOK: true, attachmentOK: false})
	if rr := resolve(h, ctrID, attID); rr.Code != 404 {
		t.Fatalf("missing attachment: expected 404, got %d", rr.Code)
	}
}

func TestResolve_InlineDataURL(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{
		contractOK:   true,
		attachmentOK: true,
		attachment: Attachment{
			AttachmentID: attID,
			ContractID:   ctrID,
			ContentType:  "text/html; charset=utf-8",
			FileURL:      "data:text/html;base64,PGI+aGk8L2I+",
		},
	})
	rr := resolve(h, ctrID, attID)
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "<b>hi</b>" {
		t.Fatalf("unexpected body %q", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}
}

func TestResolve_InlineFallsBackToDataURLMediaType(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{
		contractOK:   true,
		attachmentOK: true,
		attachment: Attachment{
			FileURL: "data:application/pdf;base64,JVBERg==",
		},
	})
	rr := resolve(h, ctrID, attID)
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected media type from data URL, got %q", ct)
	}
}

func TestResolve_CorruptInlinePayload(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{
		contractOK:   true,
		attachmentOK: true,
		attachment:   Attachment{FileURL: "data:text/plain;base64,@@broken@@"},
	})
	rr := resolve(h, ctrID, attID)
	if rr.Code != 500 {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestResolve_ExternalURLRedirects(t *testing.T) {
	h := newTestAttachmentHandler(&fakeGetter{
		contractOK:   true,
		attachmentOK: true,
		attachment:   Attachment{FileURL: "https://files.example.com/signed.pdf"},
	})
	rr := resolve(h, ctrID, attID)
	if rr.Code != 302 {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://files.example.com/signed.pdf" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func withChiParams(req *http.Request, kv ...string) *http.Request {
	rc := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rc.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
