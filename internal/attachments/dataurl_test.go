package attachments

import (
	"testing"
)

func TestParseDataURL(t *testing.T) {
	d, err := ParseDataURL("data:text/html;base64,PGI+aGk8L2I+")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.MediaType != "text/html" || !d.Base64 {
		t.Fatalf("unexpected parse %+v", d)
	}
	body, err := d.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body) != "<b>hi</b>" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestParseDataURL_PercentEncoded(t *testing.T) {
	d, err := ParseDataURL("data:text/plain,hello%20world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Base64 {
		t.Fatalf("expected plain encoding")
	}
	body, err := d.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body) != "hello world" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestParseDataURL_DefaultMediaType(t *testing.T) {
	d, err := ParseDataURL("data:,plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.MediaType != "text/plain;charset=US-ASCII" {
		t.Fatalf("expected RFC default media type, got %q", d.MediaType)
	}
}

func TestParseDataURL_Errors(t *testing.T) {
	if _, err := ParseDataURL("https://example.com/file.pdf"); err == nil {
		t.Fatalf("expected error for non data URL")
	}
	if _, err := ParseDataURL("data:text/plain;base64"); err == nil {
		t.Fatalf("expected error for missing comma")
	}
	d, err := ParseDataURL("data:text/plain;base64,@@not-base64@@")
	if err != nil {
		t.Fatalf("parse should succeed, decode should fail: %v", err)
	}
	if _, err := d.Decode(); err == nil {
		t.Fatalf("expected base64 decode error")
	}
}
