package attachments

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DataURL is a parsed RFC 2397 data: URL. Only the two encodings the
// scheme defines are supported: base64 and percent-encoded text.
type DataURL struct {
	MediaType string
	Base64    bool
	Payload   string
}

// ParseDataURL splits a data: URL without decoding the payload.
func ParseDataURL(raw string) (DataURL, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return DataURL{}, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURL{}, fmt.Errorf("data URL missing comma separator")
	}

	d := DataURL{Payload: payload}
	if enc, found := strings.CutSuffix(meta, ";base64"); found {
		d.Base64 = true
		meta = enc
	}
	d.MediaType = meta
	if d.MediaType == "" {
		// RFC 2397 default.
		d.MediaType = "text/plain;charset=US-ASCII"
	}
	return d, nil
}

// Decode returns the payload bytes.
func (d DataURL) Decode() ([]byte, error) {
	if d.Base64 {
		b, err := base64.StdEncoding.DecodeString(d.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode percent-encoded payload: %w", err)
	}
	return []byte(s), nil
}
