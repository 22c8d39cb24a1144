package finalize

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/harborcrm/esign/internal/esign"
)

// BuildSignedCopyText produces the plain-text body of the executed
// contract snapshot: the parties, each captured signature, and the audit
// trail in append order. Output is normalized so the same inputs always
// render the same bytes.
func BuildSignedCopyText(c esign.Contract, audit []esign.AuditEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(c.Title))
	fmt.Fprintf(&b, "Contract %s\n\n", c.ContractID)

	fmt.Fprintf(&b, "Customer: %s <%s>\n", c.CustomerName, c.CustomerEmail)
	fmt.Fprintf(&b, "Provider: %s <%s>\n\n", c.ProviderName, c.ProviderEmail)

	b.WriteString("Signatures\n")
	writeSignature(&b, "Customer", c.SignedByCustomer, c.SignedAtCustomer)
	writeSignature(&b, "Provider", c.SignedByProvider, c.SignedAtProvider)
	if c.ExecutedDate != nil {
		fmt.Fprintf(&b, "Fully executed on %s\n", c.ExecutedDate.UTC().Format(time.RFC3339))
	}

	if len(audit) > 0 {
		b.WriteString("\nAudit trail\n")
		for _, ev := range audit {
			fmt.Fprintf(&b, "- %s %s by %s", ev.At.UTC().Format(time.RFC3339), ev.Event, ev.Actor)
			if ev.IP != "" {
				fmt.Fprintf(&b, " from %s", ev.IP)
			}
			b.WriteString("\n")
		}
	}
	return NormalizeText(b.String())
}

func writeSignature(b *strings.Builder, label string, by *string, at *time.Time) {
	if by == nil || at == nil {
		fmt.Fprintf(b, "- %s: not signed\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s at %s\n", label, *by, at.UTC().Format(time.RFC3339))
}

// NormalizeText collapses line-ending variants, strips trailing
// whitespace per line, and guarantees exactly one trailing newline.
func NormalizeText(in string) string {
	s := strings.ReplaceAll(in, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

// TextToSafeHTML wraps normalized text in escaped paragraphs.
func TextToSafeHTML(text string) string {
	trimmed := strings.TrimSuffix(text, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return "<p></p>\n"
	}
	paragraphs := strings.Split(trimmed, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		escaped := html.EscapeString(p)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		out = append(out, "<p>"+escaped+"</p>")
	}
	return strings.Join(out, "\n") + "\n"
}

// recipients returns the distinct signer emails in a stable order.
func recipients(c esign.Contract) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range []string{c.CustomerEmail, c.ProviderEmail} {
		e = strings.TrimSpace(strings.ToLower(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
