package finance

import (
	"net/url"
	"strings"
)

const (
	metaOpen  = " {{"
	metaClose = "}}"
)

// Note is a payment memo with structured metadata / Mémo de paiement avec métadonnées
//
// Serialized as the memo alone, or "memo {{k=v&...}}" with keys sorted.
type Note struct {
	Memo string            `json:"memo"`
	Meta map[string]string `json:"meta,omitempty"`
}

// FormatNote serializes a note / Sérialise une note
func FormatNote(n Note) string {
	if len(n.Meta) == 0 && !strings.Contains(n.Memo, "{{") {
		return n.Memo
	}
	vals := make(url.Values, len(n.Meta))
	for k, v := range n.Meta {
		vals.Set(k, v)
	}
	return n.Memo + metaOpen + vals.Encode() + metaClose
}

// ParseNote inverts FormatNote / Inverse FormatNote
//
// Text without a well-formed trailing block is a plain memo.
func ParseNote(s string) Note {
	if !strings.HasSuffix(s, metaClose) {
		return Note{Memo: s}
	}
	i := strings.LastIndex(s, metaOpen)
	if i < 0 {
		return Note{Memo: s}
	}
	raw := s[i+len(metaOpen) : len(s)-len(metaClose)]
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return Note{Memo: s}
	}

	n := Note{Memo: s[:i]}
	if len(vals) > 0 {
		n.Meta = make(map[string]string, len(vals))
		for k, v := range vals {
			if len(v) != 1 {
				return Note{Memo: s}
			}
			n.Meta[k] = v[0]
		}
	}
	return n
}
