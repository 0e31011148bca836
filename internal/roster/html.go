package roster

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const memberIDAttr = "data-member-id"

var (
	parenRe    = regexp.MustCompile(`\(([^()]*)\)\s*$`)
	positionRe = regexp.MustCompile(`\(([^()]+)\)`)
)

// Snapshot cell order / Ordre des cellules du snapshot
const (
	cellName = iota
	cellMemberType
	cellPositions
	cellPatrol
	cellRank
)

// ParseSnapshot extracts members from the extension's HTML snapshot / Extrait les membres du snapshot HTML
//
// Only rows of the first table carrying data-member-id rows are read. Adults
// are returned with Youth=false so callers can filter them.
func ParseSnapshot(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse snapshot: %w", domain.ErrInvalidInput, err)
	}

	var rows []*html.Node
	for _, table := range findAll(doc, atom.Table) {
		rows = memberRows(table)
		if len(rows) > 0 {
			break
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no member rows", domain.ErrInvalidInput)
	}

	entries := make([]Entry, 0, len(rows))
	for _, tr := range rows {
		cells := cellTexts(tr)
		e := Entry{
			BSAMemberID: strings.TrimSpace(attr(tr, memberIDAttr)),
			Youth:       true,
		}
		if len(cells) > cellName {
			e.FirstName, e.LastName, e.Nickname = splitName(cells[cellName])
		}
		if len(cells) > cellMemberType {
			e.Youth = isYouthType(cells[cellMemberType])
		}
		if len(cells) > cellPositions {
			e.Position = strings.Join(extractPositions(cells[cellPositions]), ", ")
		}
		if len(cells) > cellPatrol {
			e.Patrol = clean(cells[cellPatrol])
		}
		if len(cells) > cellRank {
			e.Rank = clean(cells[cellRank])
		}
		if e.FirstName == "" || e.LastName == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// splitName handles "Last, First (Nick)" and "First Last (Nick)".
func splitName(s string) (first, last, nick string) {
	s = clean(s)
	if m := parenRe.FindStringSubmatchIndex(s); m != nil {
		nick = clean(s[m[2]:m[3]])
		s = clean(s[:m[0]])
	}
	if i := strings.Index(s, ","); i >= 0 {
		return clean(s[i+1:]), clean(s[:i]), nick
	}
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return "", "", nick
	case 1:
		return parts[0], "", nick
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1], nick
}

// extractPositions reads "Troop 42 (Patrol Leader); Troop 42 (Bugler)" style cells.
func extractPositions(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' }) {
		part = clean(part)
		if part == "" {
			continue
		}
		if m := positionRe.FindStringSubmatch(part); m != nil {
			out = append(out, clean(m[1]))
			continue
		}
		out = append(out, part)
	}
	return out
}

func memberRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for _, tr := range findAll(table, atom.Tr) {
		if hasAttr(tr, memberIDAttr) {
			rows = append(rows, tr)
		}
	}
	return rows
}

func cellTexts(tr *html.Node) []string {
	var out []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			var b strings.Builder
			text(c, &b)
			out = append(out, b.String())
		}
	}
	return out
}

// text writes the node's text, turning <br> and block ends into newlines.
func text(n *html.Node, b *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		b.WriteByte('\n')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text(c, b)
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Div || n.DataAtom == atom.Li || n.DataAtom == atom.P) {
		b.WriteByte('\n')
	}
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
