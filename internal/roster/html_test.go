package roster

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const snapshot = `<html><body>
<table id="nav"><tr><td>Menu</td></tr></table>
<table class="roster">
  <thead><tr><th>Name</th><th>Type</th><th>Positions</th><th>Patrol</th><th>Rank</th></tr></thead>
  <tbody>
    <tr data-member-id="1001">
      <td><a href="#">Smith, Alexander (Alex)</a></td>
      <td>Youth</td>
      <td>Troop 42 (Patrol Leader)<br>Troop 42 (Bugler)</td>
      <td>Eagles</td>
      <td>First Class</td>
    </tr>
    <tr data-member-id="1002">
      <td>Jordan  Lee</td>
      <td>Youth</td>
      <td>Troop 42 (Scout); </td>
      <td>Hawks</td>
      <td>Scout</td>
    </tr>
    <tr data-member-id="2001">
      <td>Parent, Pat</td>
      <td>Adult</td>
      <td>Troop 42 (Committee Member)</td>
      <td></td>
      <td></td>
    </tr>
    <tr><td colspan="5">Footer</td></tr>
  </tbody>
</table>
<table><tr data-member-id="9"><td>Other, Table</td></tr></table>
</body></html>`

func TestParseSnapshot(t *testing.T) {
	got, err := ParseSnapshot(strings.NewReader(snapshot))
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}

	want := []Entry{
		{BSAMemberID: "1001", FirstName: "Alexander", LastName: "Smith", Nickname: "Alex", Position: "Patrol Leader, Bugler", Patrol: "Eagles", Rank: "First Class", Youth: true},
		{BSAMemberID: "1002", FirstName: "Jordan", LastName: "Lee", Position: "Scout", Patrol: "Hawks", Rank: "Scout", Youth: true},
		{BSAMemberID: "2001", FirstName: "Pat", LastName: "Parent", Position: "Committee Member", Youth: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSnapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSnapshot_NoRows(t *testing.T) {
	if _, err := ParseSnapshot(strings.NewReader("<table><tr><td>x</td></tr></table>")); err == nil {
		t.Error("expected an error for a snapshot without member rows")
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in                string
		first, last, nick string
	}{
		{"Smith, Alex", "Alex", "Smith", ""},
		{"Smith, Alexander (Alex)", "Alexander", "Smith", "Alex"},
		{"Mary Ann Jones", "Mary Ann", "Jones", ""},
		{"Jo Doe (JD)", "Jo", "Doe", "JD"},
		{"Cher", "Cher", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last, nick := splitName(tt.in)
			if first != tt.first || last != tt.last || nick != tt.nick {
				t.Errorf("splitName(%q) = %q, %q, %q", tt.in, first, last, nick)
			}
		})
	}
}
