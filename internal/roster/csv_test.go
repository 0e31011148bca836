package roster

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParseCSV(t *testing.T) {
	input := "Member ID, first name ,LAST_NAME,Nickname,DOB,Den,Rank,Position,Email,Member Type\n" +
		"123,Alex,Smith,Al,2012-03-04,Eagles,Tenderfoot,Scribe,ALEX@EXAMPLE.COM,Youth\n" +
		",,,,,,,,,\n" +
		"124,Sam,Jones,,7/9/2011,Hawks,Scout,,,\n" +
		"125,,Nobody,,,,,,,\n" +
		"126,Pat,Lee,,2011-13-45,,,,,\n" +
		"900,Chris,Parent,,,,,,,Adult\n"

	entries, rowErrs, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		BSAMemberID: "123",
		FirstName:   "Alex",
		LastName:    "Smith",
		Nickname:    "Al",
		BirthDate:   date(2012, time.March, 4),
		Patrol:      "Eagles",
		Rank:        "Tenderfoot",
		Position:    "Scribe",
		Email:       "alex@example.com",
		Youth:       true,
	}, entries[0])
	assert.Equal(t, date(2011, time.July, 9), entries[1].BirthDate)
	assert.False(t, entries[2].Youth)

	require.Len(t, rowErrs, 2)
	assert.Equal(t, 5, rowErrs[0].Line)
	assert.Equal(t, 6, rowErrs[1].Line)
}

func TestParseCSV_HeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"No first name", "Last Name,Rank\nSmith,Scout\n"},
		{"No last name", "First Name\nAlex\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCSV(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    *time.Time
		wantErr bool
	}{
		{"2010-01-31", date(2010, time.January, 31), false},
		{"01/31/2010", date(2010, time.January, 31), false},
		{"1/3/2010", date(2010, time.January, 3), false},
		{"", nil, false},
		{"31.01.2010", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSON(t *testing.T) {
	input := `[
		{"member_id": "55", "first_name": "Riley", "last_name": "Park", "dob": "2013-05-06", "den": "Wolf"},
		{},
		{"first_name": "Solo"},
		{"first_name": "Max", "last_name": "Kim", "member_type": "Adult Leader"}
	]`

	entries, rowErrs, err := ParseJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "55", entries[0].BSAMemberID)
	assert.Equal(t, "Wolf", entries[0].Patrol)
	assert.Equal(t, date(2013, time.May, 6), entries[0].BirthDate)
	assert.False(t, entries[1].Youth)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].Line)

	_, _, err = ParseJSON(strings.NewReader(`{"not": "an array"}`))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestParsers_KeepReaderErrors(t *testing.T) {
	// Body limits surface as reader errors; callers must still see them
	errLimit := errors.New("request body too large")

	_, _, err := ParseCSV(iotest.ErrReader(errLimit))
	assert.ErrorIs(t, err, errLimit)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = ParseJSON(iotest.ErrReader(errLimit))
	assert.ErrorIs(t, err, errLimit)

	_, err = ParseSnapshot(iotest.ErrReader(errLimit))
	assert.ErrorIs(t, err, errLimit)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
