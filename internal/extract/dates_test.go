package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func TestFindDateTokens(t *testing.T) {
	got := FindDateTokens("Backend Developer\nJan 2019  Dec 2020")
	assert.Equal(t, []DateToken{{Month: "Jan", Year: 2019}, {Month: "Dec", Year: 2020}}, got)

	got = FindDateTokens("since MARCH 2021")
	assert.Equal(t, []DateToken{{Month: "MARCH", Year: 2021}}, got)

	assert.Empty(t, FindDateTokens("no dates here 12"))
}

func TestFindYear(t *testing.T) {
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"University X 2018", 2018, true},
		{"Graduated 2022", 2022, true},
		{"Sep 2015 - Jun 2019", 2015, true},
		{"Bachelor of Science", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := FindYear(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"Jan 2020", "Dec 2020", 11},
		{"Jan 2020", "Jan 2020", 0},
		{"Mar 2021", "Present", 67},
		{"Mar 2021", "now", 67},
		{"Dec 2020", "Jan 2020", 0},
		{"September 2019", "Sept 2020", 12},
		{"january 2018", "DECEMBER 2022", 59},
	}
	for _, tt := range tests {
		t.Run(tt.start+"->"+tt.end, func(t *testing.T) {
			got, err := MonthsBetween(tt.start, tt.end, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthsBetweenUnparsed(t *testing.T) {
	_, err := MonthsBetween("garbage", "Dec 2020", fixedNow)
	assert.True(t, errors.Is(err, ErrUnparsedDate))

	_, err = MonthsBetween("Graduated 2020", "Present", fixedNow)
	assert.True(t, errors.Is(err, ErrUnparsedDate))

	assert.Equal(t, 0, MonthsOrZero("garbage", "Dec 2020", fixedNow))
}

func TestMonthsBetweenPresentNeverNegative(t *testing.T) {
	got, err := MonthsBetween("Dec 2030", "Present", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
