package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name: "collection keyword beats report and print dates",
			lines: []string{
				"Report date: 15-03-2024",
				"Afname: 12-03-2024 08:15",
				"Printed 16/03/2024",
			},
			want: "2024-03-12",
		},
		{
			name:  "receipt keyword beats unlabeled date",
			lines: []string{"Ontvangen 11.03.2024", "Pagina 1 van 2 - 10.03.2024"},
			want:  "2024-03-11",
		},
		{
			name:  "timeline line favors latest date",
			lines: []string{"Date: 01-02-2024 05-03-2024 10-03-2024"},
			want:  "2024-03-10",
		},
		{
			name:  "earliest line breaks ties",
			lines: []string{"12-03-2024", "11-03-2024"},
			want:  "2024-03-12",
		},
		{
			name:  "same line ties break lexicographically descending",
			lines: []string{"11-03-2024 12-03-2024"},
			want:  "2024-03-12",
		},
		{
			name:  "occurrence count breaks score ties",
			lines: []string{"Collected 08-03-2024 report", "07-03-2024", "07-03-2024", "07-03-2024", "07-03-2024", "07-03-2024"},
			want:  "2024-03-07",
		},
		{
			name:  "textual english month",
			lines: []string{"Collected on 5 March 2024"},
			want:  "2024-03-05",
		},
		{
			name:  "textual german month",
			lines: []string{"Abgenommen am 3. Mär 2024"},
			want:  "2024-03-03",
		},
		{
			name:  "month first textual",
			lines: []string{"Sample date: March 5, 2024"},
			want:  "2024-03-05",
		},
		{
			name:  "iso date",
			lines: []string{"Collection: 2024-03-12T08:00"},
			want:  "2024-03-12",
		},
		{
			name:  "two digit year",
			lines: []string{"Afname 12.03.24"},
			want:  "2024-03-12",
		},
		{
			name:  "month day order when day exceeds twelve",
			lines: []string{"Collected 03/25/2024"},
			want:  "2024-03-25",
		},
		{
			name:  "birth date is penalized",
			lines: []string{"DOB: 04-05-1992", "Datum: 10-03-2024"},
			want:  "2024-03-10",
		},
	}
	e := NewEngine(fixedClock())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Infer(tt.lines)
			require.True(t, got.Found)
			assert.Equal(t, tt.want, got.ISO)
		})
	}
}

func TestInferRejectsImplausibleDates(t *testing.T) {
	e := NewEngine(fixedClock())

	got := e.Infer([]string{"Valid until 12-12-2030", "Founded 01-01-1985", "Range 1.5-12.0"})
	assert.False(t, got.Found)
	assert.Equal(t, "2024-06-01", got.ISO)
	assert.True(t, got.IsToday(fixedClock()()))
}

func TestInferAllowsTomorrow(t *testing.T) {
	e := NewEngine(fixedClock())
	got := e.Infer([]string{"Afname 02-06-2024"})
	require.True(t, got.Found)
	assert.Equal(t, "2024-06-02", got.ISO)
}

func TestInferIsDeterministic(t *testing.T) {
	e := NewEngine(fixedClock())
	lines := []string{"01-03-2024", "02-03-2024", "03-03-2024", "04-03-2024"}
	first := e.Infer(lines)
	for i := 0; i < 25; i++ {
		assert.Equal(t, first.ISO, e.Infer(lines).ISO)
	}
	assert.Equal(t, "2024-03-01", first.ISO)
}

func TestFindDatesSkipsMixedSeparators(t *testing.T) {
	assert.Empty(t, findDates("Testosterone 8.6-29.0 nmol/L", 2024))
	assert.Len(t, findDates("12.03.2024 and 2024-03-13", 2024), 2)
	assert.Empty(t, findDates("31-02-2024", 2024))
}
