package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/pkg/contracts/domain"
)

func sampleDataset() *Dataset {
	return New([]domain.RentalRecord{
		{Date: day("2011-01-05"), TotalCount: 10},
		{Date: day("2011-01-01"), TotalCount: 20},
		{Date: day("2011-01-10"), TotalCount: 30},
	}, domain.LoadReport{Source: "mem", Problems: []domain.LoadProblem{{Row: 4}}})
}

func TestDatasetBounds(t *testing.T) {
	bounds, ok := sampleDataset().Bounds()
	require.True(t, ok)
	assert.Equal(t, day("2011-01-01"), bounds.Start)
	assert.Equal(t, day("2011-01-10"), bounds.End)
}

func TestDatasetClamp(t *testing.T) {
	ds := sampleDataset()

	tests := []struct {
		name string
		in   domain.DateRange
		want domain.DateRange
	}{
		{
			name: "inside stays",
			in:   domain.DateRange{Start: day("2011-01-02"), End: day("2011-01-03")},
			want: domain.DateRange{Start: day("2011-01-02"), End: day("2011-01-03")},
		},
		{
			name: "wider is clamped",
			in:   domain.DateRange{Start: day("2010-01-01"), End: day("2012-01-01")},
			want: domain.DateRange{Start: day("2011-01-01"), End: day("2011-01-10")},
		},
		{
			name: "entirely after collapses inverted",
			in:   domain.DateRange{Start: day("2013-01-01"), End: day("2013-02-01")},
			want: domain.DateRange{Start: day("2013-01-01"), End: day("2011-01-10")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ds.Clamp(tt.in))
		})
	}

	empty := New(nil, domain.LoadReport{})
	r := domain.DateRange{Start: day("2011-01-01"), End: day("2011-01-02")}
	assert.Equal(t, r, empty.Clamp(r))
}

func TestDatasetReturnsCopies(t *testing.T) {
	ds := sampleDataset()

	recs := ds.Records()
	recs[0].TotalCount = 999
	assert.Equal(t, int64(10), ds.Records()[0].TotalCount)

	report := ds.Report()
	report.Problems[0].Row = 99
	assert.Equal(t, 4, ds.Report().Problems[0].Row)
}

func TestNewCopiesInput(t *testing.T) {
	in := []domain.RentalRecord{{Date: day("2011-01-01"), TotalCount: 1}}
	ds := New(in, domain.LoadReport{})
	in[0].TotalCount = 5
	assert.Equal(t, int64(1), ds.Records()[0].TotalCount)
}
