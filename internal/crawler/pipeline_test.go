package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
	"github.com/JakeFAU/boxoffice-crawler/internal/progress"
)

// scriptedYears returns canned results per year.
type scriptedYears struct {
	results map[int]YearResult
	errs    map[int]error
	onYear  func(year int)
	seen    []int
}

func (s *scriptedYears) CrawlYear(_ context.Context, year int) (YearResult, error) {
	s.seen = append(s.seen, year)
	if s.onYear != nil {
		s.onYear(year)
	}
	res, ok := s.results[year]
	if !ok {
		res = YearResult{Year: year}
	}
	return res, s.errs[year]
}

func records(titles ...string) []movie.Record {
	out := make([]movie.Record, 0, len(titles))
	for _, title := range titles {
		rec := movie.NewRecord()
		rec.MovieTitle = title
		rec.MovieURL = testBase + "/movie/" + title
		out = append(out, rec)
	}
	return out
}

func TestPipelineRunsYearsInOrder(t *testing.T) {
	t.Parallel()

	years := &scriptedYears{results: map[int]YearResult{
		2017: {Year: 2017, Listed: 2, Records: records("A", "B")},
		2018: {Year: 2018, Listed: 0},
		2019: {
			Year: 2019, Listed: 2, Records: records("C"),
			Failures: []DetailFailure{{Year: 2019, Title: "D", Err: errors.New("boom")}},
		},
	}}
	emitter := &recordingEmitter{}
	p, err := NewPipeline(years, Deps{Progress: emitter, RunID: [16]byte{9}})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), 2017, 2019)
	require.NoError(t, err)

	assert.Equal(t, []int{2017, 2018, 2019}, years.seen)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "A", res.Records[0].MovieTitle)
	assert.Equal(t, "C", res.Records[2].MovieTitle)
	assert.Len(t, res.DetailFailures, 1)
	assert.Empty(t, res.ListingFailures)
	assert.Equal(t, 1, res.FailureCount())

	require.Len(t, res.Years, 3)
	assert.Equal(t, YearSummary{Year: 2018}, res.Years[1])
	assert.Equal(t, YearSummary{Year: 2019, Listed: 2, Records: 1, DetailFailures: 1}, res.Years[2])

	stages := emitter.stages()
	assert.Equal(t, 1, stages[progress.StageRunStart])
	assert.Equal(t, 1, stages[progress.StageRunDone])
}

func TestPipelineSkipsFailedListing(t *testing.T) {
	t.Parallel()

	failure := ListingFailure{Year: 2020, URL: ListingURL(testBase, 2020), Err: errors.New("HTTP 500")}
	years := &scriptedYears{
		results: map[int]YearResult{
			2021: {Year: 2021, Listed: 1, Records: records("E")},
		},
		errs: map[int]error{2020: failure},
	}
	p, err := NewPipeline(years, Deps{})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), 2020, 2021)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	require.Len(t, res.ListingFailures, 1)
	assert.Equal(t, 2020, res.ListingFailures[0].Year)
	assert.Error(t, res.Years[0].ListingErr)
	assert.NoError(t, res.Years[1].ListingErr)
}

func TestPipelineRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&scriptedYears{}, Deps{})
	require.NoError(t, err)

	for _, tc := range []struct{ start, end int }{{2020, 2019}, {999, 2000}, {2000, 10000}} {
		_, err := p.Run(context.Background(), tc.start, tc.end)
		assert.ErrorIs(t, err, ErrInvalidYearRange, "%d..%d", tc.start, tc.end)
	}
}

func TestPipelineStopsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	years := &scriptedYears{
		results: map[int]YearResult{2010: {Year: 2010, Listed: 1, Records: records("F")}},
		onYear: func(year int) {
			if year == 2010 {
				cancel()
			}
		},
	}
	p, err := NewPipeline(years, Deps{})
	require.NoError(t, err)

	res, err := p.Run(ctx, 2010, 2012)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{2010}, years.seen)
	assert.Len(t, res.Records, 1)
}

func TestPipelineWithYearCrawler(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]string{
		ListingURL(testBase, 2001): listingPage("X", "Y"),
		ListingURL(testBase, 2002): listingPage(),
		testBase + "/movie/X":      detailPage("Comedy"),
		testBase + "/movie/Y":      detailPage("Western"),
	}}
	yc := newTestYearCrawler(t, f, Deps{}, 5)
	p, err := NewPipeline(yc, Deps{})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), 2001, 2002)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Years[0].Records)
	assert.Equal(t, 0, res.Years[1].Records)
}
