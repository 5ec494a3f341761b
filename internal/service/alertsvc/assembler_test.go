// internal/service/alertsvc/assembler_test.go

package alertsvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essg/internal/config"
	"essg/internal/domain/geocode"
	"essg/internal/domain/tweet"
)

type fakeWindow struct {
	tweets []tweet.Tweet
}

func (f *fakeWindow) Window(ctx context.Context, start, end time.Time) ([]tweet.Tweet, error) {
	return f.tweets, nil
}

// fakeGeocoder resolves every forward call whose text contains "napa"
// (case-insensitive, so both "Napa, CA" and the consensus key) to a usable
// result and everything else to an empty one, and every reverse call to a
// usable result.
type fakeGeocoder struct{}

func (f *fakeGeocoder) Forward(ctx context.Context, locationString string) (geocode.Result, error) {
	if strings.Contains(strings.ToLower(locationString), "napa") {
		return geocode.Result{L0: "United States", L1: "California", L3: "Napa", Quality: 17, Source: geocode.SourceForward}, nil
	}
	return geocode.Result{Quality: 0, Source: geocode.SourceForward}, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (geocode.Result, error) {
	return geocode.Result{L0: "United States", L1: "California", L3: "Napa", Quality: 30, Lat: lat, Lon: lon, Source: geocode.SourceReverse}, nil
}

func testMailConfig(dispatcher string) config.MailConfig {
	return config.MailConfig{
		From:          "alerts@example.com",
		SubjectTag:    "[EARTHQUAKE]",
		DetectionList: []string{"ops@example.com"},
		Dispatcher:    dispatcher,
	}
}

func TestAssemble_ConsensusReached(t *testing.T) {
	tweets := make([]tweet.Tweet, 0, 4)
	for i := 0; i < 4; i++ {
		tweets = append(tweets, tweet.Tweet{
			ID:             int64(i),
			CreatedAt:      time.Unix(int64(i), 0).UTC(),
			Text:           "felt a shake here",
			Location:       tweet.LocationString{Text: "Napa, CA"},
			LocationString: "Napa, CA",
		})
	}

	store := &fakeWindow{tweets: tweets}
	dir := t.TempDir()

	a := New(store, &fakeGeocoder{}, Config{
		STALength:   2 * time.Minute,
		MaxWords:    20,
		FilterTerms: []string{"giveaway"},
		OutputDir:   dir,
		Mail:        testMailConfig("true"),
	}, nil)

	result, err := a.Assemble(context.Background(), time.Unix(1000, 0).UTC())
	require.NoError(t, err)

	body, err := os.ReadFile(result.Path)
	require.NoError(t, err)

	assert.Contains(t, string(body), "Napa, California, United States")
	assert.Contains(t, string(body), "4/4")
	assert.Equal(t, "Napa, California, United States", result.Location)
}

func TestAssemble_LocationUndetermined(t *testing.T) {
	tweets := []tweet.Tweet{
		{ID: 1, CreatedAt: time.Unix(1, 0).UTC(), Text: "earthquake!", Location: tweet.LocationString{Text: "Unmatchable Place"}, LocationString: "Unmatchable Place"},
	}
	store := &fakeWindow{tweets: tweets}
	dir := t.TempDir()

	a := New(store, &fakeGeocoder{}, Config{
		STALength: 2 * time.Minute,
		MaxWords:  20,
		OutputDir: dir,
		Mail:      testMailConfig("true"),
	}, nil)

	result, err := a.Assemble(context.Background(), time.Unix(1000, 0).UTC())
	require.NoError(t, err)

	body, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Location undetermined")
	assert.Equal(t, "Location undetermined", result.Location)
}

func TestAssemble_FiltersLongAndBlockedTweets(t *testing.T) {
	tweets := []tweet.Tweet{
		{ID: 1, CreatedAt: time.Unix(1, 0).UTC(), Text: "short and located", Location: tweet.LocationString{Text: "Napa, CA"}, LocationString: "Napa, CA"},
		{ID: 2, CreatedAt: time.Unix(2, 0).UTC(), Text: strings.Repeat("word ", 50), Location: tweet.LocationString{Text: "Napa, CA"}, LocationString: "Napa, CA"},
		{ID: 3, CreatedAt: time.Unix(3, 0).UTC(), Text: "enter our giveaway now", Location: tweet.LocationString{Text: "Napa, CA"}, LocationString: "Napa, CA"},
		{ID: 4, CreatedAt: time.Unix(4, 0).UTC(), Text: "no location here", Location: tweet.NoLocation{}},
		{ID: 5, CreatedAt: time.Unix(5, 0).UTC(), Text: "gps tagged only", Location: tweet.GeoLocation{Lat: 38.3, Lon: -122.3}},
	}
	store := &fakeWindow{tweets: tweets}
	dir := t.TempDir()

	a := New(store, &fakeGeocoder{}, Config{
		STALength:   2 * time.Minute,
		MaxWords:    5,
		FilterTerms: []string{"giveaway"},
		OutputDir:   dir,
		Mail:        testMailConfig("true"),
	}, nil)

	triggering, other := a.partition(tweets)
	assert.Len(t, triggering, 1)
	assert.Equal(t, int64(1), triggering[0].ID)
	assert.Len(t, other, 4)

	// A GeoLocation-tagged tweet with no location_string is not triggering,
	// even though it carries an authoritative Location.
	assert.True(t, tweets[4].HasLocation())
	assert.False(t, tweets[4].HasLocationString())
}

func TestAssemble_WritesFileToOutputDir(t *testing.T) {
	store := &fakeWindow{tweets: nil}
	dir := t.TempDir()

	a := New(store, &fakeGeocoder{}, Config{
		STALength: time.Minute,
		MaxWords:  20,
		OutputDir: dir,
		Mail:      testMailConfig("true"),
	}, nil)

	detectedAt := time.Unix(500, 0).UTC()
	result, err := a.Assemble(context.Background(), detectedAt)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(result.Path))
	assert.Equal(t, detectedAt.Format("2006-01-02_15-04-05"), strings.TrimSuffix(strings.TrimPrefix(filepath.Base(result.Path), "email"), ".txt"))
}
