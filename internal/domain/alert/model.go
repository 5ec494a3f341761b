// internal/domain/alert/model.go

package alert

import (
	"time"

	"essg/internal/domain/geocode"
	"essg/internal/domain/tweet"
)

// TopWord is one entry of the top-3 most frequent words extracted from the
// geocoded tweets' city fields.
type TopWord struct {
	Word  string
	Count int
}

// GeotaggedTweet pairs a triggering tweet with the geocode result obtained
// for it, if any.
type GeotaggedTweet struct {
	Tweet  tweet.Tweet
	Geo    geocode.Result
	HasGeo bool
}

// Spec is the fully-assembled content of one alert, ready to render.
type Spec struct {
	DetectionTime    time.Time
	SubjectLocation  string // "Location undetermined" when no consensus
	MatchRatio       string // "count/total", empty when undetermined
	ConsensusGeocode geocode.Result
	HasConsensus     bool
	TopWords         []TopWord
	Triggering       []GeotaggedTweet
	Other            []tweet.Tweet
}
