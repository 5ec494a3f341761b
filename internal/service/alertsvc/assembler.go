// internal/service/alertsvc/assembler.go

// Package alertsvc assembles and dispatches earthquake alerts: given a
// trigger timestamp it pulls the trigger window, partitions tweets into
// triggering/other, geocodes the triggering set, elects a consensus
// region, renders the alert file, and hands it to the mail dispatcher.
package alertsvc

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"essg/internal/config"
	"essg/internal/domain/alert"
	"essg/internal/domain/geocode"
	"essg/internal/domain/tweet"
	"essg/internal/service/geocoder"
	"essg/internal/service/region"
)

// TweetWindow is the dependency the assembler pulls the trigger window from.
type TweetWindow interface {
	Window(ctx context.Context, start, end time.Time) ([]tweet.Tweet, error)
}

// Geocoder is the dependency the assembler geocodes triggering tweets through.
type Geocoder interface {
	Forward(ctx context.Context, locationString string) (geocode.Result, error)
	Reverse(ctx context.Context, lat, lon float64) (geocode.Result, error)
}

// Assembler implements the Alert Assembler component.
type Assembler struct {
	store      TweetWindow
	geocoder   Geocoder
	mailer     *Mailer
	staLength  time.Duration
	maxWords   int
	filterTerms []string
	outputDir  string
	mailCfg    config.MailConfig
	log        *log.Logger

	concurrency int
}

// Config bundles the assembler's tuning parameters.
type Config struct {
	STALength   time.Duration
	MaxWords    int
	FilterTerms []string
	OutputDir   string
	Mail        config.MailConfig
	Concurrency int // bound on concurrent per-tweet geocode calls
}

// New creates an Assembler.
func New(store TweetWindow, gc Geocoder, cfg Config, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Assembler{
		store:       store,
		geocoder:    gc,
		mailer:      &Mailer{Command: cfg.Mail.Dispatcher},
		staLength:   cfg.STALength,
		maxWords:    cfg.MaxWords,
		filterTerms: cfg.FilterTerms,
		outputDir:   cfg.OutputDir,
		mailCfg:     cfg.Mail,
		log:         logger,
		concurrency: concurrency,
	}
}

// Result carries the outcome of an Assemble call: the path of the alert
// file written to disk and the subject location rendered into it (the
// consensus key, or "Location undetermined").
type Result struct {
	Path     string
	Location string
}

// Assemble builds and dispatches the alert for a trigger that fired at
// triggerTime and returns the path of the alert file written to disk and
// the subject location it was filed under.
// Failures downstream of the window read (auth unavailable, undetermined
// region, dispatch failure) degrade the alert rather than aborting it;
// only a failure to read the window or write the file is returned.
func (a *Assembler) Assemble(ctx context.Context, triggerTime time.Time) (Result, error) {
	tweets, err := a.store.Window(ctx, triggerTime.Add(-a.staLength), triggerTime)
	if err != nil {
		return Result{}, err
	}

	triggering, other := a.partition(tweets)

	geotagged := a.geocodeAll(ctx, triggering)

	usable := make([]geocode.Result, 0, len(geotagged))
	for _, gt := range geotagged {
		if gt.HasGeo {
			usable = append(usable, gt.Geo)
		}
	}

	consensus := region.Estimate(usable)
	topWords := region.TopWords(usable)

	spec := alert.Spec{
		DetectionTime: triggerTime,
		Triggering:    geotagged,
		Other:         other,
		TopWords:      topWords,
	}

	if consensus.Determined {
		spec.HasConsensus = true
		spec.SubjectLocation = consensus.Key
		spec.MatchRatio = consensus.Ratio()

		if display, err := a.geocoder.Forward(ctx, consensus.Key); err == nil && display.Usable() {
			spec.ConsensusGeocode = display
		}
	} else {
		spec.SubjectLocation = "Location undetermined"
	}

	body := Render(spec, a.mailCfg)
	path := filepath.Join(a.outputDir, Filename(spec))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return Result{}, err
	}

	if err := a.mailer.Send(ctx, body, a.mailCfg.DetectionList); err != nil {
		a.log.Printf("WARN alert dispatch failed, file retained at %s: %v", path, err)
	}

	return Result{Path: path, Location: spec.SubjectLocation}, nil
}

// partition splits the trigger window into the triggering set (short,
// unfiltered, located tweets) and everything else.
func (a *Assembler) partition(tweets []tweet.Tweet) (triggering []tweet.Tweet, other []tweet.Tweet) {
	for _, t := range tweets {
		if a.isTriggering(t) {
			triggering = append(triggering, t)
		} else {
			other = append(other, t)
		}
	}
	return triggering, other
}

func (a *Assembler) isTriggering(t tweet.Tweet) bool {
	if !t.HasLocationString() {
		return false
	}

	clean := geocoder.Transliterate(t.Text)
	words := strings.Fields(clean)
	if len(words) > a.maxWords {
		return false
	}

	lower := strings.ToLower(clean)
	for _, term := range a.filterTerms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}

	return true
}

// geocodeAll resolves each triggering tweet's location concurrently, bounded
// by a.concurrency, preserving the input order on return. Only results with
// quality >= 10 are marked HasGeo.
func (a *Assembler) geocodeAll(ctx context.Context, tweets []tweet.Tweet) []alert.GeotaggedTweet {
	out := make([]alert.GeotaggedTweet, len(tweets))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, t := range tweets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, t tweet.Tweet) {
			defer wg.Done()
			defer func() { <-sem }()

			out[i] = a.geocodeOne(ctx, t)
		}(i, t)
	}
	wg.Wait()

	return out
}

func (a *Assembler) geocodeOne(ctx context.Context, t tweet.Tweet) alert.GeotaggedTweet {
	gt := alert.GeotaggedTweet{Tweet: t}

	switch loc := t.Location.(type) {
	case tweet.LocationString:
		result, err := a.geocoder.Forward(ctx, loc.Text)
		if err != nil {
			a.log.Printf("WARN forward geocode unavailable for tweet %d: %v", t.ID, err)
			return gt
		}
		if result.Usable() {
			gt.Geo = result
			gt.HasGeo = true
		}
	case tweet.GeoLocation:
		result, err := a.geocoder.Reverse(ctx, loc.Lat, loc.Lon)
		if err != nil {
			a.log.Printf("WARN reverse geocode unavailable for tweet %d: %v", t.ID, err)
			return gt
		}
		if result.Usable() {
			gt.Geo = result
			gt.HasGeo = true
		}
	}

	return gt
}
