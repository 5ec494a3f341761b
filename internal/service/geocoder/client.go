// internal/service/geocoder/client.go

// Package geocoder resolves a free-form location string or a (lat, lon)
// pair into a normalized geocode.Result, against an ESRI-shaped HTTP
// geocoding service guarded by OAuth2 client-credentials.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"essg/internal/apperr"
	"essg/internal/domain/geocode"
)

// Config holds the geocoder client's endpoints, credentials, and retry
// tuning.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	GeocodeURL   string
	ReverseURL   string

	HTTPTimeout time.Duration // per-attempt timeout; 5s per spec
	MaxAttempts int           // attempts per call before giving up
}

// Client normalizes a location string or lat/lon pair, acquires and caches
// an OAuth2 token, retries transient HTTP failures, and scores the
// provider's response against the reference
// tables.
type Client struct {
	cfg        Config
	httpClient *http.Client
	refTables  geocode.ReferenceTables
	tokens     *tokenCache
}

// New creates a geocoder Client. refTables must already be loaded.
func New(cfg Config, refTables geocode.ReferenceTables) *Client {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		refTables:  refTables,
		tokens: &tokenCache{
			cfg: clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
			},
		},
	}
}

// tokenCache holds the OAuth2 access token as a shared, read-mostly value.
// Ordinary reads are lock-free (atomic.Pointer load); refresh is serialized
// behind refreshMu so concurrent callers don't hammer the token endpoint.
type tokenCache struct {
	cfg       clientcredentials.Config
	cur       atomic.Pointer[oauth2.Token]
	refreshMu sync.Mutex
}

func (tc *tokenCache) get(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if t := tc.cur.Load(); t != nil && t.Valid() {
			return t.AccessToken, nil
		}
	}

	tc.refreshMu.Lock()
	defer tc.refreshMu.Unlock()

	if !forceRefresh {
		if t := tc.cur.Load(); t != nil && t.Valid() {
			return t.AccessToken, nil
		}
	}

	tok, err := tc.cfg.Token(ctx)
	if err != nil {
		return "", apperr.ErrAuthUnavailable
	}
	tc.cur.Store(tok)
	return tok.AccessToken, nil
}

// emptyResult is what every failure path in this client returns: quality 0,
// coordinates unknown, all string fields empty.
func emptyResult(src geocode.Source) geocode.Result {
	return geocode.Result{
		Lat:    geocode.UnknownCoordinate,
		Lon:    geocode.UnknownCoordinate,
		Source: src,
	}
}

// forwardResponse is the subset of the ESRI /geocodeAddresses candidate
// shape this client reads.
type forwardResponse struct {
	Status    string  `json:"Status"`
	AddrType  string  `json:"Addr_type"`
	Type      string  `json:"Type"`
	City      string  `json:"City"`
	MetroArea string  `json:"MetroArea"`
	Region    string  `json:"Region"`
	Country   string  `json:"Country"`
	Y         float64 `json:"Y"`
	X         float64 `json:"X"`
}

// reverseResponse is the subset of /reverseGeocode this client reads.
type reverseResponse struct {
	CountryCode string `json:"CountryCode"`
	City        string `json:"City"`
	Region      string `json:"Region"`
}

// Forward resolves a free-form location string. An empty string (after
// normalization) short-circuits to the empty result without a network
// call, per step 5 of the normalization pipeline.
func (c *Client) Forward(ctx context.Context, locationString string) (geocode.Result, error) {
	cleaned := Normalize(locationString)
	if cleaned == "" {
		return emptyResult(geocode.SourceForward), nil
	}

	body, err := c.doWithRetry(ctx, func(req *http.Request) {
		q := url.Values{}
		q.Set("SingleLine", cleaned)
		q.Set("f", "json")
		req.URL.RawQuery = q.Encode()
	}, c.cfg.GeocodeURL)
	if err != nil {
		if err == apperr.ErrAuthUnavailable {
			return emptyResult(geocode.SourceForward), apperr.ErrAuthUnavailable
		}
		return emptyResult(geocode.SourceForward), err
	}

	var resp forwardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return emptyResult(geocode.SourceForward), apperr.ErrGeocodeUnmatched
	}

	result, matched := c.scoreForward(cleaned, resp)
	if !matched {
		return emptyResult(geocode.SourceForward), apperr.ErrGeocodeUnmatched
	}
	return result, nil
}

// Reverse resolves a (lat, lon) pair. There is no original user string, so
// there is no string-match phase: quality is purely additive over the
// fields the service returns.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (geocode.Result, error) {
	location := strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)

	body, err := c.doWithRetry(ctx, func(req *http.Request) {
		q := url.Values{}
		q.Set("location", location)
		q.Set("f", "json")
		req.URL.RawQuery = q.Encode()
	}, c.cfg.ReverseURL)
	if err != nil {
		if err == apperr.ErrAuthUnavailable {
			return emptyResult(geocode.SourceReverse), apperr.ErrAuthUnavailable
		}
		return emptyResult(geocode.SourceReverse), err
	}

	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return emptyResult(geocode.SourceReverse), apperr.ErrGeocodeUnmatched
	}

	quality := 0
	l0 := ""
	if resp.CountryCode != "" {
		quality += 10
		if country, ok := c.refTables.CountryByCode(resp.CountryCode); ok {
			l0 = country.CommonName
		} else {
			l0 = resp.CountryCode
		}
	}
	if resp.Region != "" {
		quality += 10
	}
	if resp.City != "" {
		quality += 10
	}

	return geocode.Result{
		Lat:     round3(lat),
		Lon:     round3(lon),
		Quality: quality,
		L0:      l0,
		L1:      resp.Region,
		L3:      resp.City,
		Source:  geocode.SourceReverse,
	}, nil
}

// doWithRetry attempts the HTTP GET against target up to cfg.MaxAttempts
// times, configuring the request via configure. Non-2xx responses and
// network errors are retried; a 401 forces a token refresh before the next
// attempt. On exhaustion it returns apperr.ErrGeocodeTransient (callers
// treat that as "return the empty result"); it returns
// apperr.ErrAuthUnavailable only when the token could not be obtained at
// all.
func (c *Client) doWithRetry(ctx context.Context, configure func(*http.Request), target string) ([]byte, error) {
	forceRefresh := false
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		token, err := c.tokens.get(ctx, forceRefresh)
		if err != nil {
			return nil, apperr.ErrAuthUnavailable
		}
		forceRefresh = false

		body, status, err := c.attempt(ctx, target, token, configure)
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusUnauthorized {
			forceRefresh = true
			lastErr = fmt.Errorf("geocoder: unauthorized")
			continue
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("geocoder: status %d", status)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("%w: %v", apperr.ErrGeocodeTransient, lastErr)
}

func (c *Client) attempt(ctx context.Context, target, token string, configure func(*http.Request)) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	configure(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
