// internal/adapter/storage/tweetstore.go

package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"essg/internal/apperr"
	"essg/internal/domain/tweet"
)

// TweetStore pulls tweets out of the message table into the windows the
// STA/LTA trigger and the alert assembler ask for. It issues only SELECTs.
type TweetStore struct {
	db *pgxpool.Pool
}

// NewTweetStore creates a new tweet window store over the given pool.
func NewTweetStore(db *pgxpool.Pool) *TweetStore {
	return &TweetStore{db: db}
}

// Window returns the tweets whose twitter_date falls in the half-open
// interval [start, end), ordered most-recent-first; ties follow insertion
// order (id ascending, since id is assigned on insert).
//
// An empty result is returned when no tweets fall in the interval.
// Backing-store I/O errors are returned to the caller, who treats them as
// fatal to the current attempt only: the next poll cycle retries.
func (s *TweetStore) Window(ctx context.Context, start, end time.Time) ([]tweet.Tweet, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			m.id, m.twitter_date, m.text, m.location_type,
			ST_Y(m.location::geometry), ST_X(m.location::geometry),
			m.location_string
		FROM message m
		WHERE m.twitter_date >= $1 AND m.twitter_date < $2
		ORDER BY m.twitter_date DESC, m.id ASC
	`, start, end)
	if err != nil {
		return nil, &apperr.StoreError{Op: "querying message window", Err: err}
	}
	defer rows.Close()

	var out []tweet.Tweet
	for rows.Next() {
		var (
			t              tweet.Tweet
			locationType   string
			lat, lon       *float64
			locationString *string
		)

		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.Text, &locationType, &lat, &lon, &locationString); err != nil {
			return nil, &apperr.StoreError{Op: "scanning message row", Err: err}
		}

		if locationString != nil {
			t.LocationString = *locationString
		}

		switch locationType {
		case "Location-String":
			if locationString != nil {
				t.Location = tweet.LocationString{Text: *locationString}
			} else {
				t.Location = tweet.NoLocation{}
			}
		case "GeoLocation":
			if lat != nil && lon != nil {
				t.Location = tweet.GeoLocation{Lat: *lat, Lon: *lon}
			} else {
				t.Location = tweet.NoLocation{}
			}
		default:
			t.Location = tweet.NoLocation{}
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperr.StoreError{Op: "iterating message rows", Err: err}
	}

	return out, nil
}

// CountBin returns the number of tweets in the half-open interval
// [start, start+binLength).
func (s *TweetStore) CountBin(ctx context.Context, start time.Time, binLength time.Duration) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM message
		WHERE twitter_date >= $1 AND twitter_date < $2
	`, start, start.Add(binLength)).Scan(&count)
	if err != nil {
		return 0, &apperr.StoreError{Op: "counting bin", Err: err}
	}
	return count, nil
}
