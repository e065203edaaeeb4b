package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PageSize is the fixed page size used by the ingest loop.
const PageSize = 127

// Feed fetches pages of matches from the external replay service. Fetch
// returns the parsed matches, a slice of per-row parse errors reported by
// the upstream service (not fatal to the call), and a hard error only when
// the request itself failed.
type Feed interface {
	Fetch(ctx context.Context, pages, pageSize int, minFloor, maxFloor Floor) ([]Match, []error, error)
}

// HTTPFeed is a Feed backed by the replay service's paged JSON API.
type HTTPFeed struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPFeed returns a client with a bounded 30-second per-request timeout.
func NewHTTPFeed(baseURL, apiKey string) *HTTPFeed {
	return &HTTPFeed{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type wireMatch struct {
	Timestamp int64  `json:"timestamp"`
	Floor     uint8  `json:"floor"`
	Winner    uint8  `json:"winner"`
	IDA       int64  `json:"id_a"`
	NameA     string `json:"name_a"`
	CharA     uint8  `json:"char_a"`
	IDB       int64  `json:"id_b"`
	NameB     string `json:"name_b"`
	CharB     uint8  `json:"char_b"`
}

type pageResponse struct {
	Matches []wireMatch `json:"matches"`
	Errors  []string    `json:"errors"`
}

// Fetch requests up to `pages` pages of `pageSize` matches each, floors
// restricted to [minFloor, maxFloor], and parses the combined result. It
// stops early at the first page that returns no matches.
func (f *HTTPFeed) Fetch(ctx context.Context, pages, pageSize int, minFloor, maxFloor Floor) ([]Match, []error, error) {
	var matches []Match
	var parseErrors []error

	for page := 0; page < pages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(pageSize))
		q.Set("min_floor", strconv.Itoa(int(minFloor)))
		q.Set("max_floor", strconv.Itoa(int(maxFloor)))

		reqURL := f.BaseURL + "/replays?" + q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return matches, parseErrors, err
		}
		req.Header.Set("Accept", "application/json")
		if f.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+f.APIKey)
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			return matches, parseErrors, fmt.Errorf("feed: fetch page %d: %w", page, err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		body := buf.Bytes()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return matches, parseErrors, fmt.Errorf("feed: http %d on page %d: %s", resp.StatusCode, page, truncate(string(body), 400))
		}

		var pr pageResponse
		if err := json.Unmarshal(body, &pr); err != nil {
			return matches, parseErrors, fmt.Errorf("feed: decode page %d: %w", page, err)
		}

		for _, e := range pr.Errors {
			parseErrors = append(parseErrors, fmt.Errorf("feed: %s", e))
		}

		if len(pr.Matches) == 0 {
			break
		}

		for _, wm := range pr.Matches {
			m, err := wm.toMatch()
			if err != nil {
				parseErrors = append(parseErrors, err)
				continue
			}
			matches = append(matches, m)
		}
	}

	return matches, parseErrors, nil
}

func (wm wireMatch) toMatch() (Match, error) {
	floor, err := FloorFromU8(wm.Floor)
	if err != nil {
		return Match{}, err
	}
	winner := Winner(wm.Winner)
	if !winner.Valid() {
		return Match{}, fmt.Errorf("feed: invalid winner tag %d", wm.Winner)
	}
	charA, err := CharacterFromU8(wm.CharA)
	if err != nil {
		return Match{}, err
	}
	charB, err := CharacterFromU8(wm.CharB)
	if err != nil {
		return Match{}, err
	}
	return Match{
		Timestamp: unixUTC(wm.Timestamp),
		Floor:     floor,
		Winner:    winner,
		A:         Player{ID: wm.IDA, Character: charA, Name: wm.NameA},
		B:         Player{ID: wm.IDB, Character: charB, Name: wm.NameB},
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
