package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Source provides per-symbol sentiment scores in [-1, 1] for one tick.
// The second return lists symbols whose score degraded to neutral.
type Source interface {
	Scores(ctx context.Context, symbols []string) (map[string]float64, []string)
}

// Service queries the remote sentiment endpoint with a hard timeout.
// On any failure it degrades per symbol: first the local keyword
// analyzer over cached headlines, then neutral 0. Sentiment is a
// non-critical input, so a timeout never stalls the tick loop.
type Service struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	analyzer *Analyzer

	mu        sync.RWMutex
	headlines map[string]string // symbol -> last cached headline text
}

func NewService(baseURL string) *Service {
	return &Service{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 3 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(10), 20),
		analyzer:  NewAnalyzer(),
		headlines: make(map[string]string),
	}
}

// CacheHeadlines stores headline text for fallback analysis. Every
// successful fetch caches the headline it carried, so later outages
// degrade to the keyword analyzer instead of straight to neutral.
func (s *Service) CacheHeadlines(symbol, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headlines[symbol] = text
}

type scoreResponse struct {
	Score    *float64 `json:"score"`
	Headline string   `json:"headline"`
}

func (s *Service) fetchScore(ctx context.Context, symbol string) (float64, error) {
	if s.baseURL == "" {
		return 0, fmt.Errorf("sentiment service not configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s?symbol=%s", s.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sentiment endpoint returned status %d", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if body.Score == nil {
		return 0, fmt.Errorf("sentiment unavailable for %s", symbol)
	}
	if body.Headline != "" {
		s.CacheHeadlines(symbol, body.Headline)
	}

	score := *body.Score
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score, nil
}

// Scores resolves sentiment for every symbol before the tick starts.
func (s *Service) Scores(ctx context.Context, symbols []string) (map[string]float64, []string) {
	scores := make(map[string]float64, len(symbols))
	var degraded []string

	for _, symbol := range symbols {
		score, err := s.fetchScore(ctx, symbol)
		if err == nil {
			scores[symbol] = score
			continue
		}

		s.mu.RLock()
		text, ok := s.headlines[symbol]
		s.mu.RUnlock()
		if ok {
			scores[symbol] = s.analyzer.Analyze(text)
		} else {
			scores[symbol] = 0 // unavailable maps to neutral
		}
		degraded = append(degraded, symbol)
	}

	return scores, degraded
}

// Neutral is a Source that always returns 0, used in replay runs that
// carry no recorded sentiment.
type Neutral struct{}

func (Neutral) Scores(_ context.Context, symbols []string) (map[string]float64, []string) {
	scores := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		scores[symbol] = 0
	}
	return scores, nil
}
