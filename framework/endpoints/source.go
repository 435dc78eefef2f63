package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultNodeListURL serves a JSON array of public rinkeby RPC endpoints.
	DefaultNodeListURL = "https://rinkeby.golem.network"

	defaultFetchTimeout = 5 * time.Second
)

// DefaultFallbackNodes is used whenever the node list cannot be downloaded.
var DefaultFallbackNodes = []string{
	"http://188.165.227.180:55555",
	"http://94.23.17.170:55555",
	"http://94.23.57.58:55555",
}

// Source produces ordered lists of remote RPC endpoint candidates.
type Source struct {
	logger   *zap.Logger
	url      string
	fallback []string
	client   *http.Client
	rng      *rand.Rand
}

// Option configures a Source.
type Option func(*Source)

// WithURL overrides the node list URL. An empty url keeps the default.
func WithURL(url string) Option {
	return func(s *Source) {
		if url != "" {
			s.url = url
		}
	}
}

// WithFallback overrides the static fallback list. Empty lists are ignored so that
// Discover never returns an empty result.
func WithFallback(nodes ...string) Option {
	return func(s *Source) {
		if len(nodes) > 0 {
			s.fallback = append([]string(nil), nodes...)
		}
	}
}

// WithHTTPClient overrides the client used to fetch the node list.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithRand sets the random source used to shuffle the fallback list.
func WithRand(r *rand.Rand) Option {
	return func(s *Source) { s.rng = r }
}

// NewSource returns a Source using the public node list and fallback nodes unless overridden.
func NewSource(logger *zap.Logger, opts ...Option) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{
		logger:   logger.With(zap.String("component", "endpoint-source")),
		url:      DefaultNodeListURL,
		fallback: append([]string(nil), DefaultFallbackNodes...),
		client:   &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns the candidate endpoints. Fetch failures are logged and replaced by a
// shuffled copy of the fallback list; the result is never empty.
func (s *Source) Discover(ctx context.Context) []string {
	nodes, err := s.fetch(ctx)
	if err == nil {
		s.logger.Debug("downloaded node list", zap.String("url", s.url), zap.Int("count", len(nodes)))
		return nodes
	}
	s.logger.Error("error downloading node list", zap.String("url", s.url), zap.Error(err))
	return s.shuffledFallback()
}

func (s *Source) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var nodes []string
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("decode node list: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node list is empty")
	}
	return nodes, nil
}

func (s *Source) shuffledFallback() []string {
	nodes := append([]string(nil), s.fallback...)
	swap := func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] }
	if s.rng != nil {
		s.rng.Shuffle(len(nodes), swap)
	} else {
		rand.Shuffle(len(nodes), swap)
	}
	return nodes
}
