package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// murlPattern extracts the full-size image URLs embedded in the async search
// response markup.
var murlPattern = regexp.MustCompile(`murl&quot;:&quot;(.*?)&quot;`)

// adultFilterOffCookie disables the backend's adult filter for the request.
const adultFilterOffCookie = "SRCHHPGUSR=ADLT=OFF"

// BingConfig holds the settings for the search page client.
type BingConfig struct {
	BaseURL        string
	PageSize       int
	UserAgent      string
	Filters        string
	AdultFilterOff bool
	Timeout        time.Duration
}

// BingClient implements SearchClient against the Bing-style async image
// search endpoint using a Colly collector.
type BingClient struct {
	baseCollector *colly.Collector
	cfg           BingConfig
	logger        *zap.Logger
}

// NewBingClient constructs a configured Colly-based search client. The
// transport accepts untrusted TLS certificates: the image hosts behind the
// search backend are third-party and uncontrolled.
func NewBingClient(cfg BingConfig, logger *zap.Logger) (*BingClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("search base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.WithTransport(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- third-party image hosts routinely present bad certs.
		},
	})
	if cfg.Timeout > 0 {
		base.SetRequestTimeout(cfg.Timeout)
	}

	return &BingClient{
		baseCollector: base,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Search issues one page request at the given offset and returns the
// candidate URLs extracted from the structured response.
func (b *BingClient) Search(ctx context.Context, query string, offset int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search canceled: %w", err)
	}

	collector := b.baseCollector.Clone()
	resultCh := make(chan searchResult, 1)
	var once sync.Once
	send := func(res searchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		if b.cfg.AdultFilterOff {
			r.Headers.Set("Cookie", adultFilterOffCookie)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		send(searchResult{body: append([]byte{}, r.Body...)})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(searchResult{err: err})
	})

	pageURL := b.pageURL(query, offset)
	b.logger.Debug("requesting search page",
		zap.String("query", query),
		zap.Int("offset", offset),
	)
	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit search page: %w", err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("search page request: %w", res.err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search canceled: %w", err)
		}
		return extractCandidates(res.body), nil
	default:
		return nil, errors.New("search request produced no result")
	}
}

func (b *BingClient) pageURL(query string, offset int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("first", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(b.cfg.PageSize))
	params.Set("qft", b.cfg.Filters)
	return b.cfg.BaseURL + "?" + params.Encode()
}

func extractCandidates(body []byte) []Candidate {
	matches := murlPattern.FindAllSubmatch(body, -1)
	links := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 && len(m[1]) > 0 {
			links = append(links, Candidate(m[1]))
		}
	}
	return links
}

type searchResult struct {
	body []byte
	err  error
}
