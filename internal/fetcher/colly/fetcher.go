// Package collyfetcher fetches upstream catalog pages using gocolly and
// classifies transport failures and upstream error pages.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
	"github.com/JakeFAU/melon-chart-api/internal/metrics"
)

// Default request settings.
const (
	DefaultBaseURL        = "https://www.melon.com"
	DefaultTimeout        = 10 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultReferer        = "https://www.melon.com/"
)

// Config controls collector behavior. Empty fields take the defaults above.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
	Referer        string
	AcceptLanguage string
	Accept         string
}

// Fetcher retrieves and parses upstream pages with the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchResult collects what the collector callbacks observed.
type fetchResult struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	cfg = withDefaults(cfg)
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(base.String(), "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	// Clones share the backend, so transport-wide settings live here.
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	c.UserAgent = cfg.UserAgent
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger.Named("fetcher"),
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Accept == "" {
		cfg.Accept = DefaultAccept
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	return cfg
}

// Fetch retrieves path relative to the base URL and returns the parsed page.
// Recognized error pages come back as an upstream *melon.Error.
func (f *Fetcher) Fetch(ctx context.Context, path string) (document.Node, error) {
	target := f.cfg.BaseURL + path
	start := time.Now()
	f.logger.Debug("fetching page", zap.String("url", target))

	doc, size, err := f.fetch(ctx, target)
	outcome := "ok"
	if err != nil {
		outcome = melon.KindOf(err).String()
		f.logger.Warn("fetch failed",
			zap.String("url", target),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	metrics.ObserveFetch(outcome, size, time.Since(start))
	return doc, err
}

func (f *Fetcher) fetch(ctx context.Context, target string) (document.Node, int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var result fetchResult
	collector := f.buildCollector(ctx, &result)
	if err := f.runCollector(ctx, collector, target, &result); err != nil {
		return nil, 0, err
	}
	if result.status < 200 || result.status > 299 {
		return nil, len(result.body), melon.HTTPStatus(result.status)
	}

	doc, err := document.Parse(bytes.NewReader(result.body))
	if err != nil {
		return nil, len(result.body), melon.Parse("upstream", err)
	}
	if targetID, ok := detectErrorPage(doc); ok {
		return nil, len(result.body), melon.Upstream(targetID)
	}
	return doc, len(result.body), nil
}

func (f *Fetcher) buildCollector(ctx context.Context, result *fetchResult) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, result)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *fetchResult) {
	hooks.OnRequest(func(r *colly.Request) {
		f.setHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	target string,
	result *fetchResult,
) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return classify(ctx.Err())
	case err := <-done:
		if err == nil {
			err = result.err
		}
		if err != nil {
			if result.status != 0 && (result.status < 200 || result.status > 299) {
				return melon.HTTPStatus(result.status)
			}
			return classify(err)
		}
		return nil
	}
}

func (f *Fetcher) setHeaders(r *colly.Request) {
	r.Headers.Set("Accept", f.cfg.Accept)
	r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	r.Headers.Set("Referer", f.cfg.Referer)
}

// classify maps a collector or context failure onto the error taxonomy.
func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return melon.Timeout(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return melon.Timeout(err)
	default:
		return melon.Transport(err)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
