package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-book-browser/config"
	"github.com/aluiziolira/go-book-browser/models"
)

// Client wraps a colly collector configured for the volumes endpoint.
type Client struct {
	cfg       *config.Config
	collector *colly.Collector
	limiter   *rate.Limiter
	decoder   *payloadDecoder
	Metrics   *Metrics
}

// NewClient builds a catalog client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("api url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
		colly.ParseHTTPErrorResponse(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure limits: %w", err)
	}

	decoder, err := newPayloadDecoder()
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst)
	}

	return &Client{
		cfg:       cfg,
		collector: collector,
		limiter:   limiter,
		decoder:   decoder,
		Metrics:   NewMetrics(),
	}, nil
}

// WithTransport replaces the HTTP transport used by every fetch.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Fetch runs one search and returns the raw volumes. A payload without items
// yields an empty slice. Every failure is a *FetchError.
func (c *Client) Fetch(ctx context.Context, genre, query string) ([]models.Volume, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := SearchURL(c.cfg.APIURL, genre, query, c.cfg.MaxResults)
	if err != nil {
		return nil, c.fail(&FetchError{Kind: KindOther, Err: err}, target, "")
	}

	requestID := uuid.NewString()
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, c.fail(classifyError(err, 0), target, requestID)
	}

	var (
		body       []byte
		statusCode int
		fetchErr   error
	)

	// Clones share the transport and limits but not callbacks, so concurrent
	// fetches never see each other's responses.
	collector := c.collector.Clone()
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "application/json")
		r.Ctx.Put("start", time.Now())
		c.Metrics.IncRequest("started")
		slog.Debug("catalog request",
			slog.String("request_id", requestID),
			slog.String("url", r.URL.String()),
		)
	})
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			c.Metrics.ObserveDuration(time.Since(start))
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	visitErr := collector.Visit(target)
	if fetchErr == nil {
		fetchErr = visitErr
	}
	if fetchErr == nil && ctx.Err() != nil {
		fetchErr = ctx.Err()
	}
	if fetchErr == nil && !isSuccessStatus(statusCode) {
		fetchErr = statusError(statusCode)
	}
	if fetchErr != nil {
		return nil, c.fail(classifyError(fetchErr, statusCode), target, requestID)
	}

	resp, err := c.decoder.Decode(body)
	if err != nil {
		return nil, c.fail(classifyError(err, statusCode), target, requestID)
	}

	c.Metrics.IncRequest("succeeded")
	c.Metrics.AddVolumes(len(resp.Items))
	slog.Debug("catalog response",
		slog.String("request_id", requestID),
		slog.Int("status", statusCode),
		slog.Int("volumes", len(resp.Items)),
		slog.Int("total_items", resp.TotalItems),
	)
	return resp.Items, nil
}

func (c *Client) fail(err *FetchError, target, requestID string) error {
	c.Metrics.IncRequest("failed")
	c.Metrics.IncError(errorTypeLabel(err))
	level := slog.LevelError
	if err.Kind == KindCanceled {
		level = slog.LevelDebug
	}
	slog.Log(context.Background(), level, "catalog fetch failed",
		slog.String("request_id", requestID),
		slog.String("url", target),
		slog.String("category", err.Kind),
		slog.Int("status", err.StatusCode),
		slog.Any("error", err.Err),
	)
	return err
}
