package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"pricewatch/internal/config"
	"pricewatch/internal/domain"
	applog "pricewatch/internal/log"
	"pricewatch/internal/validate"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) pricewatch/1.0"

// Client fetches point-in-time product snapshots from the remote catalog.
// It owns a TTL cache and a token-bucket limiter; safe for concurrent use.
type Client struct {
	http       *http.Client
	baseURL    string
	cache      *ttlCache
	limiter    *rate.Limiter
	retries    uint64
	retryBase  time.Duration
	timeout    time.Duration
	extractors []Extractor
	now        func() time.Time
}

func New(cfg config.Config) *Client {
	now := time.Now
	perMin := cfg.FetchRatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Client{
		http:       &http.Client{},
		baseURL:    cfg.FetchBaseURL,
		cache:      newTTLCache(time.Duration(cfg.FetchCacheTTL)*time.Second, now),
		limiter:    rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
		retries:    uint64(cfg.FetchRetries),
		retryBase:  time.Duration(cfg.FetchRetryBase) * time.Millisecond,
		timeout:    time.Duration(cfg.FetchTimeoutSec) * time.Second,
		extractors: DefaultExtractors(),
		now:        now,
	}
}

// WithClock overrides the cache clock. Test hook.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	c.cache.now = now
	return c
}

// Fetch returns a snapshot of the product's public attributes, serving from
// cache within the TTL unless skipCache forces a live round-trip. Transient
// failures are retried with exponential backoff and jitter; permanent ones
// surface immediately.
func (c *Client) Fetch(ctx context.Context, article string, skipCache bool) (domain.ProductAttrs, error) {
	article, ok := validate.Article(article)
	if !ok {
		return domain.ProductAttrs{}, newErr(KindNotFound, article, errors.New("malformed article"))
	}

	if !skipCache {
		if attrs, hit := c.cache.get(article); hit {
			return attrs, nil
		}
	}

	var attrs domain.ProductAttrs
	op := func() error {
		var err error
		attrs, err = c.fetchOnce(ctx, article)
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx)); err != nil {
		applog.JobError("fetch", "fetch.fail", err, map[string]any{"article": article, "kind": KindOf(err).String()})
		return domain.ProductAttrs{}, err
	}

	c.cache.set(article, attrs)
	return attrs, nil
}

func (c *Client) fetchOnce(ctx context.Context, article string) (domain.ProductAttrs, error) {
	// The limiter suspends the caller until a slot frees; it never drops.
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ProductAttrs{}, newErr(KindTimeout, article, err)
	}

	start := c.now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.productURL(article), nil)
	if err != nil {
		return domain.ProductAttrs{}, newErr(KindTransport, article, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ProductAttrs{}, newErr(KindTimeout, article, err)
		}
		return domain.ProductAttrs{}, newErr(KindTransport, article, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ProductAttrs{}, newErr(KindNotFound, article, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ProductAttrs{}, newErr(KindRateLimited, article, nil)
	case resp.StatusCode >= 500:
		return domain.ProductAttrs{}, newErr(KindTransport, article, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return domain.ProductAttrs{}, newErr(KindParseFailure, article, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ProductAttrs{}, newErr(KindTransport, article, err)
	}

	attrs, err := c.extract(article, body)
	if err != nil {
		return domain.ProductAttrs{}, err
	}
	attrs.Article = article
	attrs.FetchedAt = c.now()
	attrs.FetchMS = c.now().Sub(start).Milliseconds()
	return attrs, nil
}

func (c *Client) extract(article string, body []byte) (domain.ProductAttrs, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ProductAttrs{}, newErr(KindParseFailure, article, err)
	}
	for _, ex := range c.extractors {
		if attrs, ok := ex.Try(doc); ok {
			return attrs, nil
		}
	}
	// No strategy produced a plausible price: a failure, never a zero-price
	// success. Logged for selector maintenance.
	return domain.ProductAttrs{}, newErr(KindParseFailure, article, errors.New("no extractor matched"))
}

func (c *Client) productURL(article string) string {
	return fmt.Sprintf("%s/product/%s", c.baseURL, article)
}
