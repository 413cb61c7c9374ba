// Пакет catalog — HTTP-клиент внешнего каталога книг.
// Любой сбой сводится к domain.Absent(): вызывающая сторона ошибок не видит.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Gunvolt24/book_orders/config"
	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/pkg/logger"
	"github.com/Gunvolt24/book_orders/pkg/metrics"
)

var _ ports.BookCatalog = (*Client)(nil)

// Итоговые результаты вызова (метка result в метриках).
const (
	resultPresent   = "present"
	resultNotFound  = "not_found"
	resultTimeout   = "timeout"
	resultCanceled  = "canceled"
	resultExhausted = "exhausted"
)

const maxBodyBytes = 1 << 20

var (
	errNotFound         = errors.New("book not found")
	errTimeout          = errors.New("attempt timed out")
	errUnexpectedStatus = errors.New("unexpected status")
	errMalformedBody    = errors.New("malformed book body")
)

// Client — неизменяемая конфигурация и http.Client; безопасен для конкурентного использования.
type Client struct {
	base *url.URL
	http *http.Client
	cfg  config.Catalog
	log  ports.Logger
}

// NewClient проверяет базовый адрес. При httpClient == nil используется
// транспорт по умолчанию, обёрнутый otelhttp.
func NewClient(cfg config.Catalog, httpClient *http.Client, log ports.Logger) (*Client, error) {
	if err := config.ValidateCatalogURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	base, _ := url.Parse(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		return nil, config.ErrCatalogTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{base: base, http: httpClient, cfg: cfg, log: log}, nil
}

// Lookup — GET /books/{isbn}.
func (c *Client) Lookup(ctx context.Context, isbn string) domain.Outcome {
	return c.call(ctx, http.MethodGet, isbn)
}

// Remove — DELETE /books/{isbn}; каталог возвращает удалённую книгу.
func (c *Client) Remove(ctx context.Context, isbn string) domain.Outcome {
	return c.call(ctx, http.MethodDelete, isbn)
}

func (c *Client) call(ctx context.Context, method, isbn string) domain.Outcome {
	start := time.Now()
	endpoint := c.base.JoinPath("books", url.PathEscape(isbn)).String()

	attempts := 0
	op := func() (domain.Book, error) {
		attempts++
		metrics.CatalogAttempts.WithLabelValues(method).Inc()
		return c.attempt(ctx, method, endpoint)
	}

	book, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.cfg.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warnf(ctx, "catalog %s %s: attempt %d failed: %v, retry in %s", method, isbn, attempts, err, next)
		}),
	)

	result := classify(ctx, err)
	metrics.CatalogRequests.WithLabelValues(method, result).Inc()
	metrics.CatalogDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if result == resultPresent {
		c.log.Infof(ctx, "catalog %s %s: present after %d attempt(s)", method, isbn, attempts)
		return domain.Present(book)
	}
	if result == resultExhausted {
		c.log.Warnf(ctx, "catalog %s %s: giving up after %d attempt(s): %v", method, isbn, attempts, err)
	} else {
		c.log.Infof(ctx, "catalog %s %s: %s after %d attempt(s)", method, isbn, result, attempts)
	}
	return domain.Absent()
}

// attempt — одна попытка под собственным таймаутом.
// 404, таймаут и отмена родительского контекста повторов не дают.
func (c *Client) attempt(ctx context.Context, method, endpoint string) (domain.Book, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, method, endpoint, http.NoBody)
	if err != nil {
		return domain.Book{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Book{}, c.attemptError(ctx, actx, fmt.Errorf("do request: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Book{}, backoff.Permanent(errNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.Book{}, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var book domain.Book
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&book); err != nil {
		return domain.Book{}, c.attemptError(ctx, actx, fmt.Errorf("%w: %v", errMalformedBody, err))
	}
	if book.ISBN == "" {
		return domain.Book{}, fmt.Errorf("%w: isbn is empty", errMalformedBody)
	}
	return book, nil
}

// attemptError отличает отмену вызывающего и истёкший таймаут попытки от обычного сбоя.
func (c *Client) attemptError(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return backoff.Permanent(parent.Err())
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return backoff.Permanent(fmt.Errorf("%w after %s", errTimeout, c.cfg.Timeout))
	}
	return err
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.InitialBackoff,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          c.cfg.BackoffFactor,
		MaxInterval:         backoff.DefaultMaxInterval,
	}
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return resultPresent
	case errors.Is(err, errNotFound):
		return resultNotFound
	case errors.Is(err, errTimeout):
		return resultTimeout
	case ctx.Err() != nil:
		return resultCanceled
	default:
		return resultExhausted
	}
}
