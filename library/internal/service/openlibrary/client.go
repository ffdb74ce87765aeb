package openlibrary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/pkg/circuit_breaker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnavailable is the only error Search returns. The cause is logged.
var ErrUnavailable = errs.New(errs.ErrUpstream, "external catalog unavailable")

type Config struct {
	BaseURL   string        `envconfig:"OPENLIBRARY_URL" default:"https://openlibrary.org"`
	CoversURL string        `envconfig:"OPENLIBRARY_COVERS_URL" default:"https://covers.openlibrary.org"`
	Timeout   time.Duration `envconfig:"OPENLIBRARY_TIMEOUT" default:"10s"`
	Limit     int           `envconfig:"OPENLIBRARY_LIMIT" default:"10"`

	Breaker circuit_breaker.Settings
}

type searchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []doc `json:"docs"`
}

type doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	EditionKey       []string `json:"edition_key"`
	CoverI           int      `json:"cover_i"`
}

type Client struct {
	log     *zap.Logger
	client  *http.Client
	cfg     Config
	cb      circuit_breaker.CircuitBreaker
	baseURL string
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.Named("openlibrary")
	cfg.Breaker.OnStateChange = func(from, to circuit_breaker.Status) {
		log.Warn("circuit breaker", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	return &Client{
		log:     log,
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		cb:      circuit_breaker.New(cfg.Breaker),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Search queries /search.json. Any transport, status or decoding failure,
// and an open breaker, is reported as ErrUnavailable.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.ExternalBook, error) {
	if limit <= 0 {
		limit = c.cfg.Limit
	}
	var books []model.ExternalBook
	err := c.cb.Call(ctx, func(ctx context.Context) (err error) {
		books, err = c.search(ctx, query, limit)
		return err
	})
	if err != nil {
		c.log.Warn("search", zap.String("query", query),
			zap.Bool("breakerOpen", errors.Is(err, circuit_breaker.ErrOpenCB)), zap.Error(err))
		return nil, ErrUnavailable
	}
	return books, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]model.ExternalBook, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/search.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	books := make([]model.ExternalBook, 0, len(body.Docs))
	for _, d := range body.Docs {
		books = append(books, c.toBook(d))
	}
	return books, nil
}

func (c *Client) toBook(d doc) model.ExternalBook {
	b := model.ExternalBook{
		Title:       d.Title,
		Authors:     d.AuthorName,
		PublishYear: d.FirstPublishYear,
		ISBN:        d.ISBN,
		ExternalID:  strings.TrimPrefix(d.Key, "/works/"),
	}
	if len(d.EditionKey) > 0 && d.EditionKey[0] != "" {
		b.ExternalID = d.EditionKey[0]
	}
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.ISBN == nil {
		b.ISBN = []string{}
	}
	if d.CoverI > 0 {
		b.CoverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", strings.TrimRight(c.cfg.CoversURL, "/"), d.CoverI)
	}
	return b
}
