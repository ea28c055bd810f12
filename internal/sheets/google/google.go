// Package google reads bank statement ranges from a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/log"
	ports "financas/internal/sheets"
)

const (
	DefaultRange         = "Extrato!A:C"
	DefaultCacheDuration = 5 * time.Minute
)

type fetchFunc func(ctx context.Context, rangeA1 string) ([][]interface{}, error)

type Client struct {
	spreadsheetID string
	defaultRange  string
	fetch         fetchFunc
	rows          *cache.Cache
	logger        *log.Logger
}

var _ ports.StatementReader = (*Client)(nil)

// New creates a client authenticated with service account credentials taken from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS. Responses are cached per range for cacheFor.
func New(ctx context.Context, spreadsheetID, defaultRange string, cacheFor time.Duration) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	fetch := func(ctx context.Context, rangeA1 string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rangeA1).
			ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return newClient(spreadsheetID, defaultRange, cacheFor, fetch), nil
}

func newClient(spreadsheetID, defaultRange string, cacheFor time.Duration, fetch fetchFunc) *Client {
	if strings.TrimSpace(defaultRange) == "" {
		defaultRange = DefaultRange
	}
	if cacheFor <= 0 {
		cacheFor = DefaultCacheDuration
	}
	return &Client{
		spreadsheetID: spreadsheetID,
		defaultRange:  defaultRange,
		fetch:         fetch,
		rows:          cache.New(cacheFor, 2*cacheFor),
		logger:        log.For(log.ComponentSheets),
	}
}

// newSheetsService initializes a read-only Sheets service from service account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case inline != "":
		credentials = []byte(inline)
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ReadStatement returns the values of rangeA1 (or the default range), served from
// cache while fresh.
func (c *Client) ReadStatement(ctx context.Context, rangeA1 string) ([][]interface{}, error) {
	if c.fetch == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(rangeA1) == "" {
		rangeA1 = c.defaultRange
	}
	if cached, found := c.rows.Get(rangeA1); found {
		c.logger.DebugContext(ctx, "Statement range served from cache", "range", rangeA1)
		return cached.([][]interface{}), nil
	}

	values, err := c.fetch(ctx, rangeA1)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rangeA1, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ports.ErrRangeNotFound, rangeA1)
	}
	c.rows.Set(rangeA1, values, cache.DefaultExpiration)
	c.logger.InfoContext(ctx, "Statement range read", "range", rangeA1, log.FieldCount, len(values))
	return values, nil
}

// InvalidateCache drops every cached range.
func (c *Client) InvalidateCache() {
	c.rows.Flush()
}
