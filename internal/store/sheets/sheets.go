// Package sheets reads ledgers from a Google Spreadsheet. It is read-only:
// the service runs without a writer when this backend is selected.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"klarity/internal/store"
)

const (
	DefaultTransactionsSheet = "Transactions"
	DefaultCategoriesSheet   = "Categories"
)

type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	CategoriesSheet   string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	categoriesSheet   string
}

var _ store.LedgerFetcher = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	c := &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(cfg.SpreadsheetID),
		transactionsSheet: strings.TrimSpace(cfg.TransactionsSheet),
		categoriesSheet:   strings.TrimSpace(cfg.CategoriesSheet),
	}
	if c.transactionsSheet == "" {
		c.transactionsSheet = DefaultTransactionsSheet
	}
	if c.categoriesSheet == "" {
		c.categoriesSheet = DefaultCategoriesSheet
	}
	return c
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// FetchLedger reads both tabs concurrently.
func (c *Client) FetchLedger(ctx context.Context, userID string) (store.RawLedger, error) {
	raw := store.RawLedger{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := c.readTab(gctx, c.categoriesSheet, userID)
		raw.Categories = recs
		return err
	})
	g.Go(func() error {
		recs, err := c.readTab(gctx, c.transactionsSheet, userID)
		raw.Transactions = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return store.RawLedger{}, err
	}
	return raw, nil
}

func (c *Client) readTab(ctx context.Context, tab, userID string) ([]store.Record, error) {
	op := "read " + tab
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, classify(op, err)
	}
	return parseRows(tab, resp.Values, userID), nil
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return store.NewError(store.AuthExpired, op, err)
		case http.StatusBadRequest:
			return store.NewError(store.Malformed, op, err)
		case http.StatusNotFound:
			return store.NewError(store.NotFound, op, err)
		}
	}
	return store.NewError(store.Unreachable, op, err)
}
