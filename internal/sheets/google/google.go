package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"painel/internal/core"
	ports "painel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Transacoes"
	DefaultRange     = "A:H"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	cellRange     string
}

// Ensure interface conformance
var _ ports.TransactionSource = (*Client)(nil)

// Options selects the spreadsheet range to read.
type Options struct {
	SpreadsheetID string
	SheetName     string
	Range         string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transacoes"), GOOGLE_SHEET_RANGE (default "A:H").
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; GOOGLE_API_KEY for link-shared sheets.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	authOpts, err := CredentialsFromEnv().ClientOptions(ctx)
	if err != nil {
		return nil, err
	}

	return New(ctx, Options{
		SpreadsheetID: spreadsheetID,
		SheetName:     os.Getenv("GOOGLE_SHEET_NAME"),
		Range:         os.Getenv("GOOGLE_SHEET_RANGE"),
	}, authOpts...)
}

// New creates a client from explicit options. Extra client options (endpoint,
// credentials) are passed through to the Sheets service.
func New(ctx context.Context, o Options, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(o.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	cellRange := strings.TrimSpace(o.Range)
	if cellRange == "" {
		cellRange = DefaultRange
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(o.SpreadsheetID),
		sheetName:     sheetName,
		cellRange:     cellRange,
	}, nil
}

// Credentials selects how the client authenticates. Service account
// credentials win over an API key.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	APIKey             string
}

// CredentialsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// (or GOOGLE_APPLICATION_CREDENTIALS) and GOOGLE_API_KEY.
func CredentialsFromEnv() Credentials {
	c := Credentials{
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		APIKey:             strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
	}
	if c.ServiceAccountJSON == "" && c.ServiceAccountFile == "" {
		c.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return c
}

// ClientOptions turns the credentials into Sheets client options.
func (c Credentials) ClientOptions(ctx context.Context) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case c.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(c.ServiceAccountJSON)
	case c.ServiceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", c.ServiceAccountFile)
		b, err := os.ReadFile(c.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	case c.APIKey != "":
		slog.InfoContext(ctx, "Using API key for a link-shared spreadsheet")
		return []goption.ClientOption{goption.WithAPIKey(c.APIKey)}, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_API_KEY)")
	}

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, nil
}

// ReadRange returns the A1 range the client reads.
func (c *Client) ReadRange() string {
	return fmt.Sprintf("%s!%s", c.sheetName, c.cellRange)
}

// ReadRows fetches the transaction sheet. Any API failure is returned as is;
// retrying is left to the caller.
func (c *Client) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := c.ReadRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := parseRows(resp.Values)
	slog.DebugContext(ctx, "Read transaction rows", "range", rng, "values", len(resp.Values), "rows", len(rows))
	return rows, nil
}
