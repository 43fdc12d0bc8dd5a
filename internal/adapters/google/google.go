package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"farmledger/internal/ports"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column layout of the expenses sheet. Row 1 holds the header.
var header = []interface{}{"id", "title", "amount", "category", "date", "description", "payment_method"}

const lastColumn = "G"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes read-modify-write sequences on the sheet
	mu sync.Mutex

	// id -> 1-based row number, refreshed from the sheet when expired
	rowIndex           map[string]int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var (
	_ ports.ExpenseStore  = (*Client)(nil)
	_ ports.ExpenseMirror = (*Client)(nil)
	_ ports.HealthChecker = (*Client)(nil)
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME (default
// "Expenses") and the service account from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Expenses"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: 30 * time.Second,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) rng(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

func (c *Client) ready() error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return nil
}

// Ping reads the header row.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A1:"+lastColumn+"1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	return nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A1:"+lastColumn+"1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng("A1:"+lastColumn+"1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A:"+lastColumn)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheetName, err)
	}
	return resp.Values, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]ports.Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	records, index := parseRows(values)

	c.mu.Lock()
	c.rowIndex = index
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	ports.SortRecords(records)
	return records, nil
}

func (c *Client) CreateExpense(ctx context.Context, r ports.Record) (ports.Record, error) {
	if err := c.ready(); err != nil {
		return ports.Record{}, err
	}
	r.ID = uuid.NewString()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.appendRow(ctx, r); err != nil {
		return ports.Record{}, err
	}
	r.CreatedAt = time.Now()
	return r, nil
}

func (c *Client) UpdateExpense(ctx context.Context, r ports.Record) (ports.Record, error) {
	if err := c.ready(); err != nil {
		return ports.Record{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	row, err := c.findRow(ctx, r.ID)
	if err != nil {
		return ports.Record{}, fmt.Errorf("update expense %s: %w", r.ID, err)
	}
	if err := c.writeRow(ctx, row, r); err != nil {
		return ports.Record{}, err
	}
	return r, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	row, err := c.findRow(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row, c.sheetName, err)
	}
	c.invalidateRowCache()
	return nil
}

// UpsertExpense writes r under its own id, appending when the id is new.
func (c *Client) UpsertExpense(ctx context.Context, r ports.Record) error {
	if err := c.ready(); err != nil {
		return err
	}
	if r.ID == "" {
		return errors.New("upsert requires an id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	row, err := c.findRow(ctx, r.ID)
	if errors.Is(err, ports.ErrNotFound) {
		return c.appendRow(ctx, r)
	}
	if err != nil {
		return err
	}
	return c.writeRow(ctx, row, r)
}

// ReplaceAll rewrites the sheet with the header followed by records.
func (c *Client) ReplaceAll(ctx context.Context, records []ports.Record) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rng("A:"+lastColumn), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.sheetName, err)
	}
	values := make([][]interface{}, 0, len(records)+1)
	values = append(values, header)
	for _, r := range records {
		values = append(values, recordRow(r))
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng(fmt.Sprintf("A1:%s%d", lastColumn, len(values))), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", c.sheetName, err)
	}
	c.invalidateRowCache()
	return nil
}

func (c *Client) appendRow(ctx context.Context, r ports.Record) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{recordRow(r)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:"+lastColumn), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	c.invalidateRowCache()
	return nil
}

func (c *Client) writeRow(ctx context.Context, row int, r ports.Record) error {
	vr := &gsheet.ValueRange{Values: [][]interface{}{recordRow(r)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng(fmt.Sprintf("A%d:%s%d", row, lastColumn, row)), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d of %s: %w", row, c.sheetName, err)
	}
	return nil
}

// findRow returns the 1-based row holding id. Callers hold c.mu.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	if c.rowIndex == nil || !time.Now().Before(c.cacheExpiresAt) {
		values, err := c.readAll(ctx)
		if err != nil {
			return 0, err
		}
		_, c.rowIndex = parseRows(values)
		c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	}
	row, ok := c.rowIndex[id]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return row, nil
}

func (c *Client) invalidateRowCache() {
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
