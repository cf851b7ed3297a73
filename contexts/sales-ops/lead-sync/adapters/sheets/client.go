package sheetsadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"leadsync/contexts/sales-ops/lead-sync/domain/services"
	"leadsync/contexts/sales-ops/lead-sync/ports"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw    = "RAW"
	valueRenderPlain = "FORMATTED_VALUE"
	dimensionRows    = "ROWS"
)

type Config struct {
	SpreadsheetID   string
	RangeName       string
	SheetID         int64
	CredentialsFile string
}

// Client reads and writes one A1 range of a spreadsheet.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
	rangeName     string
	sheetID       int64
	logger        *slog.Logger
}

// NewClient builds a Sheets client. Extra options take precedence over the
// credentials file, which lets tests point the client at a fake endpoint.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if strings.TrimSpace(cfg.RangeName) == "" {
		return nil, errors.New("range name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if len(opts) == 0 && strings.TrimSpace(cfg.CredentialsFile) != "" {
		credentials, err := credentialsOption(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, credentials)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		service:       service,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		rangeName:     strings.TrimSpace(cfg.RangeName),
		sheetID:       cfg.SheetID,
		logger:        logger,
	}, nil
}

func credentialsOption(ctx context.Context, path string) (option.ClientOption, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return option.WithTokenSource(jwt.TokenSource(ctx)), nil
}

func (c *Client) ReadAllRows(ctx context.Context) ([][]any, error) {
	resp, err := c.service.Spreadsheets.Values.
		Get(c.spreadsheetID, c.rangeName).
		ValueRenderOption(valueRenderPlain).
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.logError("sheet_read_failed", err)
	}
	rows := services.PadRows(resp.Values)
	if len(rows) > 0 {
		c.logger.Info("sheet read",
			"event", "sheet_read",
			"module", "sales-ops/lead-sync",
			"layer", "adapter",
			"range", c.rangeName,
			"columns", rows[0],
			"rows", len(rows)-1,
		)
	}
	return rows, nil
}

// WriteRows clears the configured range and writes rows from its top-left
// cell, so rows left over from a longer previous write disappear.
func (c *Client) WriteRows(ctx context.Context, rows [][]any) error {
	if _, err := c.service.Spreadsheets.Values.
		Clear(c.spreadsheetID, c.rangeName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return c.logError("sheet_clear_failed", err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, row)
	}
	resp, err := c.service.Spreadsheets.Values.
		Update(c.spreadsheetID, c.rangeName, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return c.logError("sheet_update_failed", err, "rows", len(rows))
	}
	c.logger.Info("sheet updated",
		"event", "sheet_updated",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"range", resp.UpdatedRange,
		"updated_cells", resp.UpdatedCells,
		"updated_rows", resp.UpdatedRows,
	)
	return nil
}

// DeleteRowsAt removes whole sheet rows in one batchUpdate. Requests run in
// order, so they are issued from the bottom up.
func (c *Client) DeleteRowsAt(ctx context.Context, positions []int) error {
	if len(positions) == 0 {
		return nil
	}
	ordered := append([]int(nil), positions...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	requests := make([]*sheets.Request, 0, len(ordered))
	for _, position := range ordered {
		if position < 1 {
			return fmt.Errorf("invalid sheet row %d", position)
		}
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    c.sheetID,
					Dimension:  dimensionRows,
					StartIndex: int64(position - 1),
					EndIndex:   int64(position),
					// Zero is a valid sheet id and row index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}

	if _, err := c.service.Spreadsheets.
		BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do(); err != nil {
		return c.logError("sheet_delete_rows_failed", err, "rows", len(ordered))
	}
	c.logger.Info("sheet rows deleted",
		"event", "sheet_rows_deleted",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"rows", ordered,
	)
	return nil
}

func (c *Client) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+10)
	fields = append(fields,
		"event", event,
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"spreadsheet_id", c.spreadsheetID,
		"error", err.Error(),
	)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		fields = append(fields, "status", apiErr.Code)
	}
	fields = append(fields, attrs...)
	c.logger.Error("sheet operation failed", fields...)
	return err
}

var _ ports.SheetStore = (*Client)(nil)
