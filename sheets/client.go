package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// MajorDimension decides whether values are laid out by rows or by columns
type MajorDimension string

const (
	Rows    MajorDimension = "ROWS"
	Columns MajorDimension = "COLUMNS"
)

// Range is an A1 range on a named sheet
type Range struct {
	SheetName string
	StartCell string
	EndCell   string // optional
}

// String renders the range as 'Sheet'!A1 or 'Sheet'!A1:B2. Quotes in the
// sheet name are doubled.
func (r Range) String() string {
	name := strings.ReplaceAll(r.SheetName, "'", "''")
	if r.EndCell != "" {
		return fmt.Sprintf("'%s'!%s:%s", name, r.StartCell, r.EndCell)
	}
	return fmt.Sprintf("'%s'!%s", name, r.StartCell)
}

type ReadRequest struct {
	SpreadsheetID  string
	Range          Range
	MajorDimension MajorDimension
}

type ReadResponse struct {
	Values    [][]string
	Range     string
	Timestamp time.Time
}

type WriteRequest struct {
	SpreadsheetID  string
	Range          Range
	Values         [][]string
	MajorDimension MajorDimension
}

type WriteResponse struct {
	UpdatedRange   string
	UpdatedRows    int64
	UpdatedColumns int64
	UpdatedCells   int64
	Timestamp      time.Time
}

// Client reads and writes cell values through the Sheets v4 API
type Client struct {
	service *sheetsapi.Service
}

// NewClient creates a client. Credentials and endpoint come from opts,
// e.g. option.WithCredentialsFile.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{service: service}, nil
}

// Read returns the values in a range. Trailing empty rows and cells are
// omitted by the API, so rows may be ragged.
func (c *Client) Read(ctx context.Context, req ReadRequest) (*ReadResponse, error) {
	resp, err := c.service.Spreadsheets.Values.Get(req.SpreadsheetID, req.Range.String()).
		MajorDimension(string(dimensionOrRows(req.MajorDimension))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", req.Range, err)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			values[i][j] = fmt.Sprint(cell)
		}
	}
	return &ReadResponse{
		Values:    values,
		Range:     resp.Range,
		Timestamp: time.Now(),
	}, nil
}

// Write overwrites a range with raw values
func (c *Client) Write(ctx context.Context, req WriteRequest) (*WriteResponse, error) {
	values := make([][]interface{}, len(req.Values))
	for i, row := range req.Values {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	body := &sheetsapi.ValueRange{
		Values:         values,
		MajorDimension: string(dimensionOrRows(req.MajorDimension)),
	}
	resp, err := c.service.Spreadsheets.Values.Update(req.SpreadsheetID, req.Range.String(), body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", req.Range, err)
	}

	return &WriteResponse{
		UpdatedRange:   resp.UpdatedRange,
		UpdatedRows:    resp.UpdatedRows,
		UpdatedColumns: resp.UpdatedColumns,
		UpdatedCells:   resp.UpdatedCells,
		Timestamp:      time.Now(),
	}, nil
}

func dimensionOrRows(d MajorDimension) MajorDimension {
	if d == "" {
		return Rows
	}
	return d
}
