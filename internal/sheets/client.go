// Package sheets stores inventory rows and processed message ids in a Google
// spreadsheet. Both use append-only writes.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Value input options of the Sheets append call
const (
	InputRaw          = "RAW"
	InputUserEntered  = "USER_ENTERED"
	insertRows        = "INSERT_ROWS"
	DefaultItemsRange = "Sheet1!A2:O"
	// DefaultProcessedRange skips the header row of the processed_ids tab
	DefaultProcessedRange = "processed_ids!A2:A"
)

// valuesAPI is the subset of the spreadsheet values API used by this package
type valuesAPI interface {
	Get(ctx context.Context, readRange string) ([][]any, error)
	Append(ctx context.Context, appendRange string, rows [][]any, inputOption string) error
}

// NewService creates a Sheets service authorized by a service account key file
func NewService(ctx context.Context, serviceAccountFile string) (*sheets.Service, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(serviceAccountFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return srv, nil
}

// Values reads and appends cell values of one spreadsheet
type Values struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewValues binds a service to a spreadsheet
func NewValues(srv *sheets.Service, spreadsheetID string) (*Values, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	return &Values{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// Get returns the rows of readRange. Trailing empty rows are not returned by the API.
func (v *Values) Get(ctx context.Context, readRange string) ([][]any, error) {
	resp, err := v.srv.Spreadsheets.Values.Get(v.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}
	return resp.Values, nil
}

// Append inserts rows after the last row of the table in appendRange, in one request
func (v *Values) Append(ctx context.Context, appendRange string, rows [][]any, inputOption string) error {
	_, err := v.srv.Spreadsheets.Values.Append(v.spreadsheetID, appendRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption(inputOption).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), appendRange, err)
	}
	return nil
}
