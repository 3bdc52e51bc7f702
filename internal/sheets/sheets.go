// Package sheets appends ledger writes to a Google Sheets audit spreadsheet.
// The sheet is an append-only mirror for the treasurer's review; the SQLite
// ledger stays the source of truth.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kanisa/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth, in order of precedence: a service account
// (GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE), a user OAuth
// token minted by oauth-init (GOOGLE_OAUTH_CLIENT_JSON/FILE plus
// GOOGLE_OAUTH_TOKEN_JSON/FILE), or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Contributions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Contributions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); creds != "" {
		return gsheet.NewService(ctx,
			goption.WithScopes(gsheet.SpreadsheetsScope),
			goption.WithCredentialsJSON([]byte(creds)))
	}
	if file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")); file != "" {
		return gsheet.NewService(ctx,
			goption.WithScopes(gsheet.SpreadsheetsScope),
			goption.WithCredentialsFile(file))
	}

	if client, err := oauthHTTPClient(ctx); err != nil {
		return nil, err
	} else if client != nil {
		return gsheet.NewService(ctx, goption.WithHTTPClient(client))
	}

	if file := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); file != "" {
		return gsheet.NewService(ctx,
			goption.WithScopes(gsheet.SpreadsheetsScope),
			goption.WithCredentialsFile(file))
	}

	return nil, errors.New("no Google credentials configured")
}

// oauthHTTPClient builds an HTTP client from a user OAuth token, the flow
// bootstrapped by the oauth-init command. Returns (nil, nil) when no OAuth
// client is configured so the caller can fall through to other auth methods.
func oauthHTTPClient(ctx context.Context) (*http.Client, error) {
	clientConfig, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil || clientConfig == nil {
		return nil, err
	}

	cfg, err := google.ConfigFromJSON(clientConfig, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client config: %w", err)
	}

	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("OAuth client configured but no token found, run oauth-init first")
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	return cfg.Client(ctx, &token), nil
}

// readEnvJSON reads a JSON blob from either an inline env var or a file path
// env var. Returns nil bytes when neither is set.
func readEnvJSON(jsonVar, fileVar string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(jsonVar)); inline != "" {
		return []byte(inline), nil
	}
	if file := strings.TrimSpace(os.Getenv(fileVar)); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileVar, err)
		}
		return data, nil
	}
	return nil, nil
}

// AppendRecord appends one contribution row to the mirror.
func (c *Client) AppendRecord(ctx context.Context, entry core.Contribution) error {
	row := []any{
		entry.ID,
		entry.PaymentDate.Format("2006-01-02"),
		entry.ScopeName,
		entry.DisplayContributor(),
		entry.Amount.String(),
		string(entry.Currency),
		entry.NormalizedAmount.String(),
		entry.PaymentMethod,
		entry.Reference,
		entry.Notes,
	}
	return c.append(ctx, row)
}

// AppendVoid appends a VOID marker for a deleted entry. The mirror stays
// append-only so its history matches the audit trail operators expect.
func (c *Client) AppendVoid(ctx context.Context, id string) error {
	return c.append(ctx, []any{id, "", "", "", "", "", "", "", "", "VOID"})
}

func (c *Client) append(ctx context.Context, row []any) error {
	valueRange := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:J", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}
