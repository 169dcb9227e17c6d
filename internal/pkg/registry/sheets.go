package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/madaniagency/licensee-checkout/internal/pkg/env"
)

const defaultSheetName = "Licensee Info"

// Registry sheet columns: A licensee id, B membership id, C account count,
// D full name. Row 1 is a header.
const sheetRange = "!A:D"

// SheetsLookup reads the licensee registry from a Google spreadsheet using a
// service account with read-only scope.
type SheetsLookup struct {
	SpreadsheetID string
	SheetName     string

	svc *sheets.Service
}

// NewSheetsLookupFromEnv builds the Sheets client from service-account
// credentials in the environment.
func NewSheetsLookupFromEnv(ctx context.Context) (*SheetsLookup, error) {
	clientEmail := strings.TrimSpace(env.GetEnv("GOOGLE_SHEETS_CLIENT_EMAIL", ""))
	// .env files carry the key with literal \n sequences.
	privateKey := strings.ReplaceAll(env.GetEnv("GOOGLE_SHEETS_PRIVATE_KEY", ""), `\n`, "\n")
	spreadsheetID := strings.TrimSpace(env.GetEnv("LICENSEE_SHEET_ID", ""))

	if clientEmail == "" || strings.TrimSpace(privateKey) == "" {
		return nil, errors.New("GOOGLE_SHEETS_CLIENT_EMAIL/GOOGLE_SHEETS_PRIVATE_KEY are not configured")
	}
	if spreadsheetID == "" {
		return nil, errors.New("LICENSEE_SHEET_ID is not configured")
	}

	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{sheets.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets client init failed: %w", err)
	}

	return &SheetsLookup{
		SpreadsheetID: spreadsheetID,
		SheetName:     env.GetEnv("LICENSEE_SHEET_NAME", defaultSheetName),
		svc:           svc,
	}, nil
}

func (l *SheetsLookup) GetLicensee(ctx context.Context, licenseeID string) (*LicenseeRecord, error) {
	id := strings.TrimSpace(licenseeID)
	if id == "" {
		return nil, errors.New("licensee id is required")
	}

	resp, err := l.svc.Spreadsheets.Values.
		Get(l.SpreadsheetID, l.SheetName+sheetRange).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == 403 || gerr.Code == 401) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, gerr.Message)
		}
		return nil, fmt.Errorf("registry read failed: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, errors.New("registry sheet is empty")
	}

	return matchLicenseeRow(resp.Values, id)
}

// matchLicenseeRow scans the sheet rows for the licensee id, skipping the
// header row. The id comparison is trimmed and case-insensitive to survive
// hand-edited spreadsheet data.
func matchLicenseeRow(rows [][]interface{}, licenseeID string) (*LicenseeRecord, error) {
	want := strings.ToLower(strings.TrimSpace(licenseeID))

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(cellString(row, 0))
		if id == "" || strings.ToLower(id) != want {
			continue
		}

		membershipID := strings.TrimSpace(cellString(row, 1))
		if membershipID == "" {
			return nil, fmt.Errorf("registry row %d has no membership id for licensee %s", i+1, licenseeID)
		}

		countStr := strings.TrimSpace(cellString(row, 2))
		count, err := strconv.Atoi(countStr)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("registry row %d has an invalid account count %q for licensee %s", i+1, countStr, licenseeID)
		}

		return &LicenseeRecord{
			LicenseeID:   id,
			MembershipID: membershipID,
			AccountCount: count,
			FullName:     strings.TrimSpace(cellString(row, 3)),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrLicenseeNotFound, licenseeID)
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	if s, ok := row[idx].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", row[idx])
}
