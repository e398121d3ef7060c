package budgetsync

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// ErrSyncInProgress is returned by Run when a sync pass is already active.
// There is deliberately no queueing and no cancellation: one pass at a time,
// driven to completion.
var ErrSyncInProgress = errors.New("sync already in progress")

// Provenance tags recorded on synced budgets.
const (
	RequesterSheets = "Google Sheets"
	RequesterDrive  = "Monitoramento Drive"
)

// SheetCell mirrors one gviz cell: a typed value plus an optional formatted
// string ("R$ 1.234,56" style).
type SheetCell struct {
	V interface{} `json:"v"`
	F string      `json:"f"`
}

// SheetRow is one raw row from the master sheet feed. Cells may be nil.
type SheetRow struct {
	Cells []*SheetCell
}

// DriveFile is one candidate quote document from the file source.
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	WebViewLink  string `json:"webViewLink"`
	ModifiedTime string `json:"modifiedTime"`
	PRCode       string `json:"prCode,omitempty"`
	Revision     int    `json:"revision"`
}

// ExtractedBudget is the best-effort result of document extraction. Every
// field may be absent; zero values count as absent and are filled in by
// BudgetFromExtraction, never at call sites.
type ExtractedBudget struct {
	ClientName         string      `json:"clientName,omitempty"`
	ServiceDescription string      `json:"serviceDescription,omitempty"`
	BudgetAmount       json.Number `json:"budgetAmount,omitempty"`
	Date               string      `json:"date,omitempty"`
	Discount           json.Number `json:"discount,omitempty"`
	Requester          string      `json:"requester,omitempty"`
	OrderNumber        string      `json:"orderNumber,omitempty"`
}

// SheetSource is the master spreadsheet feed.
type SheetSource interface {
	FetchRows(ctx context.Context) ([]SheetRow, error)
}

// FileSource lists candidate quote documents and retrieves their content.
type FileSource interface {
	ListFiles(ctx context.Context) ([]DriveFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Extractor turns document bytes into structured budget fields. Opaque:
// failures are per-file and never abort the batch.
type Extractor interface {
	Extract(ctx context.Context, file DriveFile, content []byte) (ExtractedBudget, error)
}

// Config carries the source addresses for a sync pass. Explicit value, not
// ambient lookup: the orchestrator receives it at construction.
type Config struct {
	SheetID       string
	SheetName     string
	DriveFolderID string
	GoogleAPIKey  string
	GeminiAPIKey  string
	GeminiModel   string
}

// ConfigFromEnv builds a Config from the environment.
// Required for real syncs: GOOGLE_SHEET_ID, DRIVE_FOLDER_ID, GOOGLE_API_KEY.
// Optional: SHEET_NAME (default "CONTROLE DE ORÇAMENTOS"), GEMINI_API_KEY
// (falls back to GOOGLE_API_KEY), GEMINI_MODEL (default "gemini-1.5-flash").
func ConfigFromEnv() Config {
	cfg := Config{
		SheetID:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_ID")),
		SheetName:     strings.TrimSpace(os.Getenv("SHEET_NAME")),
		DriveFolderID: strings.TrimSpace(os.Getenv("DRIVE_FOLDER_ID")),
		GoogleAPIKey:  strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "CONTROLE DE ORÇAMENTOS"
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = cfg.GoogleAPIKey
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-1.5-flash"
	}
	return cfg
}

// SyncResult reports one full sync pass. Stage failures land in Errors and do
// not undo progress persisted by earlier stages.
type SyncResult struct {
	SheetRows      int      `json:"sheetRows"`
	SheetAdded     int      `json:"sheetAdded"`
	SheetUpdated   int      `json:"sheetUpdated"`
	DriveNewFiles  int      `json:"driveNewFiles"`
	DriveProcessed int      `json:"driveProcessed"`
	Errors         []string `json:"errors,omitempty"`
}

// Progress is the UI-facing state of the running (or last) sync pass.
type Progress struct {
	Running bool   `json:"running"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}
