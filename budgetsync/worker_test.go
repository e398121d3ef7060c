package budgetsync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
)

type fakeSheetSource struct {
	rows []SheetRow
	err  error
}

func (f *fakeSheetSource) FetchRows(ctx context.Context) ([]SheetRow, error) {
	return f.rows, f.err
}

type fakeFileSource struct {
	files       []DriveFile
	listErr     error
	downloadErr map[string]error
}

func (f *fakeFileSource) ListFiles(ctx context.Context) ([]DriveFile, error) {
	return f.files, f.listErr
}

func (f *fakeFileSource) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err, ok := f.downloadErr[fileID]; ok {
		return nil, err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeExtractor struct {
	byFileID map[string]ExtractedBudget
	errIDs   map[string]bool
}

func (f *fakeExtractor) Extract(ctx context.Context, file DriveFile, content []byte) (ExtractedBudget, error) {
	if f.errIDs[file.ID] {
		return ExtractedBudget{}, errors.New("extraction failed")
	}
	return f.byFileID[file.ID], nil
}

func newTestOrchestrator(store models.LedgerStore, sheets SheetSource, files FileSource, ex Extractor) *Orchestrator {
	return NewOrchestrator(store, sheets, files, ex, config.GetLogger(), Config{})
}

func sheetRow(client, desc, status, order string) SheetRow {
	return SheetRow{Cells: []*SheetCell{
		nil,
		{V: client},
		{V: desc},
		{V: float64(1000)},
		nil,
		{V: order},
		nil,
		{V: status},
	}}
}

func TestRun_SheetBatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := models.NewMemoryLedgerStore()

	sheets := &fakeSheetSource{rows: []SheetRow{
		sheetRow("Alfa", "Projeto Elétrico PR1724", "Aprovado", ""),
		sheetRow("Beta", "Instalação de Drywall PR1800", "", ""),
		sheetRow("Gama", "Reforma PR1900", "Não aprovado", ""),
	}}
	files := &fakeFileSource{}
	orch := newTestOrchestrator(store, sheets, files, &fakeExtractor{})

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.SheetRows != 3 || result.SheetAdded != 3 || result.SheetUpdated != 0 {
		t.Fatalf("first pass counters wrong: %+v", result)
	}

	ledger := store.GetAll(ctx)
	if len(ledger) != 3 {
		t.Fatalf("expected 3 records, got %d", len(ledger))
	}
	byClient := map[string]models.Budget{}
	for _, b := range ledger {
		byClient[b.ClientName] = b
	}
	if byClient["Alfa"].Status != models.BudgetStatusApproved {
		t.Fatalf("Alfa must be approved, got %s", byClient["Alfa"].Status)
	}
	if byClient["Gama"].Status != models.BudgetStatusNotApproved {
		t.Fatalf("Gama must be rejected, got %s", byClient["Gama"].Status)
	}

	// Second pass over the same feed must update, never duplicate.
	result, err = orch.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.SheetAdded != 0 || result.SheetUpdated != 3 {
		t.Fatalf("second pass counters wrong: %+v", result)
	}
	if got := store.GetAll(ctx); len(got) != 3 {
		t.Fatalf("re-sync must keep 3 records, got %d", len(got))
	}
}

func TestRun_DriveFillsMissingPRs(t *testing.T) {
	ctx := context.Background()
	store := models.NewMemoryLedgerStore()

	// PR01724 is already in the ledger from a sheet row; only PR01800 is new.
	sheets := &fakeSheetSource{rows: []SheetRow{
		sheetRow("Alfa", "Projeto Elétrico PR1724", "Aprovado", ""),
	}}
	files := &fakeFileSource{files: []DriveFile{
		{ID: "f1", Name: "PR01724-rev02.pdf", WebViewLink: "https://drive/f1"},
		{ID: "f2", Name: "PR01800-rev01.pdf", WebViewLink: "https://drive/f2"},
	}}
	extractor := &fakeExtractor{byFileID: map[string]ExtractedBudget{
		"f2": {
			ClientName:   "Constructora Beta",
			BudgetAmount: json.Number("9800.50"),
			OrderNumber:  "PO-552",
		},
	}}

	orch := newTestOrchestrator(store, sheets, files, extractor)
	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DriveNewFiles != 1 || result.DriveProcessed != 1 {
		t.Fatalf("drive counters wrong: %+v", result)
	}

	ledger := store.GetAll(ctx)
	if len(ledger) != 2 {
		t.Fatalf("expected 2 records, got %d", len(ledger))
	}
	var fromDrive *models.Budget
	for i := range ledger {
		if ledger[i].Requester == RequesterDrive {
			fromDrive = &ledger[i]
		}
	}
	if fromDrive == nil {
		t.Fatal("expected a drive-sourced record")
	}
	if models.ExtractPRCode(fromDrive.ServiceDescription) != "PR01800" {
		t.Fatalf("drive record must carry its PR code: %q", fromDrive.ServiceDescription)
	}
	if fromDrive.Status != models.BudgetStatusApproved || !fromDrive.OrderConfirmation {
		t.Fatalf("order number must imply approval: %+v", fromDrive)
	}
	if len(fromDrive.Files) != 1 || fromDrive.Files[0].URL != "https://drive/f2" {
		t.Fatalf("drive record must attach its source file: %+v", fromDrive.Files)
	}
}

func TestRun_PerFileFailureDoesNotBlockBatch(t *testing.T) {
	ctx := context.Background()
	store := models.NewMemoryLedgerStore()

	files := &fakeFileSource{files: []DriveFile{
		{ID: "bad", Name: "PR01724.pdf"},
		{ID: "good", Name: "PR01800.pdf"},
	}}
	extractor := &fakeExtractor{
		errIDs: map[string]bool{"bad": true},
		byFileID: map[string]ExtractedBudget{
			"good": {ClientName: "Beta", BudgetAmount: json.Number("100")},
		},
	}

	orch := newTestOrchestrator(store, &fakeSheetSource{}, files, extractor)
	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.DriveNewFiles != 2 || result.DriveProcessed != 1 {
		t.Fatalf("expected one processed out of two, got %+v", result)
	}
	if got := store.GetAll(ctx); len(got) != 1 {
		t.Fatalf("good file must still land, got %d records", len(got))
	}
}

func TestRun_SheetFailureDoesNotBlockDrive(t *testing.T) {
	ctx := context.Background()
	store := models.NewMemoryLedgerStore()

	sheets := &fakeSheetSource{err: errors.New("feed unreachable")}
	files := &fakeFileSource{files: []DriveFile{{ID: "f1", Name: "PR01724.pdf"}}}
	extractor := &fakeExtractor{byFileID: map[string]ExtractedBudget{
		"f1": {ClientName: "Alfa", BudgetAmount: json.Number("500")},
	}}

	orch := newTestOrchestrator(store, sheets, files, extractor)
	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("sheet failure must be reported once, got %v", result.Errors)
	}
	if result.DriveProcessed != 1 {
		t.Fatalf("drive stage must still run, got %+v", result)
	}
	if got := store.GetAll(ctx); len(got) != 1 {
		t.Fatalf("expected drive record despite sheet failure, got %d", len(got))
	}
}

func TestRun_RejectsConcurrentPass(t *testing.T) {
	orch := newTestOrchestrator(models.NewMemoryLedgerStore(), &fakeSheetSource{}, &fakeFileSource{}, &fakeExtractor{})
	orch.mu.Lock()
	orch.running = true
	orch.mu.Unlock()

	if _, err := orch.Run(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestBudgetFromExtraction_Defaults(t *testing.T) {
	file := DriveFile{ID: "f1", Name: "PR01724-rev01.pdf", PRCode: "PR01724", WebViewLink: "https://drive/f1"}

	b := BudgetFromExtraction(file, ExtractedBudget{})
	if b.ClientName != "Cliente Detectado via Drive" {
		t.Fatalf("client fallback: got %q", b.ClientName)
	}
	if b.BudgetAmount.String() != "25500" {
		t.Fatalf("amount fallback: got %s", b.BudgetAmount.String())
	}
	if b.Requester != RequesterDrive {
		t.Fatalf("requester fallback: got %q", b.Requester)
	}
	if b.ServiceDescription != "PR01724 - PR01724-rev01.pdf" {
		t.Fatalf("description must be PR-prefixed: %q", b.ServiceDescription)
	}
	if b.Status != models.BudgetStatusPending || b.OrderConfirmation {
		t.Fatalf("no order number means pending: %+v", b)
	}

	b = BudgetFromExtraction(file, ExtractedBudget{
		ClientName:         "Alfa",
		ServiceDescription: "Projeto Elétrico",
		BudgetAmount:       json.Number("15200.5"),
		Date:               "05/03/24",
		OrderNumber:        "PO-1",
	})
	if b.ServiceDescription != "PR01724 - Projeto Elétrico" {
		t.Fatalf("description: got %q", b.ServiceDescription)
	}
	if b.Date != "2024-03-05" {
		t.Fatalf("date must be normalized, got %q", b.Date)
	}
	if b.Status != models.BudgetStatusApproved {
		t.Fatalf("order number must imply approval, got %s", b.Status)
	}
}
