package budgetsync

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/config"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
	"github.com/sirupsen/logrus"
)

// LastSyncRedisKey stores the wall-clock time of the last completed pass.
const LastSyncRedisKey = "construcost:last_sync_time"

// Orchestrator drives one full sync pass: sheet rows into the ledger, then
// Drive PDFs for PR codes the ledger doesn't know yet, one extraction call at
// a time. There is no rollback and no cancellation; a stage failure is
// reported in the result while later stages still run against whatever the
// earlier ones persisted.
type Orchestrator struct {
	store     models.LedgerStore
	sheets    SheetSource
	files     FileSource
	extractor Extractor
	logger    *logrus.Logger
	cfg       Config

	mu       sync.Mutex
	running  bool
	progress Progress
}

func NewOrchestrator(store models.LedgerStore, sheets SheetSource, files FileSource, extractor Extractor, logger *logrus.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:     store,
		sheets:    sheets,
		files:     files,
		extractor: extractor,
		logger:    logger,
		cfg:       cfg,
	}
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

func (o *Orchestrator) setProgress(status string, current, total int) {
	o.mu.Lock()
	o.progress.Status = status
	o.progress.Current = current
	o.progress.Total = total
	o.mu.Unlock()
}

// Run executes one full pass. Only one pass may be active per process;
// concurrent calls get ErrSyncInProgress. Stage-level failures are collected
// into the result's Errors, shown once, end-of-pipeline.
func (o *Orchestrator) Run(ctx context.Context) (SyncResult, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return SyncResult{}, ErrSyncInProgress
	}
	o.running = true
	o.progress = Progress{Running: true}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.progress.Running = false
		o.mu.Unlock()
	}()

	var result SyncResult

	// Stage 1: master sheet.
	o.setProgress("Consultando planilha mestra", 0, 0)
	if err := o.syncSheet(ctx, &result); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("sheets: %v", err))
		config.LogError(o.logger, "worker.go", "Run", "syncSheet", nil, err)
	}

	// Stage 2+3: figure out which Drive PRs the ledger doesn't know yet.
	o.setProgress("Varrendo arquivos PDF no Drive", 0, 0)
	missing, err := o.missingDriveFiles(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("drive: %v", err))
		config.LogError(o.logger, "worker.go", "Run", "missingDriveFiles", nil, err)
	}
	result.DriveNewFiles = len(missing)

	// Stage 4: sequential extraction. One request in flight at a time to
	// bound load on the extraction service and keep progress meaningful.
	var candidates []models.Budget
	for i, file := range missing {
		o.setProgress(fmt.Sprintf("Processando IA: %s", file.PRCode), i+1, len(missing))

		candidate, err := o.processFile(ctx, file)
		if err != nil {
			// One bad PDF must not block the rest of the batch.
			config.LogError(o.logger, "worker.go", "Run", "processFile", file.Name, err)
			continue
		}
		candidates = append(candidates, candidate)
		result.DriveProcessed++
	}

	// Stage 5: one merge for the whole Drive batch.
	if len(candidates) > 0 {
		if err := o.store.BatchMerge(ctx, candidates); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("merge: %v", err))
			config.LogError(o.logger, "worker.go", "Run", "BatchMerge drive candidates", nil, err)
		}
	}

	// Best-effort bookkeeping; sync outcome does not depend on the cache.
	_ = config.SetRedisValue(LastSyncRedisKey, time.Now().Format(time.RFC3339), 0)

	o.setProgress("Concluído", result.DriveProcessed, len(missing))
	return result, nil
}

func (o *Orchestrator) syncSheet(ctx context.Context, result *SyncResult) error {
	rows, err := o.sheets.FetchRows(ctx)
	if err != nil {
		return err
	}

	incoming := ParseSheetRows(rows)
	result.SheetRows = len(incoming)

	// Added/updated counters, computed against the pre-merge ledger. PR
	// codes match when both sides have one; otherwise client+description+
	// date equality is the best available signal. Counters only — the merge
	// itself is fingerprint-driven.
	current := o.store.GetAll(ctx)
	for _, nb := range incoming {
		nbPR := models.ExtractPRCode(nb.ServiceDescription)
		exists := false
		for _, eb := range current {
			ebPR := models.ExtractPRCode(eb.ServiceDescription)
			if nbPR != "" && ebPR != "" {
				if nbPR == ebPR {
					exists = true
					break
				}
				continue
			}
			if eb.ClientName == nb.ClientName && eb.ServiceDescription == nb.ServiceDescription && eb.Date == nb.Date {
				exists = true
				break
			}
		}
		if exists {
			result.SheetUpdated++
		} else {
			result.SheetAdded++
		}
	}

	return o.store.BatchMerge(ctx, incoming)
}

// missingDriveFiles scans the file source and keeps only latest-revision
// files whose PR code is absent from the ledger.
func (o *Orchestrator) missingDriveFiles(ctx context.Context) ([]DriveFile, error) {
	budgets := o.store.GetAll(ctx)
	existingPRs := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		if pr := models.ExtractPRCode(b.ServiceDescription); pr != "" {
			existingPRs[pr] = true
		}
	}

	files, err := o.files.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	latest := LatestRevisionPerPR(files)
	missing := make([]DriveFile, 0, len(latest))
	for _, f := range latest {
		if !existingPRs[f.PRCode] {
			missing = append(missing, f)
		}
	}
	return missing, nil
}

func (o *Orchestrator) processFile(ctx context.Context, file DriveFile) (models.Budget, error) {
	content, err := o.files.Download(ctx, file.ID)
	if err != nil {
		return models.Budget{}, fmt.Errorf("download: %w", err)
	}

	// Archive a copy of the source document. Failure is logged, never fatal:
	// the ledger record stands on its own.
	if utils.GCSArchiveEnabled() {
		objectName := path.Join("drive-sync", file.PRCode, file.Name)
		if err := utils.ArchiveFileToGCS(ctx, objectName, content, file.MimeType); err != nil {
			config.LogError(o.logger, "worker.go", "processFile", "ArchiveFileToGCS", file.Name, err)
		}
	}

	extracted, err := o.extractor.Extract(ctx, file, content)
	if err != nil {
		return models.Budget{}, fmt.Errorf("extract: %w", err)
	}

	return BudgetFromExtraction(file, extracted), nil
}
