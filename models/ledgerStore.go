package models

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// LedgerStore is the persisted collection of Budget records plus the app
// settings blob. The reconciliation algorithm is independent of the storage
// medium; implementations only load and persist whole values.
//
// Not safe for concurrent writers: the design assumes a single active sync or
// edit operation at a time. Concurrent BatchMerge/Upsert calls against shared
// storage can clobber each other's writes.
type LedgerStore interface {
	// GetAll returns the ledger sorted for display. Missing or corrupt
	// underlying storage degrades to an empty slice, never an error.
	GetAll(ctx context.Context) []Budget

	// Upsert replaces the record matching b.ID, or assigns a fresh ID and
	// appends. Persists synchronously before returning.
	Upsert(ctx context.Context, b Budget) (Budget, error)

	// Delete removes the record with the given id. No-op when absent.
	Delete(ctx context.Context, id string) error

	// BatchMerge reconciles a batch of incoming records into the ledger
	// by fingerprint. See MergeBudgets for the algorithm.
	BatchMerge(ctx context.Context, incoming []Budget) error

	GetSettings(ctx context.Context) AppSettings
	SaveSettings(ctx context.Context, s AppSettings) error
}

// NewBudgetID generates a ledger id. Opaque, unique, never reassigned.
func NewBudgetID() string {
	return uuid.NewString()
}

// MergeBudgets folds a batch of incoming records (possibly without ids) into
// the current ledger and returns the new ledger state. Shared by every store
// implementation so the reconciliation semantics cannot drift between them.
//
//  1. Current records keep their position; legacy records without an id get
//     one assigned.
//  2. Each incoming record is matched against the working set by fingerprint
//     (linear scan — O(incoming x current); fine at the hundreds-of-records
//     scale this targets, revisit before pointing it at anything bigger).
//  3. On a match the incoming fields overlay the stored record and the stored
//     id is preserved. Last merged wins: a later pass can overwrite a
//     previously set field with blank data from a staler source.
//  4. No match: fresh id, appended.
//
// Two fields overlay differently because sources omit them rather than blank
// them: a zero ItemNumber keeps the stored one (Drive candidates never carry
// sheet item numbers) and a nil Files slice keeps the stored attachments (an
// empty non-nil slice does clobber, matching the sheet parser's output).
func MergeBudgets(current []Budget, incoming []Budget) []Budget {
	working := make([]Budget, len(current))
	copy(working, current)
	for i := range working {
		if working[i].ID == "" {
			working[i].ID = NewBudgetID()
		}
	}

	for _, nb := range incoming {
		nbFingerprint := nb.Fingerprint()

		matched := -1
		for i := range working {
			if working[i].Fingerprint() == nbFingerprint {
				matched = i
				break
			}
		}

		if matched >= 0 {
			existing := working[matched]
			merged := nb
			merged.ID = existing.ID
			if merged.ItemNumber == 0 {
				merged.ItemNumber = existing.ItemNumber
			}
			if merged.Files == nil {
				merged.Files = existing.Files
			}
			working[matched] = merged
		} else {
			nb.ID = NewBudgetID()
			working = append(working, nb)
		}
	}

	return working
}

// SortBudgetsForDisplay orders the ledger descending by recency: by item
// number when every record carries one (the master sheet numbering, 830, 829,
// 828...), otherwise by date.
func SortBudgetsForDisplay(budgets []Budget) {
	allNumbered := len(budgets) > 0
	for _, b := range budgets {
		if b.ItemNumber == 0 {
			allNumbered = false
			break
		}
	}

	sort.SliceStable(budgets, func(i, j int) bool {
		if allNumbered {
			return budgets[i].ItemNumber > budgets[j].ItemNumber
		}
		if budgets[i].Date != budgets[j].Date {
			return budgets[i].Date > budgets[j].Date
		}
		return budgets[i].ItemNumber > budgets[j].ItemNumber
	})
}
