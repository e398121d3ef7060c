package models

import "context"

// MemoryLedgerStore keeps the ledger in process memory. Used by tests and by
// the sync-once tool's dry-run mode. Same single-writer assumption as the
// persistent store.
type MemoryLedgerStore struct {
	budgets  []Budget
	settings *AppSettings
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{}
}

var _ LedgerStore = (*MemoryLedgerStore)(nil)

func (s *MemoryLedgerStore) GetAll(ctx context.Context) []Budget {
	out := make([]Budget, len(s.budgets))
	copy(out, s.budgets)
	SortBudgetsForDisplay(out)
	return out
}

func (s *MemoryLedgerStore) Upsert(ctx context.Context, b Budget) (Budget, error) {
	if b.ID != "" {
		for i := range s.budgets {
			if s.budgets[i].ID == b.ID {
				s.budgets[i] = b
				return b, nil
			}
		}
	}
	if b.ID == "" {
		b.ID = NewBudgetID()
	}
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *MemoryLedgerStore) Delete(ctx context.Context, id string) error {
	kept := s.budgets[:0]
	for _, b := range s.budgets {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	s.budgets = kept
	return nil
}

func (s *MemoryLedgerStore) BatchMerge(ctx context.Context, incoming []Budget) error {
	s.budgets = MergeBudgets(s.budgets, incoming)
	return nil
}

func (s *MemoryLedgerStore) GetSettings(ctx context.Context) AppSettings {
	if s.settings == nil {
		return DefaultAppSettings()
	}
	return *s.settings
}

func (s *MemoryLedgerStore) SaveSettings(ctx context.Context, settings AppSettings) error {
	s.settings = &settings
	return nil
}
