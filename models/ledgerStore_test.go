package models

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMergeBudgets_IdempotentForSameBatch(t *testing.T) {
	incoming := []Budget{
		{ClientName: "Alfa", ServiceDescription: "PR01724 - Drywall", BudgetAmount: decimal.NewFromInt(1000), Date: "2025-01-01"},
		{ClientName: "Beta", ServiceDescription: "PR01800 - Elétrica", BudgetAmount: decimal.NewFromInt(2000), Date: "2025-01-02"},
	}

	once := MergeBudgets(nil, incoming)
	twice := MergeBudgets(once, incoming)

	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("expected 2 records after each merge, got %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("ids must be stable across re-merges: %q vs %q", once[i].ID, twice[i].ID)
		}
	}
}

func TestMergeBudgets_FieldOverwriteKeepsSingleRecord(t *testing.T) {
	first := []Budget{{ClientName: "A", ServiceDescription: "PR01724", Date: "2025-01-01"}}
	second := []Budget{{ClientName: "B", ServiceDescription: "PR01724", Date: "2025-01-01"}}

	ledger := MergeBudgets(MergeBudgets(nil, first), second)

	if len(ledger) != 1 {
		t.Fatalf("expected one record, got %d", len(ledger))
	}
	if ledger[0].ClientName != "B" {
		t.Fatalf("last merged must win, got clientName %q", ledger[0].ClientName)
	}
	if ledger[0].ID == "" {
		t.Fatal("merged record must keep an assigned id")
	}
}

func TestMergeBudgets_PreservesExistingIDOnMatch(t *testing.T) {
	current := []Budget{{ID: "stable-id", ServiceDescription: "PR01724", ClientName: "A"}}
	incoming := []Budget{{ServiceDescription: "pr 1724 rev02", ClientName: "A updated"}}

	ledger := MergeBudgets(current, incoming)

	if len(ledger) != 1 {
		t.Fatalf("expected one record, got %d", len(ledger))
	}
	if ledger[0].ID != "stable-id" {
		t.Fatalf("existing id must be preserved, got %q", ledger[0].ID)
	}
	if ledger[0].ClientName != "A updated" {
		t.Fatalf("incoming fields must overlay, got %q", ledger[0].ClientName)
	}
}

func TestMergeBudgets_AssignsIDsToLegacyRecords(t *testing.T) {
	current := []Budget{{ServiceDescription: "PR09999", ClientName: "Legacy"}}
	ledger := MergeBudgets(current, nil)
	if len(ledger) != 1 || ledger[0].ID == "" {
		t.Fatalf("legacy record must get an id, got %+v", ledger)
	}
}

func TestMergeBudgets_AbsentFieldsKeepStoredValues(t *testing.T) {
	current := []Budget{{
		ID:                 "id-1",
		ItemNumber:         830,
		ServiceDescription: "PR01724",
		Files:              []AttachedFile{{ID: "f1", Name: "PR01724-rev01.pdf"}},
	}}

	// A Drive candidate never carries a sheet item number and always carries
	// its own attachment; a sheet row carries an item number and an empty
	// (non-nil) files slice that clobbers.
	driveIncoming := []Budget{{ServiceDescription: "PR01724 - extraído", Files: []AttachedFile{{ID: "f2"}}}}
	ledger := MergeBudgets(current, driveIncoming)
	if ledger[0].ItemNumber != 830 {
		t.Fatalf("zero item number must keep stored value, got %d", ledger[0].ItemNumber)
	}
	if len(ledger[0].Files) != 1 || ledger[0].Files[0].ID != "f2" {
		t.Fatalf("non-nil files must overwrite, got %+v", ledger[0].Files)
	}

	sheetIncoming := []Budget{{ItemNumber: 831, ServiceDescription: "PR01724", Files: []AttachedFile{}}}
	ledger = MergeBudgets(ledger, sheetIncoming)
	if len(ledger[0].Files) != 0 {
		t.Fatalf("empty non-nil files slice must clobber, got %+v", ledger[0].Files)
	}

	formUpdate := []Budget{{ServiceDescription: "PR01724", ClientName: "Edited"}}
	ledger = MergeBudgets(ledger, formUpdate)
	if ledger[0].ItemNumber != 831 {
		t.Fatalf("nil-files/zero-item incoming must keep stored item number, got %d", ledger[0].ItemNumber)
	}
}

func TestSortBudgetsForDisplay(t *testing.T) {
	numbered := []Budget{
		{ItemNumber: 828, Date: "2025-01-01"},
		{ItemNumber: 830, Date: "2025-01-03"},
		{ItemNumber: 829, Date: "2025-01-02"},
	}
	SortBudgetsForDisplay(numbered)
	if numbered[0].ItemNumber != 830 || numbered[2].ItemNumber != 828 {
		t.Fatalf("expected 830,829,828 order, got %+v", numbered)
	}

	mixed := []Budget{
		{Date: "2025-01-01", ItemNumber: 900},
		{Date: "2025-03-01"},
		{Date: "2025-02-01"},
	}
	SortBudgetsForDisplay(mixed)
	if mixed[0].Date != "2025-03-01" || mixed[2].Date != "2025-01-01" {
		t.Fatalf("expected date-descending order when not all numbered, got %+v", mixed)
	}
}

func TestMemoryLedgerStore_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	saved, err := store.Upsert(ctx, Budget{ClientName: "Alfa", Date: "2025-01-01"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("Upsert must assign an id")
	}

	saved.ClientName = "Alfa Editada"
	if _, err := store.Upsert(ctx, saved); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	all := store.GetAll(ctx)
	if len(all) != 1 || all[0].ClientName != "Alfa Editada" {
		t.Fatalf("expected in-place replace, got %+v", all)
	}

	if err := store.Delete(ctx, "missing-id"); err != nil {
		t.Fatalf("Delete of absent id must be a no-op, got %v", err)
	}
	if err := store.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := store.GetAll(ctx); len(got) != 0 {
		t.Fatalf("expected empty ledger after delete, got %+v", got)
	}
}

func TestMemoryLedgerStore_Settings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	defaults := store.GetSettings(ctx)
	if !defaults.EmailNotifications {
		t.Fatal("default settings must enable email notifications")
	}

	defaults.AutoSync = true
	if err := store.SaveSettings(ctx, defaults); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if !store.GetSettings(ctx).AutoSync {
		t.Fatal("saved settings must round-trip")
	}
}
