package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	BudgetStatusPending     BudgetStatus = "PENDING"
	BudgetStatusApproved    BudgetStatus = "APPROVED"
	BudgetStatusNotApproved BudgetStatus = "NOT_APPROVED"
)

// ClientNameFallback is the sentinel used when a source row carries no
// resolvable client name.
const ClientNameFallback = "---"

// AttachedFile is a reference to a source document backing a budget,
// usually the Drive PDF the record was extracted from.
type AttachedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Budget is the canonical quote record tracked by the ledger. Records arrive
// from the master sheet, from Drive PDF extraction, or from manual entry;
// identity across sources is resolved by Fingerprint, not by ID.
type Budget struct {
	ID                 string          `json:"id"`
	ItemNumber         int             `json:"itemNumber,omitempty"`
	Date               string          `json:"date"`
	ClientName         string          `json:"clientName"`
	ServiceDescription string          `json:"serviceDescription"`
	BudgetAmount       decimal.Decimal `json:"budgetAmount"`
	Discount           decimal.Decimal `json:"discount"`
	Status             BudgetStatus    `json:"status"`
	OrderNumber        string          `json:"orderNumber"`
	OrderConfirmation  bool            `json:"orderConfirmation"`
	InvoiceSent        bool            `json:"invoiceSent"`
	SendToClient       bool            `json:"sendToClient"`
	Requester          string          `json:"requester"`
	Files              []AttachedFile  `json:"files"`
}

// NewBudget is the manual-entry payload. Unlike synced candidates, a form
// submission must name its client.
type NewBudget struct {
	ID                 string          `json:"id"`
	ItemNumber         int             `json:"itemNumber"`
	Date               string          `json:"date"`
	ClientName         string          `json:"clientName" binding:"required"`
	ServiceDescription string          `json:"serviceDescription"`
	BudgetAmount       decimal.Decimal `json:"budgetAmount"`
	Discount           decimal.Decimal `json:"discount"`
	Status             BudgetStatus    `json:"status"`
	OrderNumber        string          `json:"orderNumber"`
	OrderConfirmation  bool            `json:"orderConfirmation"`
	InvoiceSent        bool            `json:"invoiceSent"`
	SendToClient       bool            `json:"sendToClient"`
	Requester          string          `json:"requester"`
	Files              []AttachedFile  `json:"files"`
}

// ToBudget normalizes the payload into a ledger record.
func (nb NewBudget) ToBudget() Budget {
	date := strings.TrimSpace(nb.Date)
	if date == "" {
		date = utils.Today()
	}
	status := nb.Status
	if status == "" {
		status = BudgetStatusPending
	}
	return Budget{
		ID:                 nb.ID,
		ItemNumber:         nb.ItemNumber,
		Date:               date,
		ClientName:         strings.TrimSpace(nb.ClientName),
		ServiceDescription: strings.TrimSpace(nb.ServiceDescription),
		BudgetAmount:       nb.BudgetAmount,
		Discount:           nb.Discount,
		Status:             status,
		OrderNumber:        strings.TrimSpace(nb.OrderNumber),
		OrderConfirmation:  nb.OrderConfirmation,
		InvoiceSent:        nb.InvoiceSent,
		SendToClient:       nb.SendToClient,
		Requester:          nb.Requester,
		Files:              nb.Files,
	}
}

// NetAmount is the financial value of the record for all aggregates.
// Discount > BudgetAmount is not rejected anywhere, so this can go negative.
func (b Budget) NetAmount() decimal.Decimal {
	return b.BudgetAmount.Sub(b.Discount)
}

// prCodePattern captures PR followed by 4-5 digits, tolerating a space and a
// leading zero (PR1724, PR01724, PR 01724, pr 1724...).
var prCodePattern = regexp.MustCompile(`(?i)PR\s?0?(\d{4,5})`)

// ExtractPRCode finds a project reference code in free text and normalizes it
// to PR + 5-digit zero-padded number, e.g. "pr 1724" -> "PR01724". Returns ""
// when the text carries no PR code. The normalization is load-bearing: two
// differently formatted mentions of the same project must come out identical
// for deduplication to work.
func ExtractPRCode(s string) string {
	if s == "" {
		return ""
	}
	match := prCodePattern.FindStringSubmatch(s)
	if match == nil {
		return ""
	}
	num := match[1]
	for len(num) < 5 {
		num = "0" + num
	}
	return "PR" + num
}

// Fingerprint derives the identity key used by batch merge. The PR code from
// the service description wins when present; otherwise a lower-cased composite
// of date, client and amount. Two distinct budgets sharing date+client+amount
// with no PR code will collide on the composite — accepted limitation.
func (b Budget) Fingerprint() string {
	if pr := ExtractPRCode(b.ServiceDescription); pr != "" {
		return pr
	}
	return strings.ToLower(fmt.Sprintf("%s-%s-%s", b.Date, b.ClientName, b.BudgetAmount.String()))
}
