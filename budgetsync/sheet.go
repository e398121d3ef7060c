package budgetsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
	"github.com/shopspring/decimal"
)

// Fixed column contract of the master sheet (range A2:Z2000):
// A=item number, B=client, C=description, D=amount, F=order number,
// H=status text, L=requester. The offsets are an external interface, they
// cannot be re-derived from the data.
const (
	colItemNumber  = 0
	colClient      = 1
	colDescription = 2
	colAmount      = 3
	colOrderNumber = 5
	colStatusText  = 7
	colRequester   = 11
)

// gvizClient fetches the master sheet through the public gviz feed. The feed
// wraps its JSON in a JS callback, so the payload has to be unwrapped before
// parsing.
type gvizClient struct {
	sheetID   string
	sheetName string
	http      *http.Client
}

func NewSheetSource(cfg Config) SheetSource {
	return &gvizClient{
		sheetID:   cfg.SheetID,
		sheetName: cfg.SheetName,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

var _ SheetSource = (*gvizClient)(nil)

type gvizTable struct {
	Table struct {
		Rows []struct {
			C []*SheetCell `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

func (c *gvizClient) FetchRows(ctx context.Context) ([]SheetRow, error) {
	if c.sheetID == "" {
		return nil, fmt.Errorf("sheet id is not configured")
	}

	endpoint := fmt.Sprintf(
		"https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:json&sheet=%s&range=A2:Z2000",
		c.sheetID,
		url.QueryEscape(c.sheetName),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gviz feed error %d", resp.StatusCode)
	}

	payload, err := UnwrapGviz(string(body))
	if err != nil {
		return nil, err
	}

	var parsed gvizTable
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("gviz payload: %w", err)
	}

	rows := make([]SheetRow, 0, len(parsed.Table.Rows))
	for _, r := range parsed.Table.Rows {
		rows = append(rows, SheetRow{Cells: r.C})
	}
	return rows, nil
}

// UnwrapGviz strips the JS callback wrapper from a gviz response by locating
// the first "(" and the last ")".
func UnwrapGviz(text string) ([]byte, error) {
	start := strings.Index(text, "(")
	end := strings.LastIndex(text, ")")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("gviz response is not callback-wrapped")
	}
	return []byte(text[start+1 : end]), nil
}

// cellString returns the trimmed string form of a cell value.
func (r SheetRow) cellString(i int) string {
	if i >= len(r.Cells) || r.Cells[i] == nil || r.Cells[i].V == nil {
		return ""
	}
	switch v := r.Cells[i].V.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// cellAmount parses a cell as a currency amount. gviz delivers numeric cells
// as typed floats; anything else goes through the pt-BR currency normalizer.
func (r SheetRow) cellAmount(i int) decimal.Decimal {
	if i >= len(r.Cells) || r.Cells[i] == nil || r.Cells[i].V == nil {
		return decimal.Zero
	}
	if f, ok := r.Cells[i].V.(float64); ok {
		return decimal.NewFromFloat(f)
	}
	return utils.ParseCurrency(r.cellString(i))
}

// ParseSheetRow maps one raw sheet row into a Budget candidate. The second
// return is false when the row must be skipped (client and description both
// blank). Candidates come out with an empty id; the merge assigns identity.
func ParseSheetRow(row SheetRow) (models.Budget, bool) {
	if len(row.Cells) < 3 {
		return models.Budget{}, false
	}

	client := row.cellString(colClient)
	desc := row.cellString(colDescription)
	if client == "" && desc == "" {
		return models.Budget{}, false
	}

	order := row.cellString(colOrderNumber)
	status := InferStatus(row.cellString(colStatusText), order)

	itemNumber, _ := strconv.Atoi(row.cellString(colItemNumber))

	requester := row.cellString(colRequester)
	if requester == "" {
		requester = RequesterSheets
	}

	if client == "" {
		client = models.ClientNameFallback
	}
	if desc == "" {
		desc = models.ClientNameFallback
	}

	return models.Budget{
		ID:                 "",
		ItemNumber:         itemNumber,
		Date:               utils.Today(), // the sheet has no date column
		ClientName:         client,
		ServiceDescription: desc,
		BudgetAmount:       row.cellAmount(colAmount),
		Discount:           decimal.Zero,
		Status:             status,
		OrderNumber:        order,
		OrderConfirmation:  status == models.BudgetStatusApproved,
		InvoiceSent:        false,
		SendToClient:       true,
		Requester:          requester,
		Files:              []models.AttachedFile{},
	}, true
}

// InferStatus derives a budget status from the free-text status column and
// the order-number column. Rejection keywords take precedence over approval
// signals; an order number longer than 2 characters counts as approval even
// without an approval keyword. The precedence is asymmetric on purpose — it
// mirrors how the master sheet is actually filled in.
func InferStatus(rawStatus string, orderNumber string) models.BudgetStatus {
	s := strings.ToLower(rawStatus)
	if strings.Contains(s, "não") || strings.Contains(s, "rejeitado") || strings.Contains(s, "recusado") {
		return models.BudgetStatusNotApproved
	}
	if strings.Contains(s, "aprovado") || strings.Contains(s, "fechado") || len(orderNumber) > 2 {
		return models.BudgetStatusApproved
	}
	return models.BudgetStatusPending
}

// ParseSheetRows maps a raw feed into Budget candidates, dropping skipped rows.
func ParseSheetRows(rows []SheetRow) []models.Budget {
	budgets := make([]models.Budget, 0, len(rows))
	for _, row := range rows {
		if b, ok := ParseSheetRow(row); ok {
			budgets = append(budgets, b)
		}
	}
	return budgets
}
