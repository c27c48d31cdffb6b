// Package extraction turns purchase mail bodies and PDF attachments into inventory items using an LLM.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonathan/inventory-sync/internal/llm"
	"github.com/jonathan/inventory-sync/internal/prompts"
	"github.com/jonathan/inventory-sync/internal/schemas"
	"github.com/jonathan/inventory-sync/internal/types"
)

const defaultQuantity = 1

// Extractor extracts inventory items with a single structured LLM call per message
type Extractor struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewExtractor creates an Extractor using the given client and model tier
func NewExtractor(client llm.Client, tier llm.ModelTier) *Extractor {
	if tier == "" {
		tier = llm.TierStandard
	}
	return &Extractor{client: client, tier: tier}
}

// response mirrors the JSON container returned by the model
type response struct {
	Items []responseItem `json:"items"`
}

// responseItem lets a null or absent quantity be told apart from zero
type responseItem struct {
	types.InventoryItem
	Quantity *int `json:"quantity"`
}

// Extract sends the body and attachments to the model and returns the validated items.
// A response that is not an items list is an error, never an empty result.
func (e *Extractor) Extract(ctx context.Context, body string, attachments []types.Attachment) ([]types.InventoryItem, error) {
	docs := documents(attachments)
	prompt := buildPrompt(body, len(docs))

	responseText, err := e.client.GenerateJSON(ctx, prompt, e.tier, docs...)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate content from LLM",
			Cause:   err,
		}
	}

	return parseResponse(responseText)
}

// buildPrompt constructs the extraction prompt for one message
func buildPrompt(body string, docCount int) string {
	description := prompts.Format(prompts.MustGet("extraction.json", "inventory-system"), map[string]string{
		"AttachmentCount": strconv.Itoa(docCount),
	})
	return llm.BuildExtractionPrompt(InventoryItemSchema(description), body)
}

// documents keeps the attachments that carry content. Missing MIME types are treated as PDF.
func documents(attachments []types.Attachment) []llm.Document {
	docs := make([]llm.Document, 0, len(attachments))
	for _, a := range attachments {
		if len(a.Content) == 0 {
			continue
		}
		mimeType := a.MIMEType
		if mimeType == "" {
			mimeType = "application/pdf"
		}
		docs = append(docs, llm.Document{MIMEType: mimeType, Data: a.Content})
	}
	return docs
}

// parseResponse validates the raw model output and converts it into items
func parseResponse(responseText string) ([]types.InventoryItem, error) {
	responseText = llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateInventoryResponse(responseText); err != nil {
		return nil, &ParseError{
			Message: "response does not match inventory schema",
			Cause:   err,
		}
	}

	var resp response
	if err := json.Unmarshal([]byte(responseText), &resp); err != nil {
		return nil, &ParseError{
			Message: "failed to parse JSON response",
			Cause:   err,
		}
	}

	items := make([]types.InventoryItem, 0, len(resp.Items))
	for i, raw := range resp.Items {
		item := raw.InventoryItem
		item.Quantity = defaultQuantity
		if raw.Quantity != nil {
			item.Quantity = *raw.Quantity
		}
		if err := item.Validate(); err != nil {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("items[%d]", i),
				Message: "extracted item failed validation",
				Cause:   err,
			}
		}
		items = append(items, item)
	}

	return items, nil
}
