package extraction

import "github.com/jonathan/inventory-sync/internal/llm"

// InventoryItemSchema describes the extraction output for the prompt builder
func InventoryItemSchema(description string) llm.ExtractionSchema {
	return llm.ExtractionSchema{
		Name:        "InventoryItems",
		Description: description,
		ListKey:     "items",
		Fields: []llm.SchemaField{
			{Name: "product_name", Required: true, Description: "Short name of the product, e.g. 'nRF5340 Audio DK' or 'ChatGPT Team Subscription'"},
			{Name: "category", Required: true, Enum: []string{"hardware", "software", "consumable", "equipment"}},
			{Name: "subcategory", Description: "Specific type, e.g. 'dev board', 'sensor', 'license_key', 'cloud_credits'"},
			{Name: "vendor", Description: "Vendor or supplier, e.g. DigiKey, Mouser, OpenAI, AWS"},
			{Name: "manufacturer_part_number", Description: "MPN for hardware; SKU or plan ID for software"},
			{Name: "quantity", Type: "integer", Description: "Units purchased or license seats; 1 if not stated"},
			{Name: "unit_price", Type: "number", Description: "Price per unit in USD"},
			{Name: "total_price", Type: "number", Description: "Total cost in USD"},
			{Name: "funding_source", Description: "Grant, gift fund or project code used"},
			{Name: "requester", Description: "Full name of the person requesting the item"},
			{Name: "pi_name", Description: "PI responsible for this expenditure"},
			{Name: "order_date", Description: "Date of purchase, YYYY-MM-DD"},
			{Name: "expiration_date", Description: "For software and licenses: expiry date, YYYY-MM-DD"},
			{Name: "billing_cycle", Enum: []string{"One-time", "Monthly", "Annual"}},
			{Name: "location_or_owner", Description: "Physical location or digital owner"},
		},
	}
}
