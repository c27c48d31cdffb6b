// Package types provides type definitions for the data flowing between the mailbox, the extractor and the tabular store.
package types

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Category values accepted for InventoryItem.Category
const (
	CategoryHardware   = "hardware"
	CategorySoftware   = "software"
	CategoryConsumable = "consumable"
	CategoryEquipment  = "equipment"
)

// BillingCycle values accepted for InventoryItem.BillingCycle
const (
	BillingOneTime = "One-time"
	BillingMonthly = "Monthly"
	BillingAnnual  = "Annual"
)

// ItemColumns lists the item fields in the column order used by row-oriented sinks.
var ItemColumns = []string{
	"product_name",
	"category",
	"subcategory",
	"vendor",
	"manufacturer_part_number",
	"quantity",
	"unit_price",
	"total_price",
	"funding_source",
	"requester",
	"pi_name",
	"order_date",
	"expiration_date",
	"billing_cycle",
	"location_or_owner",
}

// InventoryItem represents one line item of the lab inventory, covering both
// hardware (components, tools) and software (licenses, SaaS).
type InventoryItem struct {
	// Core identity
	ProductName string  `json:"product_name" validate:"required"`
	Category    string  `json:"category" validate:"required,oneof=hardware software consumable equipment"`
	Subcategory *string `json:"subcategory,omitempty"`

	// Purchasing details
	Vendor                 *string  `json:"vendor,omitempty"`
	ManufacturerPartNumber *string  `json:"manufacturer_part_number,omitempty"`
	Quantity               int      `json:"quantity" validate:"gte=0"`
	UnitPrice              *float64 `json:"unit_price,omitempty"`
	TotalPrice             *float64 `json:"total_price,omitempty"`

	// Logistics and ownership
	FundingSource *string `json:"funding_source,omitempty"`
	Requester     *string `json:"requester,omitempty"`
	PIName        *string `json:"pi_name,omitempty"`
	OrderDate     *string `json:"order_date,omitempty"`

	// Lifecycle
	ExpirationDate  *string `json:"expiration_date,omitempty"`
	BillingCycle    *string `json:"billing_cycle,omitempty" validate:"omitempty,oneof=One-time Monthly Annual"`
	LocationOrOwner *string `json:"location_or_owner,omitempty"`
}

// Validate validates the InventoryItem using the validator.
func (i *InventoryItem) Validate() error {
	validate := validator.New()
	return validate.Struct(i)
}

// Row renders the item as a row in ItemColumns order. Absent values become empty strings.
func (i InventoryItem) Row() []any {
	return []any{
		i.ProductName,
		i.Category,
		str(i.Subcategory),
		str(i.Vendor),
		str(i.ManufacturerPartNumber),
		i.Quantity,
		num(i.UnitPrice),
		num(i.TotalPrice),
		str(i.FundingSource),
		str(i.Requester),
		str(i.PIName),
		str(i.OrderDate),
		str(i.ExpirationDate),
		str(i.BillingCycle),
		str(i.LocationOrOwner),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(f *float64) any {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
