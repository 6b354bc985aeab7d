package models

import "time"

// DeliveryRecord is an immutable fact that stock of a variant went to a customer.
type DeliveryRecord struct {
	ID                string    `json:"id"`
	VariantID         string    `json:"variantId"`
	Barcode           string    `json:"barcode"`
	CustomerName      string    `json:"customerName"`
	QuantityDelivered int       `json:"quantityDelivered"`
	DeliveryDate      time.Time `json:"deliveryDate"`
	DeliveredBy       string    `json:"deliveredBy"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DeliveryView is a delivery with its variant and acting user resolved at query time.
type DeliveryView struct {
	DeliveryRecord
	Variant InventoryVariant `json:"variant"`
	User    User             `json:"deliveredByUser"`
}
