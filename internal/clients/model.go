package clients

import "time"

// Client is a billable customer record owned by a user.
type Client struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	Name            string    `json:"name"`
	ContactName     string    `json:"contact_name,omitempty"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	TaxID           string    `json:"tax_id,omitempty"`
	BillingAddress  string    `json:"billing_address,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
