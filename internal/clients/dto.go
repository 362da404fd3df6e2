package clients

// CreateClientRequest creates a new client record.
type CreateClientRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	ContactName     string `json:"contact_name" validate:"max=120"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"max=40"`
	TaxID           string `json:"tax_id" validate:"max=40"`
	BillingAddress  string `json:"billing_address" validate:"max=500"`
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
}

// UpdateClientRequest mutates an existing client. Nil fields are left
// unchanged.
type UpdateClientRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactName     *string `json:"contact_name,omitempty" validate:"omitempty,max=120"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	TaxID           *string `json:"tax_id,omitempty" validate:"omitempty,max=40"`
	BillingAddress  *string `json:"billing_address,omitempty" validate:"omitempty,max=500"`
	ShippingAddress *string `json:"shipping_address,omitempty" validate:"omitempty,max=500"`
}

// ListClientsRequest filters the client list.
type ListClientsRequest struct {
	OwnerID *int64 `json:"owner_id,omitempty"`
	Search  string `json:"search,omitempty"`
	Limit   int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset  int    `json:"offset" validate:"gte=0"`
}
