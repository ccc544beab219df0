package model

// BuyerContact is a message a buyer left for the seller of a listing.
type BuyerContact struct {
	ID                string   `json:"contact_id"`
	ListingID         string   `json:"listing_id"`
	CreatedAt         int64    `json:"created_at"`
	ExpiresAt         int64    `json:"expires_at"`
	BuyerEmail        *string  `json:"buyer_email"`
	BuyerPhone        *string  `json:"buyer_phone"`
	BuyerPhoneMethods []string `json:"buyer_phone_methods"`
	Message           string   `json:"message"`
	IPHash            *string  `json:"ip_hash,omitempty"`
	IPStoredAt        *int64   `json:"-"`
}
