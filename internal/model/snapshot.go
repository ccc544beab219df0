package model

// Snapshot is the public document listing every live listing.
type Snapshot struct {
	GeneratedAt int64           `json:"generated_at"`
	Listings    []PublicListing `json:"listings"`
}

// PublicListing is the public projection of a Listing.  Contact fields are
// only present for listings in public_contact mode.
type PublicListing struct {
	ID                 string      `json:"listing_id"`
	CreatedAt          int64       `json:"created_at"`
	ExpiresAt          int64       `json:"expires_at"`
	Rank               int64       `json:"rank"`
	PriceSEK           int64       `json:"price_sek"`
	Brand              string      `json:"brand"`
	Type               string      `json:"type"`
	Condition          string      `json:"condition"`
	WheelSizeIn        float64     `json:"wheel_size_in"`
	Features           []string    `json:"features"`
	Faults             []string    `json:"faults"`
	Location           string      `json:"location"`
	Description        *string     `json:"description"`
	DeliveryPossible   bool        `json:"delivery_possible"`
	DeliveryPriceSEK   *int64      `json:"delivery_price_sek"`
	ContactMode        ContactMode `json:"contact_mode"`
	CurrencyMode       string      `json:"currency_mode"`
	PaymentMethods     []string    `json:"payment_methods"`
	PublicEmail        *string     `json:"public_email,omitempty"`
	PublicPhone        *string     `json:"public_phone,omitempty"`
	PublicPhoneMethods []string    `json:"public_phone_methods,omitempty"`
	ImageURLs          []string    `json:"image_urls"`
}
