// Package model defines the persisted entities of the marketplace and the
// JSON shapes the API returns.  Timestamps are Unix seconds throughout so
// rows, API responses and the public snapshot share one representation.
package model

// ListingStatus is the lifecycle state of a listing row.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingExpired ListingStatus = "expired"
	ListingDeleted ListingStatus = "deleted"
)

// ContactMode decides whether public contact fields are stored and exposed.
type ContactMode string

const (
	ContactBuyerMessage ContactMode = "buyer_message"
	ContactPublic       ContactMode = "public_contact"
)

// Listing is a bike posted for sale.  ImageKeys and ImageSizes are index
// aligned: ImageSizes[i] is the stored byte size of ImageKeys[i].
type Listing struct {
	ID                 string        `json:"listing_id"`
	SellerID           string        `json:"seller_id"`
	CreatedAt          int64         `json:"created_at"`
	ExpiresAt          int64         `json:"expires_at"`
	Status             ListingStatus `json:"status"`
	Rank               int64         `json:"rank"`
	PriceSEK           int64         `json:"price_sek"`
	Brand              string        `json:"brand"`
	Type               string        `json:"type"`
	Condition          string        `json:"condition"`
	WheelSizeIn        float64       `json:"wheel_size_in"`
	Features           []string      `json:"features"`
	Faults             []string      `json:"faults"`
	Location           string        `json:"location"`
	Description        *string       `json:"description"`
	DeliveryPossible   bool          `json:"delivery_possible"`
	DeliveryPriceSEK   *int64        `json:"delivery_price_sek"`
	ContactMode        ContactMode   `json:"contact_mode"`
	CurrencyMode       string        `json:"currency_mode"`
	PaymentMethods     []string      `json:"payment_methods"`
	PublicEmail        *string       `json:"public_email"`
	PublicPhone        *string       `json:"public_phone"`
	PublicPhoneMethods []string      `json:"public_phone_methods"`
	ImageKeys          []string      `json:"image_keys"`
	ImageSizes         []int64       `json:"image_sizes"`
	IPHash             *string       `json:"ip_hash,omitempty"`
	IPStoredAt         *int64        `json:"-"`
}

// Live reports whether the listing is active and not yet past expires_at.
func (l *Listing) Live(now int64) bool {
	return l.Status == ListingActive && l.ExpiresAt >= now
}

// ImageBytes sums the recorded sizes of all attached images.
func (l *Listing) ImageBytes() int64 {
	var n int64
	for _, s := range l.ImageSizes {
		n += s
	}
	return n
}

// ClearImages drops both image arrays together.
func (l *Listing) ClearImages() {
	l.ImageKeys = []string{}
	l.ImageSizes = []int64{}
}
