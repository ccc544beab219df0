package validation

import (
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/model"
)

// ListingInput is the raw listing field set as submitted.  Multi-select
// fields arrive already decoded from their JSON array encoding.
type ListingInput struct {
	PriceSEK           string
	Brand              string
	Type               string
	Condition          string
	WheelSizeIn        string
	Location           string
	Description        string
	ContactMode        string
	Features           []string
	Faults             []string
	CurrencyMode       string
	PaymentMethods     []string
	PublicEmail        string
	PublicPhone        string
	PublicPhoneMethods []string
	DeliveryPossible   string
	DeliveryPriceSEK   string
}

// ListingFields is a validated, normalized listing field set.
type ListingFields struct {
	PriceSEK           int64
	Brand              string
	Type               string
	Condition          string
	WheelSizeIn        float64
	Features           []string
	Faults             []string
	Location           string
	Description        *string
	DeliveryPossible   bool
	DeliveryPriceSEK   *int64
	ContactMode        model.ContactMode
	CurrencyMode       string
	PaymentMethods     []string
	PublicEmail        *string
	PublicPhone        *string
	PublicPhoneMethods []string
}

// Apply copies the normalized fields onto l, leaving identity, lifecycle
// and image fields untouched.
func (f ListingFields) Apply(l *model.Listing) {
	l.PriceSEK = f.PriceSEK
	l.Brand = f.Brand
	l.Type = f.Type
	l.Condition = f.Condition
	l.WheelSizeIn = f.WheelSizeIn
	l.Features = f.Features
	l.Faults = f.Faults
	l.Location = f.Location
	l.Description = f.Description
	l.DeliveryPossible = f.DeliveryPossible
	l.DeliveryPriceSEK = f.DeliveryPriceSEK
	l.ContactMode = f.ContactMode
	l.CurrencyMode = f.CurrencyMode
	l.PaymentMethods = f.PaymentMethods
	l.PublicEmail = f.PublicEmail
	l.PublicPhone = f.PublicPhone
	l.PublicPhoneMethods = f.PublicPhoneMethods
}

const (
	minWheelSize = 10
	maxWheelSize = 36
)

// Listing checks in against the rules below in a fixed order and returns
// the first failure.  The order is part of the user facing contract.
func Listing(in ListingInput, lim config.Limits) (ListingFields, error) {
	var out ListingFields

	price, ok := ParseNumber(in.PriceSEK)
	if !ok || price < 0 {
		return out, fail(InvalidPrice)
	}

	brand := strings.TrimSpace(in.Brand)
	if brand == "" || textLen(brand) > lim.BrandMax {
		return out, fail(InvalidBrand)
	}
	if !typeSet.Has(in.Type) {
		return out, fail(InvalidType)
	}
	if !conditionSet.Has(in.Condition) {
		return out, fail(InvalidCondition)
	}

	wheel, ok := ParseNumber(in.WheelSizeIn)
	if !ok {
		return out, fail(WheelSizeRequired)
	}
	if wheel < minWheelSize || wheel > maxWheelSize {
		return out, fail(InvalidWheelSize)
	}

	location := strings.TrimSpace(in.Location)
	if location == "" || textLen(location) > lim.LocationMax {
		return out, fail(InvalidLocation)
	}
	description := strings.TrimSpace(in.Description)
	if textLen(description) > lim.DescriptionMax {
		return out, fail(DescriptionTooLong)
	}
	if !contactModeSet.Has(in.ContactMode) {
		return out, fail(InvalidContactMode)
	}

	features := nonNil(in.Features)
	if !featureSet.All(features) {
		return out, fail(InvalidFeatures)
	}
	faults := nonNil(in.Faults)
	if !faultSet.All(faults) {
		return out, fail(InvalidFaults)
	}

	currency := in.CurrencyMode
	if currency == "" {
		currency = DefaultCurrencyMode
	}
	if !currencySet.Has(currency) {
		return out, fail(InvalidCurrencyOption)
	}
	payments := nonNil(in.PaymentMethods)
	if !paymentSet.All(payments) {
		return out, fail(InvalidPaymentMethod)
	}
	phoneMethods := nonNil(in.PublicPhoneMethods)
	if !contactMethodSet.All(phoneMethods) {
		return out, fail(InvalidContactMethod)
	}

	mode := model.ContactMode(in.ContactMode)
	email := strings.TrimSpace(in.PublicEmail)
	phone := strings.TrimSpace(in.PublicPhone)
	if mode == model.ContactPublic {
		if email == "" && phone == "" {
			return out, fail(PublicContactRequiresEmailOrPhone)
		}
		if email != "" && !ValidEmail(email) {
			return out, fail(InvalidPublicEmail)
		}
		if phone != "" && !ValidPhone(phone) {
			return out, fail(InvalidPublicPhone)
		}
	} else {
		// Public contact fields are never stored for buyer_message listings.
		email, phone = "", ""
	}

	delivery := parseFlag(in.DeliveryPossible)
	var deliveryPrice *int64
	if delivery {
		dp, ok := ParseNumber(in.DeliveryPriceSEK)
		if !ok || dp < 0 {
			return out, fail(DeliveryPriceRequired)
		}
		rounded := roundSEK(dp)
		deliveryPrice = &rounded
	}

	if phone == "" {
		phoneMethods = []string{}
	}

	return ListingFields{
		PriceSEK:           roundSEK(price),
		Brand:              brand,
		Type:               in.Type,
		Condition:          in.Condition,
		WheelSizeIn:        wheel,
		Features:           features,
		Faults:             faults,
		Location:           location,
		Description:        optional(description),
		DeliveryPossible:   delivery,
		DeliveryPriceSEK:   deliveryPrice,
		ContactMode:        mode,
		CurrencyMode:       currency,
		PaymentMethods:     payments,
		PublicEmail:        optional(email),
		PublicPhone:        optional(phone),
		PublicPhoneMethods: phoneMethods,
	}, nil
}

// Price validates a standalone price update.
func Price(raw string) (int64, error) {
	p, ok := ParseNumber(raw)
	if !ok || p < 0 {
		return 0, fail(InvalidPrice)
	}
	return roundSEK(p), nil
}

// parseFlag accepts yes, true and 1 in any case; anything else is false.
func parseFlag(raw string) bool {
	switch strings.ToLower(raw) {
	case "yes", "true", "1":
		return true
	}
	return false
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
