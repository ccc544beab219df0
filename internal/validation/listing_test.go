package validation

import (
	"errors"
	"testing"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/model"
)

func validInput() ListingInput {
	return ListingInput{
		PriceSEK:         "1499.6",
		Brand:            "  Crescent ",
		Type:             "City",
		Condition:        "Good",
		WheelSizeIn:      "28",
		Location:         "Södermalm",
		Description:      "",
		ContactMode:      "buyer_message",
		Features:         []string{"Gears", "Bell"},
		Faults:           []string{"Worn tires"},
		PaymentMethods:   []string{"swish"},
		DeliveryPossible: "no",
		DeliveryPriceSEK: "100",
	}
}

func codeOf(t *testing.T, err error) Code {
	t.Helper()
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a *validation.Error", err)
	}
	return ve.Code
}

func TestListingNormalizes(t *testing.T) {
	got, err := Listing(validInput(), config.DefaultLimits())
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if got.PriceSEK != 1500 {
		t.Errorf("PriceSEK = %d, want 1500", got.PriceSEK)
	}
	if got.Brand != "Crescent" {
		t.Errorf("Brand = %q, want trimmed", got.Brand)
	}
	if got.Description != nil {
		t.Errorf("Description = %q, want nil for blank", *got.Description)
	}
	if got.DeliveryPossible || got.DeliveryPriceSEK != nil {
		t.Errorf("delivery = %v/%v, want false/nil", got.DeliveryPossible, got.DeliveryPriceSEK)
	}
	if got.CurrencyMode != DefaultCurrencyMode {
		t.Errorf("CurrencyMode = %q, want default", got.CurrencyMode)
	}
	if len(got.PublicPhoneMethods) != 0 {
		t.Errorf("PublicPhoneMethods = %v, want empty", got.PublicPhoneMethods)
	}
}

func TestListingDeliveryPriceRounded(t *testing.T) {
	in := validInput()
	in.DeliveryPossible = "TRUE"
	in.DeliveryPriceSEK = "49.5"
	got, err := Listing(in, config.DefaultLimits())
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if !got.DeliveryPossible || got.DeliveryPriceSEK == nil || *got.DeliveryPriceSEK != 50 {
		t.Fatalf("delivery = %v/%v, want true/50", got.DeliveryPossible, got.DeliveryPriceSEK)
	}
}

func TestListingPublicContact(t *testing.T) {
	in := validInput()
	in.ContactMode = "public_contact"
	in.PublicPhone = "+46 70-123 45 67"
	in.PublicPhoneMethods = []string{"sms", "whatsapp"}
	got, err := Listing(in, config.DefaultLimits())
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if got.ContactMode != model.ContactPublic || got.PublicPhone == nil || got.PublicEmail != nil {
		t.Fatalf("unexpected contact fields: %+v", got)
	}
	if len(got.PublicPhoneMethods) != 2 {
		t.Fatalf("PublicPhoneMethods = %v", got.PublicPhoneMethods)
	}
}

func TestListingBuyerMessageDropsPublicFields(t *testing.T) {
	in := validInput()
	in.PublicEmail = "seller@example.com"
	in.PublicPhone = "0701234567"
	got, err := Listing(in, config.DefaultLimits())
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if got.PublicEmail != nil || got.PublicPhone != nil {
		t.Fatalf("public fields kept for buyer_message: %+v", got)
	}
}

func TestListingRules(t *testing.T) {
	long := func(n int) string {
		b := make([]rune, n)
		for i := range b {
			b[i] = 'å'
		}
		return string(b)
	}
	cases := []struct {
		name   string
		mutate func(*ListingInput)
		want   Code
	}{
		{"blank price", func(in *ListingInput) { in.PriceSEK = "" }, InvalidPrice},
		{"negative price", func(in *ListingInput) { in.PriceSEK = "-1" }, InvalidPrice},
		{"text price", func(in *ListingInput) { in.PriceSEK = "cheap" }, InvalidPrice},
		{"infinite price", func(in *ListingInput) { in.PriceSEK = "Inf" }, InvalidPrice},
		{"blank brand", func(in *ListingInput) { in.Brand = "   " }, InvalidBrand},
		{"long brand", func(in *ListingInput) { in.Brand = long(41) }, InvalidBrand},
		{"unknown type", func(in *ListingInput) { in.Type = "Tandem" }, InvalidType},
		{"unknown condition", func(in *ListingInput) { in.Condition = "Mint" }, InvalidCondition},
		{"missing wheel", func(in *ListingInput) { in.WheelSizeIn = "" }, WheelSizeRequired},
		{"small wheel", func(in *ListingInput) { in.WheelSizeIn = "9.9" }, InvalidWheelSize},
		{"large wheel", func(in *ListingInput) { in.WheelSizeIn = "37" }, InvalidWheelSize},
		{"long location", func(in *ListingInput) { in.Location = long(26) }, InvalidLocation},
		{"long description", func(in *ListingInput) { in.Description = long(151) }, DescriptionTooLong},
		{"contact mode", func(in *ListingInput) { in.ContactMode = "email" }, InvalidContactMode},
		{"feature", func(in *ListingInput) { in.Features = []string{"Gears", "Jetpack"} }, InvalidFeatures},
		{"fault", func(in *ListingInput) { in.Faults = []string{"Missing wheel"} }, InvalidFaults},
		{"currency", func(in *ListingInput) { in.CurrencyMode = "usd_only" }, InvalidCurrencyOption},
		{"payment", func(in *ListingInput) { in.PaymentMethods = []string{"swish", "bitcoin"} }, InvalidPaymentMethod},
		{"phone method", func(in *ListingInput) { in.PublicPhoneMethods = []string{"fax"} }, InvalidContactMethod},
		{"public contact empty", func(in *ListingInput) { in.ContactMode = "public_contact" }, PublicContactRequiresEmailOrPhone},
		{"public email", func(in *ListingInput) {
			in.ContactMode = "public_contact"
			in.PublicEmail = "seller at example"
		}, InvalidPublicEmail},
		{"public email whitespace", func(in *ListingInput) {
			in.ContactMode = "public_contact"
			in.PublicEmail = "sel ler@example.com"
		}, InvalidPublicEmail},
		{"public phone", func(in *ListingInput) {
			in.ContactMode = "public_contact"
			in.PublicPhone = "12ab"
		}, InvalidPublicPhone},
		{"delivery price missing", func(in *ListingInput) {
			in.DeliveryPossible = "yes"
			in.DeliveryPriceSEK = ""
		}, DeliveryPriceRequired},
		{"delivery price negative", func(in *ListingInput) {
			in.DeliveryPossible = "1"
			in.DeliveryPriceSEK = "-5"
		}, DeliveryPriceRequired},
		// The earlier rule wins when several are broken.
		{"first failure wins", func(in *ListingInput) {
			in.Type = "Tandem"
			in.Condition = "Mint"
		}, InvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := Listing(in, config.DefaultLimits())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := codeOf(t, err); got != tc.want {
				t.Fatalf("code = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestListingErrorMessages(t *testing.T) {
	in := validInput()
	in.WheelSizeIn = ""
	_, err := Listing(in, config.DefaultLimits())
	if err == nil || err.Error() != "Wheel size is required." {
		t.Fatalf("err = %v", err)
	}
}

func TestPrice(t *testing.T) {
	if p, err := Price(" 250.4 "); err != nil || p != 250 {
		t.Fatalf("Price = %d, %v", p, err)
	}
	if _, err := Price("-1"); codeOf(t, err) != InvalidPrice {
		t.Fatalf("negative price accepted")
	}
}
