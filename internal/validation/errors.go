// Package validation normalizes and checks user input.  Every function here
// is pure: it never touches storage and returns either a clean value or the
// first rule that failed.
package validation

// Code identifies the rule that rejected an input.
type Code string

const (
	InvalidPrice                      Code = "invalid_price"
	InvalidBrand                      Code = "invalid_brand"
	InvalidType                       Code = "invalid_type"
	InvalidCondition                  Code = "invalid_condition"
	WheelSizeRequired                 Code = "wheel_size_required"
	InvalidWheelSize                  Code = "invalid_wheel_size"
	InvalidLocation                   Code = "invalid_location"
	DescriptionTooLong                Code = "description_too_long"
	InvalidContactMode                Code = "invalid_contact_mode"
	InvalidFeatures                   Code = "invalid_features"
	InvalidFaults                     Code = "invalid_faults"
	InvalidCurrencyOption             Code = "invalid_currency_option"
	InvalidPaymentMethod              Code = "invalid_payment_method"
	InvalidContactMethod              Code = "invalid_contact_method"
	PublicContactRequiresEmailOrPhone Code = "public_contact_requires_email_or_phone"
	InvalidPublicEmail                Code = "invalid_public_email"
	InvalidPublicPhone                Code = "invalid_public_phone"
	DeliveryPriceRequired             Code = "delivery_price_required"
	ProvideEmailOrPhone               Code = "provide_email_or_phone"
	InvalidEmail                      Code = "invalid_email"
	InvalidPhone                      Code = "invalid_phone"
	MessageRequired                   Code = "message_required"
	ReasonRequired                    Code = "reason_required"
	DetailsTooLong                    Code = "details_too_long"
)

var messages = map[Code]string{
	InvalidPrice:                      "Invalid price.",
	InvalidBrand:                      "Invalid brand.",
	InvalidType:                       "Invalid type.",
	InvalidCondition:                  "Invalid condition.",
	WheelSizeRequired:                 "Wheel size is required.",
	InvalidWheelSize:                  "Invalid wheel size.",
	InvalidLocation:                   "Invalid location.",
	DescriptionTooLong:                "Description is too long.",
	InvalidContactMode:                "Invalid contact mode.",
	InvalidFeatures:                   "Invalid features.",
	InvalidFaults:                     "Invalid faults.",
	InvalidCurrencyOption:             "Invalid currency option.",
	InvalidPaymentMethod:              "Invalid payment method.",
	InvalidContactMethod:              "Invalid contact method.",
	PublicContactRequiresEmailOrPhone: "Public contact requires email or phone.",
	InvalidPublicEmail:                "Invalid public email.",
	InvalidPublicPhone:                "Invalid public phone.",
	DeliveryPriceRequired:             "Delivery price is required.",
	ProvideEmailOrPhone:               "Provide email or phone.",
	InvalidEmail:                      "Invalid email.",
	InvalidPhone:                      "Invalid phone.",
	MessageRequired:                   "Message is required.",
	ReasonRequired:                    "Reason is required.",
	DetailsTooLong:                    "Details too long.",
}

// Error is a rejected input.  Message is safe to show to the caller.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(c Code) *Error {
	return &Error{Code: c, Message: messages[c]}
}
