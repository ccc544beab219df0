package validation

import (
	"strings"

	"github.com/iliyamo/bike-marketplace/internal/config"
)

// ContactInput is a buyer's message form.
type ContactInput struct {
	BuyerEmail        string
	BuyerPhone        string
	BuyerPhoneMethods []string
	Message           string
}

// ContactFields is a validated buyer message.
type ContactFields struct {
	BuyerEmail        *string
	BuyerPhone        *string
	BuyerPhoneMethods []string
	Message           string
}

// BuyerContact validates a buyer message.  The phone method selection is
// checked before the contact details themselves.
func BuyerContact(in ContactInput, lim config.Limits) (ContactFields, error) {
	var out ContactFields

	email := strings.TrimSpace(in.BuyerEmail)
	phone := strings.TrimSpace(in.BuyerPhone)
	message := strings.TrimSpace(in.Message)

	methods := nonNil(in.BuyerPhoneMethods)
	if !contactMethodSet.All(methods) {
		return out, fail(InvalidContactMethod)
	}
	if email == "" && phone == "" {
		return out, fail(ProvideEmailOrPhone)
	}
	if email != "" && !ValidEmail(email) {
		return out, fail(InvalidEmail)
	}
	if phone != "" && !ValidPhone(phone) {
		return out, fail(InvalidPhone)
	}
	if message == "" || textLen(message) > lim.MessageMax {
		return out, fail(MessageRequired)
	}
	if phone == "" {
		methods = []string{}
	}
	return ContactFields{
		BuyerEmail:        optional(email),
		BuyerPhone:        optional(phone),
		BuyerPhoneMethods: methods,
		Message:           message,
	}, nil
}

// ReportFields is a validated moderation report.
type ReportFields struct {
	Reason  string
	Details *string
}

// Report requires a reason and bounds the optional details.
func Report(reason, details string, lim config.Limits) (ReportFields, error) {
	reason = strings.TrimSpace(reason)
	details = strings.TrimSpace(details)
	if reason == "" {
		return ReportFields{}, fail(ReasonRequired)
	}
	if textLen(details) > lim.DetailsMax {
		return ReportFields{}, fail(DetailsTooLong)
	}
	return ReportFields{Reason: reason, Details: optional(details)}, nil
}
