package validation

// Closed vocabularies accepted by the listing and contact forms.
var (
	ListingTypes = []string{
		"City", "City (men)", "City (women)", "Mountain bike", "Racer", "Fold bike", "Other",
	}
	Conditions = []string{"Excellent", "Good", "Fair", "Poor", "Very poor"}
	Features   = []string{
		"Gears", "Front light", "Rear light", "Dynamo lights", "Disc brakes",
		"Rim brakes", "Front suspension", "Rear rack", "Basket", "Mudguards",
		"Kickstand", "Bell", "Reflectors", "Lock included", "Winter tires / studded tires",
	}
	Faults = []string{
		"Flat tire", "Worn tires", "Brakes need adjustment", "Chain worn / skipping",
		"Gears not shifting well", "Rust on frame", "Rust on chain/gears", "Wobbly wheel",
		"Bent rim", "Broken/weak lights", "Seat torn", "Missing mudguard",
		"Needs service soon", "Creaking bottom bracket", "Loose handlebar/stem",
	}
	ContactModes   = []string{"public_contact", "buyer_message"}
	ContactMethods = []string{"sms", "whatsapp", "telegram", "phone_call"}
	CurrencyModes  = []string{"sek_eur", "sek_only", "eur_only"}
	PaymentMethods = []string{"swish", "paypal", "revolut", "cash", "other"}
)

// DefaultCurrencyMode applies when the form omits currency_mode.
const DefaultCurrencyMode = "sek_only"

// Set is a closed vocabulary with constant time membership.
type Set map[string]struct{}

// NewSet builds a Set from its members.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports whether item is a member.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// All reports whether every item is a member.  Unknown items are never
// dropped silently: one stranger rejects the whole selection.
func (s Set) All(items []string) bool {
	for _, it := range items {
		if !s.Has(it) {
			return false
		}
	}
	return true
}

var (
	typeSet          = NewSet(ListingTypes...)
	conditionSet     = NewSet(Conditions...)
	featureSet       = NewSet(Features...)
	faultSet         = NewSet(Faults...)
	contactModeSet   = NewSet(ContactModes...)
	contactMethodSet = NewSet(ContactMethods...)
	currencySet      = NewSet(CurrencyModes...)
	paymentSet       = NewSet(PaymentMethods...)
)
