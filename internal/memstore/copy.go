package memstore

import "github.com/iliyamo/bike-marketplace/internal/model"

func copyStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func copySeller(s model.Seller) model.Seller {
	s.LastLoginAt = copyInt(s.LastLoginAt)
	return s
}

func copyListing(l model.Listing) model.Listing {
	l.Features = copyStrings(l.Features)
	l.Faults = copyStrings(l.Faults)
	l.PaymentMethods = copyStrings(l.PaymentMethods)
	l.PublicPhoneMethods = copyStrings(l.PublicPhoneMethods)
	l.ImageKeys = copyStrings(l.ImageKeys)
	l.ImageSizes = append([]int64{}, l.ImageSizes...)
	l.Description = copyString(l.Description)
	l.DeliveryPriceSEK = copyInt(l.DeliveryPriceSEK)
	l.PublicEmail = copyString(l.PublicEmail)
	l.PublicPhone = copyString(l.PublicPhone)
	l.IPHash = copyString(l.IPHash)
	l.IPStoredAt = copyInt(l.IPStoredAt)
	return l
}

func copyContact(c model.BuyerContact) model.BuyerContact {
	c.BuyerEmail = copyString(c.BuyerEmail)
	c.BuyerPhone = copyString(c.BuyerPhone)
	c.BuyerPhoneMethods = copyStrings(c.BuyerPhoneMethods)
	c.IPHash = copyString(c.IPHash)
	c.IPStoredAt = copyInt(c.IPStoredAt)
	return c
}

func copyReport(r model.Report) model.Report {
	r.Details = copyString(r.Details)
	r.SeenAt = copyInt(r.SeenAt)
	r.DoneAt = copyInt(r.DoneAt)
	r.IPHash = copyString(r.IPHash)
	r.IPStoredAt = copyInt(r.IPStoredAt)
	return r
}
