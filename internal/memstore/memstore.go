// Package memstore keeps every marketplace table in process memory.  It
// backs STORE_BACKEND=memory and the service tests.  Rows are copied on the
// way in and out so callers never share slices with the store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/repository"
)

// Store implements every service persistence interface on one mutex.
type Store struct {
	mu       sync.RWMutex
	sellers  map[string]model.Seller
	listings map[string]model.Listing
	contacts map[string]model.BuyerContact
	reports  map[string]model.Report
	blocked  map[string]model.BlockedIP
}

func New() *Store {
	return &Store{
		sellers:  map[string]model.Seller{},
		listings: map[string]model.Listing{},
		contacts: map[string]model.BuyerContact{},
		reports:  map[string]model.Report{},
		blocked:  map[string]model.BlockedIP{},
	}
}

// sellers

func (s *Store) InsertSeller(_ context.Context, sel *model.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sellers[sel.ID]; ok {
		return repository.ErrConflict
	}
	for _, other := range s.sellers {
		if other.TokenHash == sel.TokenHash {
			return repository.ErrConflict
		}
	}
	s.sellers[sel.ID] = copySeller(*sel)
	return nil
}

func (s *Store) SellerByTokenHash(_ context.Context, hash string) (*model.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sel := range s.sellers {
		if sel.TokenHash == hash {
			out := copySeller(sel)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) SellerByID(_ context.Context, id string) (*model.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.sellers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copySeller(sel)
	return &out, nil
}

func (s *Store) UpdateSellerToken(_ context.Context, sellerID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.sellers[sellerID]
	if !ok {
		return repository.ErrNotFound
	}
	sel.TokenHash = hash
	s.sellers[sellerID] = sel
	return nil
}

func (s *Store) TouchSellerLogin(_ context.Context, sellerID string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.sellers[sellerID]
	if !ok {
		return nil
	}
	sel.LastLoginAt = &at
	s.sellers[sellerID] = sel
	return nil
}

// listings

func (s *Store) InsertListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return repository.ErrConflict
	}
	s.listings[l.ID] = copyListing(*l)
	return nil
}

func (s *Store) ListingByID(_ context.Context, id string) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyListing(l)
	return &out, nil
}

// UpdateListing keeps identity, lifecycle, rank and IP columns of the
// stored row, matching the MySQL UPDATE column list.
func (s *Store) UpdateListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.listings[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := copyListing(*l)
	next.SellerID = cur.SellerID
	next.CreatedAt = cur.CreatedAt
	next.ExpiresAt = cur.ExpiresAt
	next.Status = cur.Status
	next.Rank = cur.Rank
	next.IPHash = cur.IPHash
	next.IPStoredAt = cur.IPStoredAt
	s.listings[l.ID] = next
	return nil
}

func (s *Store) UpdateListingPrice(_ context.Context, id string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.PriceSEK = price
	s.listings[id] = l
	return nil
}

func (s *Store) DeleteListing(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.listings[id]
	delete(s.listings, id)
	return ok, nil
}

func (s *Store) SetListingRank(_ context.Context, id string, rank int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return false, nil
	}
	l.Rank = rank
	s.listings[id] = l
	return true, nil
}

func (s *Store) LiveListings(_ context.Context, now int64) ([]model.Listing, error) {
	out := s.filterListings(func(l model.Listing) bool { return l.Live(now) })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

func (s *Store) AllListings(_ context.Context) ([]model.Listing, error) {
	return newestFirst(s.filterListings(func(model.Listing) bool { return true })), nil
}

func (s *Store) ListingsBySeller(_ context.Context, sellerID string) ([]model.Listing, error) {
	return newestFirst(s.filterListings(func(l model.Listing) bool { return l.SellerID == sellerID })), nil
}

func (s *Store) ExtendSellerListings(_ context.Context, sellerID string, now, by int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, l := range s.listings {
		if l.SellerID == sellerID && l.Live(now) {
			l.ExpiresAt += by
			s.listings[id] = l
			n++
		}
	}
	return n, nil
}

func (s *Store) ListingsToExpire(_ context.Context, now int64) ([]model.Listing, error) {
	return s.filterListings(func(l model.Listing) bool {
		return l.Status == model.ListingActive && l.ExpiresAt < now
	}), nil
}

func (s *Store) MarkListingExpired(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil
	}
	l.Status = model.ListingExpired
	l.ClearImages()
	s.listings[id] = l
	return nil
}

func (s *Store) ExpiredListingIDs(_ context.Context, before int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, l := range s.listings {
		if l.Status == model.ListingExpired && l.ExpiresAt < before {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ScrubListingIPs(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, l := range s.listings {
		if stale(l.IPStoredAt, before) {
			l.IPHash, l.IPStoredAt = nil, nil
			s.listings[id] = l
			n++
		}
	}
	return n, nil
}

func (s *Store) filterListings(keep func(model.Listing) bool) []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Listing{}
	for _, l := range s.listings {
		if keep(l) {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newestFirst(ls []model.Listing) []model.Listing {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].CreatedAt > ls[j].CreatedAt })
	return ls
}

// contacts

func (s *Store) InsertContact(_ context.Context, c *model.BuyerContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; ok {
		return repository.ErrConflict
	}
	s.contacts[c.ID] = copyContact(*c)
	return nil
}

func (s *Store) RecentContactExists(_ context.Context, listingID, ipHash string, since int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.ListingID == listingID && c.IPHash != nil && *c.IPHash == ipHash && c.CreatedAt >= since {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteContactsForListing(_ context.Context, listingID string) (int64, error) {
	return s.deleteContacts(func(c model.BuyerContact) bool { return c.ListingID == listingID }), nil
}

func (s *Store) DeleteExpiredContacts(_ context.Context, now int64) (int64, error) {
	return s.deleteContacts(func(c model.BuyerContact) bool { return c.ExpiresAt < now }), nil
}

func (s *Store) ContactsForSeller(_ context.Context, sellerID string) ([]model.BuyerContact, error) {
	s.mu.RLock()
	owned := map[string]bool{}
	for id, l := range s.listings {
		if l.SellerID == sellerID {
			owned[id] = true
		}
	}
	s.mu.RUnlock()
	return s.filterContacts(func(c model.BuyerContact) bool { return owned[c.ListingID] }), nil
}

func (s *Store) AllContacts(_ context.Context) ([]model.BuyerContact, error) {
	return s.filterContacts(func(model.BuyerContact) bool { return true }), nil
}

func (s *Store) ScrubContactIPs(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.contacts {
		if stale(c.IPStoredAt, before) {
			c.IPHash, c.IPStoredAt = nil, nil
			s.contacts[id] = c
			n++
		}
	}
	return n, nil
}

func (s *Store) deleteContacts(match func(model.BuyerContact) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.contacts {
		if match(c) {
			delete(s.contacts, id)
			n++
		}
	}
	return n
}

func (s *Store) filterContacts(keep func(model.BuyerContact) bool) []model.BuyerContact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.BuyerContact{}
	for _, c := range s.contacts {
		if keep(c) {
			out = append(out, copyContact(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// reports

func (s *Store) InsertReport(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; ok {
		return repository.ErrConflict
	}
	s.reports[r.ID] = copyReport(*r)
	return nil
}

func (s *Store) ReportByID(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyReport(r)
	return &out, nil
}

func (s *Store) SaveReportStatus(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reports[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = r.Status
	cur.SeenAt = copyInt(r.SeenAt)
	cur.DoneAt = copyInt(r.DoneAt)
	s.reports[r.ID] = cur
	return nil
}

func (s *Store) AllReports(_ context.Context) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Report{}
	for _, r := range s.reports {
		out = append(out, copyReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteReportsBefore(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reports {
		if r.CreatedAt < before {
			delete(s.reports, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ScrubReportIPs(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reports {
		if stale(r.IPStoredAt, before) {
			r.IPHash, r.IPStoredAt = nil, nil
			s.reports[id] = r
			n++
		}
	}
	return n, nil
}

// blocklist

func (s *Store) IsBlocked(_ context.Context, ipHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocked[ipHash]
	return ok, nil
}

func (s *Store) BlockIP(_ context.Context, b model.BlockedIP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocked[b.IPHash]; !ok {
		b.Reason = copyString(b.Reason)
		s.blocked[b.IPHash] = b
	}
	return nil
}

func stale(storedAt *int64, before int64) bool {
	return storedAt != nil && *storedAt < before
}
