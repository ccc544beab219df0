package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/memstore"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/queue"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/usage"
	"github.com/iliyamo/bike-marketplace/internal/validation"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type prefixHasher struct{}

func (prefixHasher) Hash(v string) (string, error) { return "h:" + v, nil }

type stubCaptcha struct {
	err   error
	calls int
}

func (s *stubCaptcha) Verify(context.Context, string, string) error {
	s.calls++
	return s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ListingEvent
}

func (p *recordingPublisher) PublishListingEvent(_ context.Context, ev queue.ListingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []queue.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type env struct {
	clk        *clock.FakeClock
	store      *memstore.Store
	blobs      *storage.Memory
	accounted  *storage.Accounted
	usageStore *usage.MemoryStore
	ledger     *usage.Ledger
	captcha    *stubCaptcha
	pub        *recordingPublisher
	gate       *Gate
	sellers    *Sellers
	snapshots  *Snapshots
	listings   *Listings
	sweeper    *Sweeper
	contacts   *Contacts
	reports    *Reports
	admin      *Admin
	dashboard  *Dashboard
}

func newEnv(t *testing.T) *env {
	return newEnvTTL(t, config.DefaultTTL())
}

func newEnvTTL(t *testing.T, ttl config.TTL) *env {
	t.Helper()
	return newEnvEvents(t, ttl, nil)
}

// newEnvEvents wires events as the listing event sink; nil records them
// on e.pub.
func newEnvEvents(t *testing.T, ttl config.TTL, events queue.Publisher) *env {
	t.Helper()
	e := &env{
		clk:        clock.Fake(t0),
		store:      memstore.New(),
		blobs:      storage.NewMemory(),
		usageStore: usage.NewMemoryStore(),
		captcha:    &stubCaptcha{},
		pub:        &recordingPublisher{},
	}
	if events == nil {
		events = e.pub
	}
	stores := Stores{Sellers: e.store, Listings: e.store, Contacts: e.store, Reports: e.store, Blocklist: e.store}
	lim := config.DefaultLimits()
	e.ledger = usage.NewLedger(e.usageStore, e.clk, config.DefaultQuota())
	blobs := storage.NewAccounted(e.blobs, e.ledger, nil)
	e.accounted = blobs
	e.gate = NewGate(e.store, e.ledger, e.captcha, prefixHasher{}, nil)
	e.sellers = NewSellers(e.store, prefixHasher{}, e.clk)
	e.snapshots = NewSnapshots(e.store, blobs, e.ledger, e.clk, "https://cdn.example.com")
	e.listings = NewListings(ListingsDeps{
		Listings:  e.store,
		Contacts:  e.store,
		Sellers:   e.sellers,
		Blobs:     blobs,
		Snapshots: e.snapshots,
		Quota:     e.gate,
		Clock:     e.clk,
		Limits:    lim,
		TTL:       ttl,
		Events:    events,
	})
	e.sweeper = NewSweeper(stores, blobs, e.clk, ttl, events, nil)
	e.contacts = NewContacts(e.store, e.store, e.clk, lim, ttl)
	e.reports = NewReports(e.store, e.store, e.clk, lim)
	e.admin = NewAdmin(stores, e.sellers, e.gate, e.ledger, e.clk, "https://cdn.example.com")
	e.dashboard = NewDashboard(e.sellers, stores, e.clk, ttl)
	return e
}

func bikeInput() validation.ListingInput {
	return validation.ListingInput{
		PriceSEK:    "1500",
		Brand:       "Crescent",
		Type:        "City",
		Condition:   "Good",
		WheelSizeIn: "28",
		Location:    "Södermalm",
		ContactMode: "buyer_message",
		Features:    []string{"Gears"},
	}
}

func png(n int) form.Upload {
	return form.Upload{Filename: "bike.png", ContentType: "image/png", Size: int64(n), Data: make([]byte, n)}
}

var caller = Caller{IP: "10.0.0.1", IPHash: "h:10.0.0.1"}

// create posts a listing and returns its id and the seller token.
func (e *env) create(t *testing.T, token string, images ...form.Upload) (string, string) {
	t.Helper()
	res, err := e.listings.Create(context.Background(), CreateInput{
		Fields: bikeInput(), SellerToken: token, Images: images, Caller: caller,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.SellerToken != nil {
		token = *res.SellerToken
	}
	return res.ListingID, token
}

func (e *env) snapshot(t *testing.T) model.Snapshot {
	t.Helper()
	obj, err := e.blobs.Get(context.Background(), SnapshotKey)
	if err != nil {
		t.Fatalf("snapshot blob: %v", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(obj.Data, &snap); err != nil {
		t.Fatalf("snapshot json: %v", err)
	}
	return snap
}

// imageBytes is the stored byte total minus the snapshot blob.
func (e *env) imageBytes(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	total, err := e.ledger.StorageBytes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	raw, _, _ := e.usageStore.State(ctx, usage.StateSnapshotBytes)
	snap, _ := strconv.ParseInt(raw, 10, 64)
	return total - snap
}

func wantKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if se.Kind != kind {
		t.Fatalf("kind = %d, want %d (%v)", se.Kind, kind, err)
	}
	if msg != "" && se.Message != msg {
		t.Fatalf("message = %q, want %q", se.Message, msg)
	}
}

func TestCreateMintsSellerAndPublishes(t *testing.T) {
	e := newEnv(t)
	res, err := e.listings.Create(context.Background(), CreateInput{
		Fields: bikeInput(), Images: []form.Upload{png(400)}, Caller: caller,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.SellerToken == nil || *res.SellerToken == "" {
		t.Fatal("expected a minted seller token")
	}
	snap := e.snapshot(t)
	if len(snap.Listings) != 1 || snap.Listings[0].ID != res.ListingID {
		t.Fatalf("snapshot = %+v", snap.Listings)
	}
	if urls := snap.Listings[0].ImageURLs; len(urls) != 1 || urls[0][:24] != "https://cdn.example.com/" {
		t.Fatalf("image urls = %v", urls)
	}
	if got := e.imageBytes(t); got != 400 {
		t.Fatalf("image bytes = %d, want 400", got)
	}
	if k := e.pub.kinds(); len(k) != 1 || k[0] != queue.ListingCreated {
		t.Fatalf("events = %v", k)
	}

	// A second listing with the returned token keeps the same seller.
	res2, err := e.listings.Create(context.Background(), CreateInput{Fields: bikeInput(), SellerToken: *res.SellerToken})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if res2.SellerToken != nil {
		t.Fatal("existing seller must not get a new token")
	}
	a, _ := e.store.ListingByID(context.Background(), res.ListingID)
	b, _ := e.store.ListingByID(context.Background(), res2.ListingID)
	if a.SellerID != b.SellerID {
		t.Fatalf("seller ids differ: %s vs %s", a.SellerID, b.SellerID)
	}
	if b.ExpiresAt != t0.Unix()+int64((39*24*time.Hour).Seconds()) {
		t.Fatalf("expires_at = %d", b.ExpiresAt)
	}
}

func TestCreateRejectsUnknownToken(t *testing.T) {
	e := newEnv(t)
	_, err := e.listings.Create(context.Background(), CreateInput{
		Fields: bikeInput(), SellerToken: "nope", Images: []form.Upload{png(10)},
	})
	wantKind(t, err, KindAuth, MsgInvalidToken)
	if e.blobs.Len() != 0 {
		t.Fatalf("blobs written: %d", e.blobs.Len())
	}
}

func TestCreateChecksImagesBeforeWriting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	big := png(1_200_001)
	gif := form.Upload{Filename: "a.gif", ContentType: "image/gif", Size: 5, Data: make([]byte, 5)}
	cases := []struct {
		name   string
		images []form.Upload
		msg    string
	}{
		{"count", []form.Upload{png(1), png(1), png(1)}, MsgTooManyImages},
		{"size", []form.Upload{big}, MsgImageTooLarge},
		{"type", []form.Upload{png(1), gif}, MsgInvalidImageType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.listings.Create(ctx, CreateInput{Fields: bikeInput(), Images: tc.images})
			wantKind(t, err, KindValidation, tc.msg)
		})
	}
	if puts, _ := e.blobs.Calls(); puts != 0 {
		t.Fatalf("puts = %d, rejected uploads must not reach storage", puts)
	}
	if all, _ := e.store.AllListings(ctx); len(all) != 0 {
		t.Fatalf("listings = %d", len(all))
	}
}

func TestCreateValidationFailure(t *testing.T) {
	e := newEnv(t)
	in := bikeInput()
	in.WheelSizeIn = "9"
	_, err := e.listings.Create(context.Background(), CreateInput{Fields: in})
	wantKind(t, err, KindValidation, "Invalid wheel size.")
}

func TestUpdatePriceNoChangeKeepsSnapshot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, token := e.create(t, "")
	before := e.snapshot(t).GeneratedAt

	e.clk.Advance(time.Minute)
	noChange, err := e.listings.UpdatePrice(ctx, token, id, "1500")
	if err != nil || !noChange {
		t.Fatalf("UpdatePrice same = %v, %v", noChange, err)
	}
	if got := e.snapshot(t).GeneratedAt; got != before {
		t.Fatalf("generated_at moved on a no-op: %d -> %d", before, got)
	}

	noChange, err = e.listings.UpdatePrice(ctx, token, id, "1200.5")
	if err != nil || noChange {
		t.Fatalf("UpdatePrice = %v, %v", noChange, err)
	}
	snap := e.snapshot(t)
	if snap.GeneratedAt == before || snap.Listings[0].PriceSEK != 1201 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestUpdatePriceOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, _ := e.create(t, "")
	_, other := e.create(t, "")

	_, err := e.listings.UpdatePrice(ctx, other, id, "100")
	wantKind(t, err, KindNotFound, MsgListingNotFound)
	_, err = e.listings.UpdatePrice(ctx, other, id, "-1")
	wantKind(t, err, KindValidation, "Invalid price.")
	_, err = e.listings.UpdatePrice(ctx, "bogus", id, "100")
	wantKind(t, err, KindAuth, MsgInvalidToken)
}

func TestDeleteIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, token := e.create(t, "", png(300), png(200))
	_, other := e.create(t, "")
	if got := e.imageBytes(t); got != 500 {
		t.Fatalf("image bytes = %d", got)
	}

	_, err := e.listings.DeleteBySeller(ctx, other, id)
	wantKind(t, err, KindNotFound, MsgListingNotFound)

	already, err := e.listings.DeleteBySeller(ctx, token, id)
	if err != nil || already {
		t.Fatalf("first delete = %v, %v", already, err)
	}
	already, err = e.listings.DeleteBySeller(ctx, token, id)
	if err != nil || !already {
		t.Fatalf("second delete = %v, %v", already, err)
	}
	if got := e.imageBytes(t); got != 0 {
		t.Fatalf("image bytes after delete = %d", got)
	}
	for _, l := range e.snapshot(t).Listings {
		if l.ID == id {
			t.Fatal("deleted listing still in snapshot")
		}
	}
	already, err = e.listings.AdminDelete(ctx, id)
	if err != nil || !already {
		t.Fatalf("admin delete of absent = %v, %v", already, err)
	}
}

func TestAdminUpdateImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, _ := e.create(t, "", png(100))
	orig, _ := e.store.ListingByID(ctx, id)

	in := bikeInput()
	in.Brand = "Monark"
	if err := e.listings.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: in, Images: []form.Upload{png(250)}}); err != nil {
		t.Fatalf("AdminUpdate: %v", err)
	}
	got, _ := e.store.ListingByID(ctx, id)
	if got.Brand != "Monark" || len(got.ImageKeys) != 1 || got.ImageKeys[0] == orig.ImageKeys[0] {
		t.Fatalf("listing = %+v", got)
	}
	if e.blobs.Has(orig.ImageKeys[0]) {
		t.Fatal("replaced image not released")
	}
	if b := e.imageBytes(t); b != 250 {
		t.Fatalf("image bytes = %d", b)
	}
	if got.ExpiresAt != orig.ExpiresAt || got.SellerID != orig.SellerID {
		t.Fatal("admin edit changed lifecycle fields")
	}

	if err := e.listings.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: in, ClearImages: true}); err != nil {
		t.Fatalf("AdminUpdate clear: %v", err)
	}
	got, _ = e.store.ListingByID(ctx, id)
	if len(got.ImageKeys) != 0 || e.imageBytes(t) != 0 {
		t.Fatalf("images not cleared: %+v", got.ImageKeys)
	}

	err := e.listings.AdminUpdate(ctx, AdminUpdateInput{ListingID: "missing", Fields: in})
	wantKind(t, err, KindNotFound, MsgListingNotFound)
	err = e.listings.AdminUpdate(ctx, AdminUpdateInput{Fields: in})
	wantKind(t, err, KindValidation, "listing_id is required.")
}

type failingUpdates struct {
	ListingStore
}

func (failingUpdates) UpdateListing(context.Context, *model.Listing) error {
	return errors.New("connection reset")
}

func TestAdminUpdateFailureKeepsStoredImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, _ := e.create(t, "", png(100))
	orig, _ := e.store.ListingByID(ctx, id)
	before := e.blobs.Len()

	broken := NewListings(ListingsDeps{
		Listings:  failingUpdates{e.store},
		Contacts:  e.store,
		Sellers:   e.sellers,
		Blobs:     e.accounted,
		Snapshots: e.snapshots,
		Quota:     e.gate,
		Clock:     e.clk,
		Limits:    config.DefaultLimits(),
		TTL:       config.DefaultTTL(),
	})
	err := broken.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: bikeInput(), Images: []form.Upload{png(250)}})
	wantKind(t, err, KindInternal, "")

	if !e.blobs.Has(orig.ImageKeys[0]) {
		t.Fatal("image of the unchanged row was released")
	}
	if e.blobs.Len() != before {
		t.Fatalf("objects = %d, want %d (new upload not rolled back)", e.blobs.Len(), before)
	}
	if b := e.imageBytes(t); b != 100 {
		t.Fatalf("image bytes = %d", b)
	}

	err = broken.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: bikeInput(), ClearImages: true})
	wantKind(t, err, KindInternal, "")
	if !e.blobs.Has(orig.ImageKeys[0]) {
		t.Fatal("clear released images of the unchanged row")
	}
}

func TestReorder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, token := e.create(t, "")
	e.clk.Advance(time.Second)
	b, _ := e.create(t, token)
	e.clk.Advance(time.Second)
	c, _ := e.create(t, token)

	n, err := e.listings.Reorder(ctx, []string{c, " ", b, c, a, "ghost"})
	if err != nil || n != 3 {
		t.Fatalf("Reorder = %d, %v", n, err)
	}
	want := map[string]int64{c: 4, b: 3, a: 2}
	for id, rank := range want {
		l, _ := e.store.ListingByID(ctx, id)
		if l.Rank != rank {
			t.Fatalf("rank(%s) = %d, want %d", id, l.Rank, rank)
		}
	}
	snap := e.snapshot(t)
	if snap.Listings[0].ID != c || snap.Listings[1].ID != b || snap.Listings[2].ID != a {
		t.Fatalf("snapshot order wrong")
	}

	_, err = e.listings.Reorder(ctx, []string{" ", ""})
	wantKind(t, err, KindValidation, "listing_ids array required.")

	if err := e.listings.SetRank(ctx, a, 99); err != nil {
		t.Fatalf("SetRank: %v", err)
	}
	if e.snapshot(t).Listings[0].ID != a {
		t.Fatal("SetRank did not move listing to the top")
	}
	wantKind(t, e.listings.SetRank(ctx, "ghost", 1), KindNotFound, MsgListingNotFound)
}

func TestPublicViewContactFields(t *testing.T) {
	email := "seller@example.com"
	l := &model.Listing{ID: "l1", ContactMode: model.ContactBuyerMessage, PublicEmail: &email, ImageKeys: []string{"img/a.png"}}
	if pv := PublicView(l, ""); pv.PublicEmail != nil || pv.Features == nil {
		t.Fatalf("buyer_message view = %+v", pv)
	}
	l.ContactMode = model.ContactPublic
	pv := PublicView(l, "https://cdn.example.com")
	if pv.PublicEmail == nil || pv.ImageURLs[0] != "https://cdn.example.com/img/a.png" {
		t.Fatalf("public_contact view = %+v", pv)
	}
}
