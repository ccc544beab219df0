package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bike-marketplace/internal/clock"
	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/handler"
	"github.com/iliyamo/bike-marketplace/internal/memstore"
	"github.com/iliyamo/bike-marketplace/internal/middleware"
	"github.com/iliyamo/bike-marketplace/internal/queue"
	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/usage"
	"github.com/iliyamo/bike-marketplace/internal/utils"
)

const adminEmail = "admin@example.com"

// newServer wires the whole API on in-memory backends.
func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newServerWith(t, nil)
}

// newServerWith lets tune replace route middleware before registration.
func newServerWith(t *testing.T, tune func(*Middleware)) *echo.Echo {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := memstore.New()
	stores := service.Stores{Sellers: m, Listings: m, Contacts: m, Reports: m, Blocklist: m}
	lim := config.DefaultLimits()
	ttl := config.DefaultTTL()

	ledger := usage.NewLedger(usage.NewMemoryStore(), clk, config.DefaultQuota())
	blobs := storage.NewAccounted(storage.NewMemory(), ledger, nil)
	gate := service.NewGate(m, ledger, service.NewTurnstile("", "", 0), utils.NewArgon2Hasher("ip-salt"), nil)
	sellers := service.NewSellers(m, utils.NewArgon2Hasher("token-salt"), clk)
	snapshots := service.NewSnapshots(m, blobs, ledger, clk, "")
	listings := service.NewListings(service.ListingsDeps{
		Listings: m, Contacts: m, Sellers: sellers, Blobs: blobs, Snapshots: snapshots,
		Quota: gate, Clock: clk, Limits: lim, TTL: ttl, Events: queue.Nop{},
	})
	reports := service.NewReports(m, m, clk, lim)

	mw := Middleware{
		CountRequests: middleware.CountAPIRequests(ledger, nil),
		Sweep:         middleware.Sweep(service.NewSweeper(stores, blobs, clk, ttl, queue.Nop{}, nil)),
		Admin: []echo.MiddlewareFunc{
			middleware.AdminIdentity(""),
			middleware.RequireAdmin([]string{adminEmail}),
		},
	}
	if tune != nil {
		tune(&mw)
	}

	e := echo.New()
	Register(e, Handlers{
		Health:  &handler.HealthHandler{},
		Public:  handler.NewPublicHandler(blobs, nil),
		Listing: handler.NewListingHandler(gate, listings, reports, lim, nil),
		Buyer:   handler.NewBuyerHandler(gate, service.NewContacts(m, m, clk, lim, ttl), lim, nil),
		Seller:  handler.NewSellerHandler(gate, service.NewDashboard(sellers, stores, clk, ttl), nil),
		Admin:   handler.NewAdminHandler(service.NewAdmin(stores, sellers, gate, ledger, clk, ""), listings, reports, lim, nil),
	}, mw, false)
	return e
}

type multipartBody struct {
	buf bytes.Buffer
	w   *multipart.Writer
}

func newMultipart() *multipartBody {
	b := &multipartBody{}
	b.w = multipart.NewWriter(&b.buf)
	return b
}

func (b *multipartBody) field(name, value string) *multipartBody {
	_ = b.w.WriteField(name, value)
	return b
}

func (b *multipartBody) file(name, contentType string, data []byte) *multipartBody {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="`+name+`"; filename="bike.png"`)
	h.Set("Content-Type", contentType)
	part, _ := b.w.CreatePart(h)
	_, _ = part.Write(data)
	return b
}

func (b *multipartBody) request(path string) *http.Request {
	_ = b.w.Close()
	req := httptest.NewRequest(http.MethodPost, path, &b.buf)
	req.Header.Set("Content-Type", b.w.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set(middleware.HeaderAdminEmail, adminEmail)
	return req
}

func bikeForm() *multipartBody {
	return newMultipart().
		field("price_sek", "1500").
		field("brand", "Crescent").
		field("type", "City").
		field("condition", "Good").
		field("wheel_size_in", "28").
		field("location", "Södermalm").
		field("contact_mode", "buyer_message").
		field("features_json", `["Gears"]`)
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, body map[string]any, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if body["ok"] != false || body["error"] != msg {
		t.Fatalf("body = %v, want error %q", body, msg)
	}
}

func TestCreateListingAndServeSnapshot(t *testing.T) {
	e := newServer(t)
	req := bikeForm().file("images", "image/png", make([]byte, 256)).request("/api/listing/create")
	req.Header.Set(middleware.HeaderConnectingIP, "10.0.0.1")
	rec, body := serve(e, req)
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	id, _ := body["listing_id"].(string)
	if id == "" {
		t.Fatal("listing_id missing")
	}
	if tok, _ := body["seller_token"].(string); tok == "" {
		t.Fatal("fresh seller must receive a token")
	}

	rec, _ = serve(e, httptest.NewRequest(http.MethodGet, "/snapshots/listings.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=60" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	var snap struct {
		Listings []struct {
			ID        string   `json:"listing_id"`
			ImageURLs []string `json:"image_urls"`
		} `json:"listings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Listings) != 1 || snap.Listings[0].ID != id || len(snap.Listings[0].ImageURLs) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	rec, _ = serve(e, httptest.NewRequest(http.MethodGet, "/"+snap.Listings[0].ImageURLs[0], nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || rec.Body.Len() != 256 {
		t.Fatalf("image = %d %q len %d", rec.Code, rec.Header().Get("Content-Type"), rec.Body.Len())
	}
}

func TestCreateRejectsBadImageType(t *testing.T) {
	e := newServer(t)
	req := bikeForm().file("images", "image/gif", make([]byte, 10)).request("/api/listing/create")
	rec, body := serve(e, req)
	wantError(t, rec, body, http.StatusBadRequest, service.MsgInvalidImageType)
}

func TestMissingBlobIsNotFound(t *testing.T) {
	e := newServer(t)
	rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/img/listings/nope/x.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	rec, _ = serve(e, httptest.NewRequest(http.MethodGet, "/snapshots/listings.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("snapshot before any write = %d, want 404", rec.Code)
	}
}

func TestSellerFlowOverHTTP(t *testing.T) {
	e := newServer(t)
	_, body := serve(e, bikeForm().request("/api/listing/create"))
	id, _ := body["listing_id"].(string)
	token, _ := body["seller_token"].(string)

	rec, body := serve(e, jsonRequest("/api/listing/update-price", `{"seller_token":"`+token+`","listing_id":"`+id+`","new_price":"1500"}`))
	if rec.Code != http.StatusOK || body["no_change"] != true {
		t.Fatalf("same price = %d %v", rec.Code, body)
	}
	rec, body = serve(e, jsonRequest("/api/listing/update-price", `{"seller_token":"`+token+`","listing_id":"`+id+`","new_price":1800}`))
	if rec.Code != http.StatusOK || body["no_change"] != nil {
		t.Fatalf("new price = %d %v", rec.Code, body)
	}

	rec, body = serve(e, jsonRequest("/api/seller/open-dashboard", `{"seller_token":"`+token+`"}`))
	if rec.Code != http.StatusOK || body["extension_applied"] != true {
		t.Fatalf("dashboard = %d %v", rec.Code, body)
	}
	if ls, _ := body["listings"].([]any); len(ls) != 1 {
		t.Fatalf("dashboard listings = %v", body["listings"])
	}

	rec, body = serve(e, jsonRequest("/api/listing/delete", `{"seller_token":"`+token+`","listing_id":"`+id+`"}`))
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("delete = %d %v", rec.Code, body)
	}
	rec, body = serve(e, jsonRequest("/api/listing/delete", `{"seller_token":"`+token+`","listing_id":"`+id+`"}`))
	if rec.Code != http.StatusOK || body["already_deleted"] != true {
		t.Fatalf("second delete = %d %v", rec.Code, body)
	}
}

func TestRequestErrors(t *testing.T) {
	e := newServer(t)

	rec, body := serve(e, jsonRequest("/api/listing/update-price", `not json`))
	wantError(t, rec, body, http.StatusBadRequest, "Invalid JSON body.")

	rec, body = serve(e, jsonRequest("/api/listing/update-price", `{"seller_token":"nope","listing_id":"x","new_price":100}`))
	wantError(t, rec, body, http.StatusUnauthorized, service.MsgInvalidToken)

	rec, body = serve(e, jsonRequest("/api/seller/open-dashboard", `{"seller_token":""}`))
	if rec.Code != http.StatusUnauthorized || body["ok"] != false {
		t.Fatalf("empty token = %d %v", rec.Code, body)
	}

	req := newMultipart().field("listing_id", "ghost").field("reason", "spam").request("/api/listing/report")
	rec, body = serve(e, req)
	wantError(t, rec, body, http.StatusNotFound, service.MsgListingNotFound)
}

func TestAdminRoutesNeedAllowedIdentity(t *testing.T) {
	e := newServer(t)
	rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil))
	wantError(t, rec, body, http.StatusForbidden, "Forbidden.")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.Header.Set(middleware.HeaderAdminEmail, "someone@example.com")
	rec, _ = serve(e, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unlisted admin = %d", rec.Code)
	}

	rec, body = serve(e, asAdmin(httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)))
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("overview = %d %s", rec.Code, rec.Body.String())
	}
	for _, k := range []string{"listings", "contacts", "reports"} {
		if _, present := body[k]; !present {
			t.Fatalf("overview missing %q", k)
		}
	}
}

func TestAdminSetRankValidation(t *testing.T) {
	e := newServer(t)
	rec, body := serve(e, asAdmin(jsonRequest("/api/admin/set-rank", `{}`)))
	wantError(t, rec, body, http.StatusBadRequest, "Missing rank or listing id.")

	rec, body = serve(e, asAdmin(jsonRequest("/api/admin/set-rank", `{"listing_id":"x","rank":"abc"}`)))
	wantError(t, rec, body, http.StatusBadRequest, "Invalid rank.")

	rec, body = serve(e, asAdmin(jsonRequest("/api/admin/set-rank", `{"listing_id":"ghost","rank":3}`)))
	wantError(t, rec, body, http.StatusNotFound, service.MsgListingNotFound)

	rec, body = serve(e, asAdmin(jsonRequest("/api/admin/reorder-listings", `{"listing_ids":"a,b"}`)))
	wantError(t, rec, body, http.StatusBadRequest, "listing_ids array required.")
}

func TestBlockedCallerIsRejected(t *testing.T) {
	e := newServer(t)
	rec, _ := serve(e, asAdmin(jsonRequest("/api/admin/block-ip", `{"ip":"10.0.0.9","reason":"spam"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("block-ip = %d %s", rec.Code, rec.Body.String())
	}

	req := newMultipart().field("listing_id", "x").field("message", "hi").field("buyer_email", "b@example.com").request("/api/buyer/contact")
	req.Header.Set(middleware.HeaderConnectingIP, "10.0.0.9")
	rec, body := serve(e, req)
	wantError(t, rec, body, http.StatusForbidden, service.MsgBlocked)

	req = newMultipart().field("listing_id", "x").field("message", "hi").field("buyer_email", "b@example.com").request("/api/buyer/contact")
	req.Header.Set(middleware.HeaderConnectingIP, "10.0.0.10")
	rec, body = serve(e, req)
	wantError(t, rec, body, http.StatusNotFound, service.MsgListingGone)
}

func TestUsageEndpoints(t *testing.T) {
	e := newServer(t)
	rec, body := serve(e, asAdmin(jsonRequest("/api/admin/usage-override", `{"enabled":"yes"}`)))
	wantError(t, rec, body, http.StatusBadRequest, "enabled must be true or false.")

	rec, body = serve(e, asAdmin(jsonRequest("/api/admin/usage-override", `{"enabled":true}`)))
	if rec.Code != http.StatusOK || body["ok"] != true || body["override_enabled"] != true {
		t.Fatalf("override = %d %v", rec.Code, body)
	}

	rec, body = serve(e, asAdmin(httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("usage = %d", rec.Code)
	}
	u, _ := body["usage"].(map[string]any)
	if n, _ := u["api_requests"].(float64); n != 3 {
		t.Fatalf("api_requests = %v, want 3", u["api_requests"])
	}
}

func TestHealthProbes(t *testing.T) {
	e := newServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := serve(e, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Fatalf("%s = %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestThrottledRequestsSkipSweep(t *testing.T) {
	var sweeps int
	throttled := true
	e := newServerWith(t, func(mw *Middleware) {
		mw.RateLimit = func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if throttled {
					return c.JSON(http.StatusTooManyRequests, echo.Map{"ok": false, "error": "Too many requests."})
				}
				return next(c)
			}
		}
		mw.Sweep = func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				sweeps++
				return next(c)
			}
		}
	})

	rec, _ := serve(e, jsonRequest("/api/listing/delete", `{"seller_token":"x","listing_id":"y"}`))
	if rec.Code != http.StatusTooManyRequests || sweeps != 0 {
		t.Fatalf("throttled: status = %d sweeps = %d", rec.Code, sweeps)
	}

	throttled = false
	rec, _ = serve(e, jsonRequest("/api/listing/delete", `{"seller_token":"x","listing_id":"y"}`))
	if rec.Code == http.StatusTooManyRequests || sweeps != 1 {
		t.Fatalf("admitted: status = %d sweeps = %d", rec.Code, sweeps)
	}
}
