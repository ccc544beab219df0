package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/model"
	"github.com/iliyamo/bike-marketplace/internal/usage"
)

func TestGateOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.captcha.err = errors.New("bad token")
	_ = e.store.BlockIP(ctx, model.BlockedIP{IPHash: caller.IPHash})
	_, _ = e.ledger.AdjustStorageBytes(ctx, config.DefaultQuota().StorageBytes)

	err := e.gate.Admit(ctx, caller, "tok", CreateListingChecks)
	wantKind(t, err, KindForbidden, MsgBlocked)
	if e.captcha.calls != 0 {
		t.Fatal("captcha consulted before blocklist")
	}

	stranger := e.gate.Identify("10.9.9.9")
	err = e.gate.Admit(ctx, stranger, "tok", CreateListingChecks)
	wantKind(t, err, KindRateLimited, usage.BlockStorage.Message())
	if e.captcha.calls != 0 {
		t.Fatal("captcha consulted before quota")
	}

	// Anonymous posts skip the quota check.
	err = e.gate.Admit(ctx, stranger, "tok", AnonymousPostChecks)
	wantKind(t, err, KindExternal, MsgCaptchaFailed)

	if err := e.ledger.SetOverride(ctx, true); err != nil {
		t.Fatal(err)
	}
	e.captcha.err = nil
	if err := e.gate.Admit(ctx, stranger, "tok", CreateListingChecks); err != nil {
		t.Fatalf("Admit with override: %v", err)
	}
}

func TestGateIdentify(t *testing.T) {
	e := newEnv(t)
	if c := e.gate.Identify(""); c.IPHash != "" {
		t.Fatalf("empty ip hashed: %+v", c)
	}
	if c := e.gate.Identify("1.2.3.4"); c.IPHash != "h:1.2.3.4" {
		t.Fatalf("Identify = %+v", c)
	}
	// Without a hash there is nothing to match against the blocklist.
	if err := e.gate.CheckBlocklist(context.Background(), Caller{IP: "1.2.3.4"}); err != nil {
		t.Fatalf("CheckBlocklist = %v", err)
	}
}

func TestAdminUpdateQuotaOnlyForUploads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, _ := e.create(t, "")
	_, _ = e.ledger.AdjustStorageBytes(ctx, config.DefaultQuota().StorageBytes)

	if err := e.listings.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: bikeInput()}); err != nil {
		t.Fatalf("text-only edit blocked: %v", err)
	}
	err := e.listings.AdminUpdate(ctx, AdminUpdateInput{ListingID: id, Fields: bikeInput(), Images: []form.Upload{png(10)}})
	wantKind(t, err, KindRateLimited, "")
}
