package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTurnstile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("secret") != "s3cret" {
			t.Errorf("secret = %q", r.PostForm.Get("secret"))
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" && r.PostForm.Get("remoteip") == "1.2.3.4" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	v := NewTurnstile("s3cret", srv.URL, time.Second)
	if err := v.Verify(ctx, "good", "1.2.3.4"); err != nil {
		t.Fatalf("good token: %v", err)
	}
	if err := v.Verify(ctx, "bad", "1.2.3.4"); err == nil {
		t.Fatal("bad token accepted")
	}
	if err := v.Verify(ctx, "", "1.2.3.4"); !errors.Is(err, ErrCaptchaMissing) {
		t.Fatalf("empty token err = %v", err)
	}
	if err := NewTurnstile("", srv.URL, 0).Verify(ctx, "", ""); err != nil {
		t.Fatalf("disabled verifier: %v", err)
	}
}

func TestTurnstileTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	if err := NewTurnstile("s", url, time.Second).Verify(context.Background(), "tok", ""); err == nil {
		t.Fatal("unreachable endpoint must fail")
	}
}
