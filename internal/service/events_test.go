package service

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/queue"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestWritesDoNotWaitForBroker(t *testing.T) {
	pub := queue.NewAMQPPublisher(silentBroker(t), nil)
	t.Cleanup(func() { _ = pub.Close() })
	e := newEnvEvents(t, config.DefaultTTL(), pub)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := e.listings.Create(ctx, CreateInput{Fields: bikeInput(), Caller: caller}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("creates took %s with an unresponsive broker", took)
	}
}
