// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestWatermillTransportGoChannel(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, NewWatermillLogger())

	tr, err := NewWatermillTransport(pubSub, "periods")
	if err != nil {
		t.Fatalf("NewWatermillTransport: %v", err)
	}

	if _, err := tr.Recv(); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("empty Recv = %v, want ErrWouldBlock", err)
	}

	if err := pubSub.Publish("periods", message.NewMessage(watermill.NewUUID(), []byte("p1"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := recvWithin(t, tr, 2*time.Second)
	if err != nil || string(msg) != "p1" {
		t.Fatalf("Recv = %q, %v", msg, err)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := recvWithin(t, tr, 2*time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv after Close = %v, want ErrClosed", err)
	}
}

func TestWatermillNATSSubscriberReadsPlainSubjects(t *testing.T) {
	srv := startServer(t)

	sub, err := NewNATSSubscriber(NATSConfig{URL: srv.ClientURL(), Subject: "mkt.wm"})
	if err != nil {
		t.Fatalf("NewNATSSubscriber: %v", err)
	}
	tr, err := NewWatermillTransport(sub, "mkt.wm")
	if err != nil {
		t.Fatalf("NewWatermillTransport: %v", err)
	}
	defer tr.Close()

	pub := publisherConn(t, srv.ClientURL())
	// The subscription is set up asynchronously; keep publishing until one
	// lands.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := pub.Publish("mkt.wm", []byte("raw")); err != nil {
			t.Fatal(err)
		}
		_ = pub.Flush()
		time.Sleep(20 * time.Millisecond)
		msg, err := tr.Recv()
		if errors.Is(err, ErrWouldBlock) {
			continue
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if string(msg) != "raw" {
			t.Errorf("got %q", msg)
		}
		return
	}
	t.Error("no message through watermill-nats")
}

