// Mktarchive - Market Period Archiver
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mktarchive

package ingest

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/mktarchive/internal/logging"
)

// WatermillTransport adapts any watermill subscriber to Transport. Messages
// are acknowledged as soon as they are taken; delivery stays at-most-once
// from the archiver's point of view.
type WatermillTransport struct {
	sub    message.Subscriber
	msgs   <-chan *message.Message
	cancel context.CancelFunc
	topic  string
}

// NewWatermillTransport subscribes sub to topic.
func NewWatermillTransport(sub message.Subscriber, topic string) (*WatermillTransport, error) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return &WatermillTransport{sub: sub, msgs: msgs, cancel: cancel, topic: topic}, nil
}

func (t *WatermillTransport) Recv() ([]byte, error) {
	select {
	case m, ok := <-t.msgs:
		if !ok {
			return nil, ErrClosed
		}
		m.Ack()
		return m.Payload, nil
	default:
		return nil, ErrWouldBlock
	}
}

func (t *WatermillTransport) Close() error {
	t.cancel()
	if err := t.sub.Close(); err != nil {
		return fmt.Errorf("close subscriber for %s: %w", t.topic, err)
	}
	return nil
}

// NewNATSSubscriber returns a watermill subscriber on core NATS. JetStream is
// disabled: the producer publishes plain subjects without persistence.
func NewNATSSubscriber(cfg NATSConfig) (message.Subscriber, error) {
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions: natsOptions(cfg, func(err error) {
			logging.Warn().Err(err).Str("subject", cfg.Subject).Msg("NATS async error")
		}),
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}
