// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cohortlens/internal/config"
)

// streamSubjects covers the trigger topics and the poison queue.
var streamSubjects = []string{"cohort.>"}

func newNATSTransport(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	t := &Transport{}

	url := strings.Join(cfg.URLs, ",")
	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, func() error {
			ns.Shutdown()
			ns.WaitForShutdown()
			return nil
		})
		url = ns.ClientURL()
	}

	if err := ensureStream(url, cfg); err != nil {
		_ = t.Close()
		return nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	t.closers = append(t.closers, pub.Close)

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   time.Minute,
		CloseTimeout:     cfg.RouterCloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(cfg.StreamName),
				natsgo.AckExplicit(),
				natsgo.DeliverAll(),
			},
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	t.closers = append(t.closers, sub.Close)

	t.Publisher = pub
	t.Subscriber = sub
	return t, nil
}

func startEmbeddedServer(cfg *config.NATSConfig) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "cohortlens",
		Host:       cfg.ServerHost,
		Port:       cfg.ServerPort,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		MaxPayload: 8 * 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return ns, nil
}

// ensureStream creates or updates the trigger stream.
func ensureStream(url string, cfg *config.NATSConfig) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   streamSubjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	return nil
}
