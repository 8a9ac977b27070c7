// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

func testRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         time.Second,
		RetryMaxRetries:      2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		RetryMultiplier:      2,
		PoisonQueueTopic:     "cohort.poison",
	}
}

// startRouter runs a router over an in-process transport until the test
// ends.
func startRouter(t *testing.T, engine Engine) (*Transport, *Router) {
	t.Helper()

	transport := NewInProcessTransport(nil)
	router, err := NewRouter(testRouterConfig(), transport.Publisher, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	router.Register(NewHandlers(engine), transport.Subscriber)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- router.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Logf("router: %v", err)
		}
		_ = transport.Close()
	})

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	return transport, router
}

func waitCall(t *testing.T, engine *fakeEngine) int64 {
	t.Helper()
	select {
	case id := <-engine.calls:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("engine was not called")
		return 0
	}
}

func TestRouter_DeliversTriggers(t *testing.T) {
	engine := newFakeEngine()
	transport, router := startRouter(t, engine)
	if !router.IsRunning() {
		t.Error("router should report running")
	}

	processed := testutil.ToFloat64(metrics.TriggerMessages.WithLabelValues(TopicRecalculate, OutcomeProcessed))

	pub := NewPublisher(transport.Publisher)
	if err := pub.TriggerRecalculation(context.Background(), 1, 21); err != nil {
		t.Fatalf("TriggerRecalculation: %v", err)
	}
	if id := waitCall(t, engine); id != 21 {
		t.Errorf("recalculated cohort %d, want 21", id)
	}

	if err := pub.TriggerIngestion(context.Background(), 1, 22, []string{"a"}, models.IdentifierPersonID); err != nil {
		t.Fatalf("TriggerIngestion: %v", err)
	}
	if id := waitCall(t, engine); id != 22 {
		t.Errorf("ingested into cohort %d, want 22", id)
	}

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(metrics.TriggerMessages.WithLabelValues(TopicRecalculate, OutcomeProcessed)) < processed+1 {
		if time.Now().After(deadline) {
			t.Fatal("processed trigger not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouter_RetriesThenPoisons(t *testing.T) {
	engine := newFakeEngine()
	engine.err = &models.StoreUnavailableError{Store: "duckdb", Op: "materialize_cohort", Err: errors.New("breaker open")}
	transport, _ := startRouter(t, engine)

	poisoned, err := transport.Subscriber.Subscribe(context.Background(), "cohort.poison")
	if err != nil {
		t.Fatalf("subscribe poison queue: %v", err)
	}

	if err := NewPublisher(transport.Publisher).TriggerRecalculation(context.Background(), 1, 5); err != nil {
		t.Fatalf("TriggerRecalculation: %v", err)
	}

	// One attempt plus two retries
	for i := 0; i < 3; i++ {
		waitCall(t, engine)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		if msg.Metadata.Get(MetadataCohortID) != "5" {
			t.Errorf("poisoned message metadata = %v", msg.Metadata)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message was not poisoned")
	}
}

func TestRouter_DropsPermanentFailures(t *testing.T) {
	engine := newFakeEngine()
	engine.err = models.NewQueryConstructionError("cohort group references deleted action")
	transport, _ := startRouter(t, engine)

	if err := NewPublisher(transport.Publisher).TriggerRecalculation(context.Background(), 1, 6); err != nil {
		t.Fatalf("TriggerRecalculation: %v", err)
	}
	waitCall(t, engine)

	select {
	case id := <-engine.calls:
		t.Errorf("permanent failure retried for cohort %d", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRouterConfigFromNATS(t *testing.T) {
	rc := RouterConfigFromNATS(&config.NATSConfig{
		RouterRetryCount:           7,
		RouterRetryInitialInterval: time.Second,
		RouterRetryMaxInterval:     time.Minute,
		RouterThrottlePerSecond:    10,
		RouterPoisonQueueTopic:     "cohort.dead",
		RouterCloseTimeout:         time.Second,
	})
	if rc.RetryMaxRetries != 7 || rc.ThrottlePerSecond != 10 || rc.PoisonQueueTopic != "cohort.dead" || rc.RetryMultiplier != 2 {
		t.Errorf("router config = %+v", rc)
	}
}

func TestNewTransport_InProcess(t *testing.T) {
	transport, err := NewTransport(&config.NATSConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	if transport.Publisher == nil || transport.Subscriber == nil {
		t.Fatal("in-process transport incomplete")
	}
	if err := transport.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
