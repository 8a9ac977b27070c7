// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// mockService implements suture.Service with controllable failures.
type mockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
	mu         sync.Mutex
	maxFails   int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)

	m.mu.Lock()
	maxFails := m.maxFails
	m.mu.Unlock()

	if maxFails > 0 && m.failCount.Add(1) <= maxFails {
		return errors.New("simulated failure")
	}

	<-ctx.Done()
	return ctx.Err()
}

// setFailCount makes the next n Serve calls fail.
func (m *mockService) setFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxFails = int32(n)
}

func (m *mockService) starts() int32 {
	return m.startCount.Load()
}

func (m *mockService) String() string {
	return m.name
}
