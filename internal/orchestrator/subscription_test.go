package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/defidvisor-core/internal/vault"
)

func TestSubscribeReceivesSnapshotEvents(t *testing.T) {
	f := newFixture()
	f.vault.buckets = []vault.Bucket{{ID: 1, Name: "b"}}

	var events []Event
	sub := f.core.Subscribe(func(ev Event) { events = append(events, ev) })
	defer sub.Unsubscribe()

	_, err := f.core.ListBuckets(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, EventVault, events[0].Kind)
}

func TestFailureSurfacesErrorEventAndKeepsSnapshot(t *testing.T) {
	f := newFixture()
	f.sdk.orderErr = errBoom

	var events []Event
	sub := f.core.Subscribe(func(ev Event) { events = append(events, ev) })
	defer sub.Unsubscribe()

	_, err := f.core.CheckOrderStatus(context.Background(), "ord-1")
	require.Error(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, opOrder, events[0].Op)
	assert.NotEmpty(t, events[0].Message)
	assert.Nil(t, f.core.OrderResult())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := newFixture()
	f.vault.buckets = []vault.Bucket{{ID: 1, Name: "b"}}

	var calls atomic.Int64
	sub := f.core.Subscribe(func(Event) { calls.Add(1) })

	_, err := f.core.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	sub.Unsubscribe()

	_, err = f.core.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "no delivery after Unsubscribe returns")
}

func TestUnsubscribeWaitsForInFlightDelivery(t *testing.T) {
	f := newFixture()
	f.vault.buckets = []vault.Bucket{{ID: 1, Name: "b"}}

	entered := make(chan struct{})
	release := make(chan struct{})
	var delivered atomic.Bool

	sub := f.core.Subscribe(func(Event) {
		close(entered)
		<-release
		delivered.Store(true)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.core.ListBuckets(context.Background())
	}()

	<-entered

	unsubscribed := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(unsubscribed)
	}()

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned while a delivery was still in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-unsubscribed
	wg.Wait()

	assert.True(t, delivered.Load(), "the in-flight delivery ran to completion")
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	f := newFixture()
	f.vault.buckets = []vault.Bucket{{ID: 1, Name: "b"}}

	var a, b atomic.Int64
	subA := f.core.Subscribe(func(Event) { a.Add(1) })
	subB := f.core.Subscribe(func(Event) { b.Add(1) })
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	_, err := f.core.ListBuckets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.Load())
	assert.Equal(t, int64(1), b.Load())
}

func TestCloseDropsAllSubscribers(t *testing.T) {
	f := newFixture()
	f.vault.buckets = []vault.Bucket{{ID: 1, Name: "b"}}

	var calls atomic.Int64
	f.core.Subscribe(func(Event) { calls.Add(1) })

	f.core.Close()

	_, err := f.core.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
}
