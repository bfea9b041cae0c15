// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordDBQuery tests database query metric recording
func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantErrs  float64
	}{
		{"successful insert", "insert", "chat_messages", nil, 0},
		{"failed select", "select", "notifications", errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			RecordDBQuery(tt.operation, tt.table, 5*time.Millisecond, tt.err)
			after := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			if after-before != tt.wantErrs {
				t.Errorf("error counter delta = %v, want %v", after-before, tt.wantErrs)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
	}{
		{"list chats", "GET", "/api/v1/chats", "200"},
		{"send message", "POST", "/api/v1/chats/{id}/messages", "201"},
		{"unauthorized", "GET", "/api/v1/notifications", "401"},
		{"rate limited", "GET", "/api/v1/chats", "429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, 10*time.Millisecond)
			after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			if after-before != 1 {
				t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 2 {
		t.Errorf("active delta = %v, want 2", got)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want back to %v", got, start)
	}
}

func TestRecordPresenceOp(t *testing.T) {
	okBefore := testutil.ToFloat64(PresenceStoreOps.WithLabelValues("put", "success"))
	failBefore := testutil.ToFloat64(PresenceStoreOps.WithLabelValues("put", "failure"))

	RecordPresenceOp("put", nil)
	RecordPresenceOp("put", errors.New("closed"))

	if d := testutil.ToFloat64(PresenceStoreOps.WithLabelValues("put", "success")) - okBefore; d != 1 {
		t.Errorf("success delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(PresenceStoreOps.WithLabelValues("put", "failure")) - failBefore; d != 1 {
		t.Errorf("failure delta = %v, want 1", d)
	}
}

func TestRecordPush(t *testing.T) {
	delivered := testutil.ToFloat64(NotificationPushes.WithLabelValues("delivered"))
	offline := testutil.ToFloat64(NotificationPushes.WithLabelValues("offline"))

	RecordPush(true)
	RecordPush(false)
	RecordPush(false)

	if d := testutil.ToFloat64(NotificationPushes.WithLabelValues("delivered")) - delivered; d != 1 {
		t.Errorf("delivered delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(NotificationPushes.WithLabelValues("offline")) - offline; d != 2 {
		t.Errorf("offline delta = %v, want 2", d)
	}
}

// TestConcurrentMetricRecording verifies collectors are safe under concurrent use
func TestConcurrentMetricRecording(t *testing.T) {
	before := testutil.ToFloat64(WSFramesReceived.WithLabelValues("HEARTBEAT"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			WSFramesReceived.WithLabelValues("HEARTBEAT").Inc()
			WSConnections.Inc()
			WSConnections.Dec()
		}()
	}
	wg.Wait()

	if d := testutil.ToFloat64(WSFramesReceived.WithLabelValues("HEARTBEAT")) - before; d != 50 {
		t.Errorf("frames delta = %v, want 50", d)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "directory"

	CircuitBreakerState.WithLabelValues(cbName).Set(2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(cbName)); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "closed", "open").Inc()
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordDBQuery("select", "chats", time.Millisecond, nil)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
