package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/durable/webhook"
)

func TestWaitRejectsInvertedBounds(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{}
	c := testClient(t, fake)

	_, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123",
		WithWaitTimeout(time.Second), WithRetryInterval(5*time.Second))
	require.ErrorIs(t, err, ErrRetryIntervalExceedsTimeout)
	require.Zero(t, fake.callCount())
}

func TestWaitCompleted(t *testing.T) {
	t.Parallel()
	running := OrchestrationStatus{InstanceID: "abc123", RuntimeStatus: RuntimeStatusRunning}
	completed := OrchestrationStatus{
		InstanceID:    "abc123",
		RuntimeStatus: RuntimeStatusCompleted,
		Output:        json.RawMessage(`{"x": 1}`),
	}
	fake := &fakeCaller{results: []fakeResult{
		statusResult(running),
		statusResult(running),
		statusResult(completed),
	}}
	c := testClient(t, fake)

	start := time.Now()
	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123",
		WithWaitTimeout(5*time.Second), WithRetryInterval(50*time.Millisecond))
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Equal(t, 200, resp.Status)
	require.JSONEq(t, `{"x": 1}`, string(resp.Body))
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.Equal(t, 3, fake.callCount())
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, time.Second)
}

func TestWaitCompletedEmptyOutput(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{statusResult(OrchestrationStatus{
		InstanceID:    "abc123",
		RuntimeStatus: RuntimeStatusCompleted,
	})}}
	c := testClient(t, fake)

	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123")
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Empty(t, resp.Body)
	require.Equal(t, "0", resp.Headers["Content-Length"])
}

func TestWaitTerminalOutcomes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		status     RuntimeStatus
		wantStatus int
	}{
		{"canceled", RuntimeStatusCanceled, 200},
		{"terminated", RuntimeStatusTerminated, 200},
		{"failed", RuntimeStatusFailed, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status := OrchestrationStatus{
				InstanceID:    "abc123",
				RuntimeStatus: tc.status,
				Output:        json.RawMessage(`"done early"`),
			}
			fake := &fakeCaller{results: []fakeResult{statusResult(status)}}
			c := testClient(t, fake)

			resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123")
			require.NoError(t, err)
			require.Equal(t, tc.wantStatus, resp.Status)
			require.Equal(t, 1, fake.callCount())

			var got OrchestrationStatus
			require.NoError(t, json.Unmarshal(resp.Body, &got))
			require.Equal(t, tc.status, got.RuntimeStatus)
			require.Equal(t, "abc123", got.InstanceID)
		})
	}
}

func TestWaitDegradesToCheckStatus(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{statusResult(OrchestrationStatus{
		InstanceID:    "abc123",
		RuntimeStatus: RuntimeStatusRunning,
	})}}
	c := testClient(t, fake)
	r := httptest.NewRequest("POST", "http://caller.example.org:7071/api/orchestrators/Billing", nil)

	start := time.Now()
	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), r, "abc123",
		WithWaitTimeout(250*time.Millisecond), WithRetryInterval(100*time.Millisecond))
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Equal(t, c.CreateCheckStatusResponse(r, "abc123"), resp)
	require.Equal(t, 202, resp.Status)
	require.Equal(t, "10", resp.Headers["Retry-After"])
	require.NotEmpty(t, resp.Headers["Location"])
	require.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	require.GreaterOrEqual(t, fake.callCount(), 2)
}

func TestWaitSkipsUnknownInstances(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{
		{res: &webhook.Result{Status: 404}},
		statusResult(OrchestrationStatus{InstanceID: "abc123", RuntimeStatus: RuntimeStatusCompleted}),
	}}
	c := testClient(t, fake)

	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123",
		WithWaitTimeout(5*time.Second), WithRetryInterval(20*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Equal(t, 2, fake.callCount())
}

func TestWaitAbortsOnCallerError(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{err: errors.New("connection refused")}}}
	c := testClient(t, fake)

	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(context.Background(), nil, "abc123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
	require.Nil(t, resp)
}

func TestWaitAbortsOnCanceledContext(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{statusResult(OrchestrationStatus{
		InstanceID:    "abc123",
		RuntimeStatus: RuntimeStatusRunning,
	})}}
	c := testClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.WaitForCompletionOrCreateCheckStatusResponse(ctx, nil, "abc123",
		WithWaitTimeout(10*time.Second), WithRetryInterval(time.Second))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, fake.callCount())
}
