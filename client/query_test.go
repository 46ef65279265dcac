package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/durable/webhook"
)

func TestGetStatus(t *testing.T) {
	t.Parallel()
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Billing",
			"instanceId": "abc123",
			"createdTime": "2026-02-01T10:00:00Z",
			"lastUpdatedTime": "2026-02-01T10:05:00Z",
			"input": {"orderId": 7},
			"output": {"charged": true},
			"runtimeStatus": "Completed"
		}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	status, err := c.GetStatus(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "/runtime/webhooks/durabletask/instances/abc123?taskHub=TestHub&connection=Storage&code=key123", gotURL)
	require.Equal(t, "Billing", status.Name)
	require.Equal(t, "abc123", status.InstanceID)
	require.Equal(t, RuntimeStatusCompleted, status.RuntimeStatus)
	require.JSONEq(t, `{"charged": true}`, string(status.Output))
	require.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), status.CreatedTime)
}

func TestGetStatusCodeOutcomes(t *testing.T) {
	t.Parallel()
	resolved := []int{200, 202, 400, 404, 500}
	for _, code := range resolved {
		fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{
			Status: code,
			Body:   []byte(`{"instanceId":"abc123","runtimeStatus":"Running"}`),
		}}}}
		c := testClient(t, fake)
		status, err := c.GetStatus(context.Background(), "abc123")
		require.NoError(t, err, "status %d", code)
		require.Equal(t, RuntimeStatusRunning, status.RuntimeStatus, "status %d", code)
	}

	for _, code := range []int{201, 203, 301, 401, 403, 409, 502, 503} {
		fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: code}}}}
		c := testClient(t, fake)
		_, err := c.GetStatus(context.Background(), "abc123")
		var uerr *UnexpectedStatusError
		require.ErrorAs(t, err, &uerr, "status %d", code)
		require.Equal(t, code, uerr.Status)
	}
}

func TestGetStatusEmptyBody(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 404}}}}
	c := testClient(t, fake)
	status, err := c.GetStatus(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestGetStatusDetailFlags(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{}
	c := testClient(t, fake)

	_, err := c.GetStatus(context.Background(), "abc123", WithShowHistory(), WithShowHistoryOutput(), WithShowInput(false))
	require.NoError(t, err)
	require.Contains(t, fake.lastCall(), "&showHistory=true")
	require.Contains(t, fake.lastCall(), "&showHistoryOutput=true")
	require.Contains(t, fake.lastCall(), "&showInput=false")

	_, err = c.GetStatus(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotContains(t, fake.lastCall(), "showHistory")
	require.NotContains(t, fake.lastCall(), "showInput")
}

func TestGetStatusAll(t *testing.T) {
	t.Parallel()
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_, _ = w.Write([]byte(`[
			{"instanceId": "a", "runtimeStatus": "Running"},
			{"instanceId": "b", "runtimeStatus": "Completed"}
		]`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	statuses, err := c.GetStatusAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/runtime/webhooks/durabletask/instances/?taskHub=TestHub&connection=Storage&code=key123", gotURL)
	require.Len(t, statuses, 2)
	require.Equal(t, "a", statuses[0].InstanceID)
	require.Equal(t, RuntimeStatusCompleted, statuses[1].RuntimeStatus)
}

func TestGetStatusAllEmptyBody(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 200}}}}
	c := testClient(t, fake)
	statuses, err := c.GetStatusAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, statuses)
}

func TestGetStatusBy(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{
		Status: 200,
		Body:   []byte(`[{"instanceId":"a","runtimeStatus":"Failed"}]`),
	}}}}
	c := testClient(t, fake)

	from := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	to := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	statuses, err := c.GetStatusBy(context.Background(), StatusFilter{
		CreatedTimeFrom: from,
		CreatedTimeTo:   to,
		RuntimeStatuses: []RuntimeStatus{RuntimeStatusRunning, RuntimeStatusFailed},
	})
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	u := fake.lastCall()
	require.Contains(t, u, "/instances/?")
	require.Contains(t, u, "&createdTimeFrom=2026-01-02T03:04:05Z")
	require.Contains(t, u, "&createdTimeTo=2026-01-03T00:00:00Z")
	require.Contains(t, u, "&runtimeStats=Running,Failed")
	require.NotContains(t, u, testIDToken)
}

func TestGetStatusByOmitsZeroFilters(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 200, Body: []byte(`[]`)}}}}
	c := testClient(t, fake)

	_, err := c.GetStatusBy(context.Background(), StatusFilter{})
	require.NoError(t, err)
	require.NotContains(t, fake.lastCall(), "createdTimeFrom")
	require.NotContains(t, fake.lastCall(), "createdTimeTo")
	require.NotContains(t, fake.lastCall(), "runtimeStats")
}

func TestGetStatusByFailsAbove202(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{
		Status: 500,
		Body:   []byte(`"storage unavailable"`),
	}}}}
	c := testClient(t, fake)

	_, err := c.GetStatusBy(context.Background(), StatusFilter{CreatedTimeFrom: time.Now()})
	var uerr *UnexpectedStatusError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, 500, uerr.Status)
	require.Contains(t, uerr.Error(), "storage unavailable")
}

func TestGetStatusDecodesHistory(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{
		Status: 200,
		Body:   []byte(`{"instanceId":"abc123","runtimeStatus":"Completed","historyEvents":[{"EventType":"ExecutionStarted"}]}`),
	}}}}
	c := testClient(t, fake)

	status, err := c.GetStatus(context.Background(), "abc123", WithShowHistory())
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(status.History, &events))
	require.Len(t, events, 1)
}
