package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/durable/webhook"
)

func TestPurgeInstanceHistory(t *testing.T) {
	t.Parallel()
	var (
		gotMethod string
		gotURL    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURL = r.URL.String()
		_, _ = w.Write([]byte(`{"instancesDeleted": 1}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	result, err := c.PurgeInstanceHistory(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/runtime/webhooks/durabletask/instances/abc123?taskHub=TestHub&connection=Storage&code=key123", gotURL)
	require.Equal(t, 1, result.InstancesDeleted)
}

func TestPurgeInstanceHistoryNotFound(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 404}}}}
	c := testClient(t, fake)

	_, err := c.PurgeInstanceHistory(context.Background(), "missing")
	require.ErrorIs(t, err, ErrInstanceNotFound)
	require.Contains(t, err.Error(), "missing")
}

func TestPurgeInstanceHistoryUnexpectedStatus(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 500, Body: []byte(`"storage error"`)}}}}
	c := testClient(t, fake)

	_, err := c.PurgeInstanceHistory(context.Background(), "abc123")
	var uerr *UnexpectedStatusError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, 500, uerr.Status)
}

func TestPurgeInstanceHistoryBy(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{
		Status: 200,
		Body:   []byte(`{"instancesDeleted": 7}`),
	}}}}
	c := testClient(t, fake)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	result, err := c.PurgeInstanceHistoryBy(context.Background(), PurgeFilter{
		CreatedTimeFrom: from,
		CreatedTimeTo:   to,
		RuntimeStatuses: []RuntimeStatus{RuntimeStatusCompleted, RuntimeStatusFailed},
	})
	require.NoError(t, err)
	require.Equal(t, 7, result.InstancesDeleted)

	u := fake.lastCall()
	require.Contains(t, u, "/instances/?")
	require.Contains(t, u, "&createdTimeFrom=2026-01-01T00:00:00Z")
	require.Contains(t, u, "&createdTimeTo=2026-02-01T00:00:00Z")
	require.Contains(t, u, "&runtimeStatus=Completed,Failed")
	require.NotContains(t, u, "runtimeStats=")
	require.NotContains(t, u, testIDToken)
}

func TestPurgeInstanceHistoryByRequiresFrom(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{}
	c := testClient(t, fake)

	_, err := c.PurgeInstanceHistoryBy(context.Background(), PurgeFilter{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "createdTimeFrom is required")
	require.Zero(t, fake.callCount())
}

func TestPurgeInstanceHistoryByNoMatches(t *testing.T) {
	t.Parallel()
	fake := &fakeCaller{results: []fakeResult{{res: &webhook.Result{Status: 404}}}}
	c := testClient(t, fake)

	_, err := c.PurgeInstanceHistoryBy(context.Background(), PurgeFilter{CreatedTimeFrom: time.Now()})
	require.ErrorIs(t, err, ErrNoInstancesPurged)
}
