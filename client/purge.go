package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

type (
	// PurgeFilter selects the instances whose history a bulk purge removes.
	// CreatedTimeFrom is required; the other fields are omitted from the
	// query when zero.
	PurgeFilter struct {
		// CreatedTimeFrom keeps instances created at or after this time.
		CreatedTimeFrom time.Time
		// CreatedTimeTo keeps instances created at or before this time.
		CreatedTimeTo time.Time
		// RuntimeStatuses keeps instances in any of the given states.
		RuntimeStatuses []RuntimeStatus
	}

	// PurgeHistoryResult reports how many instance histories a purge removed.
	PurgeHistoryResult struct {
		// InstancesDeleted is the number of purged instances.
		InstancesDeleted int `json:"instancesDeleted"`
	}
)

// PurgeInstanceHistory deletes the stored history of one instance. 200
// resolves with the purge result, 404 fails with ErrInstanceNotFound,
// anything else with *UnexpectedStatusError.
func (c *Client) PurgeInstanceHistory(ctx context.Context, instanceID string) (result *PurgeHistoryResult, err error) {
	ctx, finish := c.observe(ctx, "purge_history", attribute.String("instance.id", instanceID))
	defer func() { finish(err) }()

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.PurgeHistoryDeleteURI, urls.ID, instanceID)

	res, err := c.caller.Delete(ctx, requestURL, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case http.StatusOK:
		result = &PurgeHistoryResult{}
		if err = res.Decode(result); err != nil {
			return nil, err
		}
		return result, nil
	case http.StatusNotFound:
		return nil, instanceNotFound(instanceID)
	default:
		return nil, &UnexpectedStatusError{Op: "purge history", Status: res.Status, Body: res.Body}
	}
}

// PurgeInstanceHistoryBy deletes the stored history of every instance
// matching the filter. CreatedTimeFrom is required and the call fails with no
// network exchange without it. 200 resolves with the purge result, 404 fails
// with ErrNoInstancesPurged, anything else with *UnexpectedStatusError.
func (c *Client) PurgeInstanceHistoryBy(ctx context.Context, filter PurgeFilter) (result *PurgeHistoryResult, err error) {
	ctx, finish := c.observe(ctx, "purge_history_by")
	defer func() { finish(err) }()

	if filter.CreatedTimeFrom.IsZero() {
		return nil, errors.New("durable: createdTimeFrom is required")
	}
	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.StatusQueryGetURI, urls.ID, "") + filter.query()

	res, err := c.caller.Delete(ctx, requestURL, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case http.StatusOK:
		result = &PurgeHistoryResult{}
		if err = res.Decode(result); err != nil {
			return nil, err
		}
		return result, nil
	case http.StatusNotFound:
		return nil, ErrNoInstancesPurged
	default:
		return nil, &UnexpectedStatusError{Op: "purge history by", Status: res.Status, Body: res.Body}
	}
}

// query renders the filter as literal query appends. Bulk purges address the
// status-query endpoint with the DELETE method, so the appends extend its
// query string.
func (f PurgeFilter) query() string {
	var sb strings.Builder
	sb.WriteString("&" + createdTimeFromKey + "=" + f.CreatedTimeFrom.UTC().Format(time.RFC3339))
	if !f.CreatedTimeTo.IsZero() {
		sb.WriteString("&" + createdTimeToKey + "=" + f.CreatedTimeTo.UTC().Format(time.RFC3339))
	}
	if len(f.RuntimeStatuses) > 0 {
		sb.WriteString("&" + runtimeStatusKey + "=" + joinStatuses(f.RuntimeStatuses))
	}
	return sb.String()
}
