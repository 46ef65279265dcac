package client

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Query string keys appended to the status-query template. Appends are
// literal `&key=value` text: the templates end in a query string, so every
// append extends one. The host reads runtimeStats on status queries and
// runtimeStatus on purge queries; the differing spellings are part of the
// webhook contract.
const (
	createdTimeFromKey   = "createdTimeFrom"
	createdTimeToKey     = "createdTimeTo"
	runtimeStatsKey      = "runtimeStats"
	runtimeStatusKey     = "runtimeStatus"
	showHistoryKey       = "showHistory"
	showHistoryOutputKey = "showHistoryOutput"
	showInputKey         = "showInput"
)

type (
	// StatusOption adjusts the detail flags of a single status query.
	StatusOption func(*statusOptions)

	statusOptions struct {
		showHistory       bool
		showHistoryOutput bool
		showInput         *bool
	}

	// StatusFilter selects instances by creation window and runtime status.
	// Zero fields are omitted from the query.
	StatusFilter struct {
		// CreatedTimeFrom keeps instances created at or after this time.
		CreatedTimeFrom time.Time
		// CreatedTimeTo keeps instances created at or before this time.
		CreatedTimeTo time.Time
		// RuntimeStatuses keeps instances in any of the given states.
		RuntimeStatuses []RuntimeStatus
	}
)

// WithShowHistory includes the execution history in the returned status.
func WithShowHistory() StatusOption {
	return func(o *statusOptions) {
		o.showHistory = true
	}
}

// WithShowHistoryOutput includes activity outputs within the returned
// history.
func WithShowHistoryOutput() StatusOption {
	return func(o *statusOptions) {
		o.showHistoryOutput = true
	}
}

// WithShowInput controls whether the instance input is echoed in the status.
// Left unset the host default applies.
func WithShowInput(show bool) StatusOption {
	return func(o *statusOptions) {
		o.showInput = &show
	}
}

// GetStatus fetches the status of one instance. Status codes 200, 202, 400,
// 404 and 500 all resolve with the decoded body; the caller inspects
// RuntimeStatus to tell a running instance from a finished or failed one. A
// response with an empty body resolves to a nil status. Any other code fails
// with *UnexpectedStatusError.
func (c *Client) GetStatus(ctx context.Context, instanceID string, opts ...StatusOption) (status *OrchestrationStatus, err error) {
	ctx, finish := c.observe(ctx, "get_status", attribute.String("instance.id", instanceID))
	defer func() { finish(err) }()

	var o statusOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.StatusQueryGetURI, urls.ID, instanceID)
	if o.showHistory {
		requestURL += "&" + showHistoryKey + "=true"
	}
	if o.showHistoryOutput {
		requestURL += "&" + showHistoryOutputKey + "=true"
	}
	if o.showInput != nil {
		requestURL += "&" + showInputKey + "=" + strconv.FormatBool(*o.showInput)
	}

	result, err := c.caller.Get(ctx, requestURL, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	switch result.Status {
	case http.StatusOK, http.StatusAccepted, http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError:
		if len(result.Body) == 0 {
			return nil, nil
		}
		status = &OrchestrationStatus{}
		if err = result.Decode(status); err != nil {
			return nil, err
		}
		return status, nil
	default:
		return nil, &UnexpectedStatusError{Op: "get status", Status: result.Status, Body: result.Body}
	}
}

// GetStatusAll fetches the status of every instance the task hub knows. The
// response body is decoded whatever the status code; an empty body yields an
// empty result.
func (c *Client) GetStatusAll(ctx context.Context) (statuses []OrchestrationStatus, err error) {
	ctx, finish := c.observe(ctx, "get_status_all")
	defer func() { finish(err) }()

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.StatusQueryGetURI, urls.ID, "")
	result, err := c.caller.Get(ctx, requestURL, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	if len(result.Body) == 0 {
		return nil, nil
	}
	if err = result.Decode(&statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetStatusBy fetches the status of the instances matching the filter. A
// response status above 202 fails with the body as detail.
func (c *Client) GetStatusBy(ctx context.Context, filter StatusFilter) (statuses []OrchestrationStatus, err error) {
	ctx, finish := c.observe(ctx, "get_status_by")
	defer func() { finish(err) }()

	urls := c.cfg.ManagementURLs
	requestURL := strings.ReplaceAll(urls.StatusQueryGetURI, urls.ID, "") + filter.query()
	result, err := c.caller.Get(ctx, requestURL, c.callOpts()...)
	if err != nil {
		return nil, err
	}
	if result.Status > http.StatusAccepted {
		return nil, &UnexpectedStatusError{Op: "get status by", Status: result.Status, Body: result.Body}
	}
	if len(result.Body) == 0 {
		return nil, nil
	}
	if err = result.Decode(&statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// query renders the filter as literal query appends.
func (f StatusFilter) query() string {
	var sb strings.Builder
	if !f.CreatedTimeFrom.IsZero() {
		sb.WriteString("&" + createdTimeFromKey + "=" + f.CreatedTimeFrom.UTC().Format(time.RFC3339))
	}
	if !f.CreatedTimeTo.IsZero() {
		sb.WriteString("&" + createdTimeToKey + "=" + f.CreatedTimeTo.UTC().Format(time.RFC3339))
	}
	if len(f.RuntimeStatuses) > 0 {
		sb.WriteString("&" + runtimeStatsKey + "=" + joinStatuses(f.RuntimeStatuses))
	}
	return sb.String()
}

// joinStatuses renders runtime statuses as the comma-joined list the webhook
// expects.
func joinStatuses(statuses []RuntimeStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
