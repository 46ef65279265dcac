package client

import (
	"net/http"
	"net/url"
	"strings"
)

// ManagementPayload maps the lifecycle URLs for one orchestration instance.
// Payloads are derived on demand from the configured templates and never
// persisted; callers hand them to their own clients as the "check back later"
// link set.
type ManagementPayload struct {
	// ID is the instance id the URLs address.
	ID string `json:"id"`
	// StatusQueryGetURI queries the instance status.
	StatusQueryGetURI string `json:"statusQueryGetUri"`
	// SendEventPostURI delivers an external event to the instance.
	SendEventPostURI string `json:"sendEventPostUri"`
	// TerminatePostURI terminates the instance.
	TerminatePostURI string `json:"terminatePostUri"`
	// RewindPostURI rewinds the instance when it failed.
	RewindPostURI string `json:"rewindPostUri"`
	// PurgeHistoryDeleteURI purges the instance history.
	PurgeHistoryDeleteURI string `json:"purgeHistoryDeleteUri"`
}

// CreateHTTPManagementPayload builds the management payload for the given
// instance id from the configured templates. Pure; no network call and no
// origin rewrite.
func (c *Client) CreateHTTPManagementPayload(instanceID string) ManagementPayload {
	return c.managementPayload(nil, instanceID)
}

// managementPayload substitutes instanceID for the id placeholder in every
// management template. When r carries a usable origin each URL-shaped value
// is first rewritten to that origin so the links are reachable from the
// caller's network; the rewrite runs before substitution so instance ids
// never feed the URL parser.
func (c *Client) managementPayload(r *http.Request, instanceID string) ManagementPayload {
	origin := requestOrigin(r)
	urls := c.cfg.ManagementURLs
	sub := func(template string) string {
		if origin != "" {
			template = rewriteOrigin(template, origin)
		}
		return strings.ReplaceAll(template, urls.ID, instanceID)
	}
	return ManagementPayload{
		ID:                    sub(urls.ID),
		StatusQueryGetURI:     sub(urls.StatusQueryGetURI),
		SendEventPostURI:      sub(urls.SendEventPostURI),
		TerminatePostURI:      sub(urls.TerminatePostURI),
		RewindPostURI:         sub(urls.RewindPostURI),
		PurgeHistoryDeleteURI: sub(urls.PurgeHistoryDeleteURI),
	}
}

// requestOrigin extracts the scheme://host origin of a trigger request.
// Client-built requests carry an absolute URL; server-dispatched requests
// carry a relative URL and the origin is reconstructed from Host and the TLS
// state. Returns "" when the request offers neither.
func requestOrigin(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" && r.URL.Host != "" {
		return r.URL.Scheme + "://" + r.URL.Host
	}
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// rewriteOrigin replaces the template's own origin with origin. Values that
// do not parse as absolute http(s) URLs pass through untouched, so the id
// placeholder value is never rewritten.
func rewriteOrigin(template, origin string) string {
	u, err := url.Parse(template)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return template
	}
	return strings.Replace(template, u.Scheme+"://"+u.Host, origin, 1)
}
