package client

import (
	"encoding/json"
	"time"
)

type (
	// RuntimeStatus classifies the lifecycle state of an orchestration
	// instance. Values use the wire spelling reported by the host.
	RuntimeStatus string

	// OrchestrationStatus is a point-in-time snapshot of one instance as
	// reported by the status webhook. Snapshots are fetched per query and
	// never cached. Input, CustomStatus and Output pass through as raw JSON;
	// their shape belongs to the orchestrator, not this client.
	OrchestrationStatus struct {
		// Name is the orchestrator function the instance executes.
		Name string `json:"name"`
		// InstanceID identifies the instance.
		InstanceID string `json:"instanceId"`
		// CreatedTime is when the instance was scheduled.
		CreatedTime time.Time `json:"createdTime"`
		// LastUpdatedTime is when the host last recorded progress.
		LastUpdatedTime time.Time `json:"lastUpdatedTime"`
		// Input is the instance input, echoed back by the host.
		Input json.RawMessage `json:"input,omitempty"`
		// CustomStatus is the orchestrator-set progress value.
		CustomStatus json.RawMessage `json:"customStatus,omitempty"`
		// Output is the instance result once it completed.
		Output json.RawMessage `json:"output,omitempty"`
		// RuntimeStatus is the lifecycle state at query time.
		RuntimeStatus RuntimeStatus `json:"runtimeStatus"`
		// History holds the execution history events, populated only when the
		// query asked for them.
		History json.RawMessage `json:"historyEvents,omitempty"`
	}
)

const (
	// RuntimeStatusRunning indicates the instance is actively executing.
	RuntimeStatusRunning RuntimeStatus = "Running"
	// RuntimeStatusCompleted indicates the instance finished successfully.
	RuntimeStatusCompleted RuntimeStatus = "Completed"
	// RuntimeStatusContinuedAsNew indicates the instance restarted itself with
	// a fresh history.
	RuntimeStatusContinuedAsNew RuntimeStatus = "ContinuedAsNew"
	// RuntimeStatusFailed indicates the instance failed with an error.
	RuntimeStatusFailed RuntimeStatus = "Failed"
	// RuntimeStatusCanceled indicates the instance was canceled.
	RuntimeStatusCanceled RuntimeStatus = "Canceled"
	// RuntimeStatusTerminated indicates the instance was forcibly terminated.
	RuntimeStatusTerminated RuntimeStatus = "Terminated"
	// RuntimeStatusPending indicates the instance was scheduled but has not
	// started yet.
	RuntimeStatusPending RuntimeStatus = "Pending"
	// RuntimeStatusUnknown indicates the host could not determine the state.
	RuntimeStatusUnknown RuntimeStatus = "Unknown"
)
