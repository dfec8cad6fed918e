package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventSyncStatus        = "repo.sync.status"
	EventAnalysisCompleted = "repo.analysis.completed"
)

// SyncStatusEvent is broadcast on every sync state transition.
type SyncStatusEvent struct {
	RepoName string `json:"repo_name"`
	State    string `json:"state"`
	Commit   string `json:"commit,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AnalysisCompletedEvent is broadcast after an analysis pass replaces a
// repository's project set.
type AnalysisCompletedEvent struct {
	RepoName     string `json:"repo_name"`
	ProjectCount int    `json:"project_count"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
