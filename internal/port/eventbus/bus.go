// Package eventbus defines the port for publishing engine events to
// collaborators (dashboard, VS Code extension).
package eventbus

import "context"

// Subjects published by the engine.
const (
	SubjectSyncCompleted     = "repos.sync.completed"
	SubjectAnalysisCompleted = "repos.analysis.completed"
)

// Publisher is the port interface for emitting events. Implementations must
// not block the sync/analysis path on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Nop is a Publisher that discards everything, used when no broker is
// configured.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(context.Context, string, []byte) error { return nil }
