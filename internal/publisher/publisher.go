// Package publisher defines the keyword-completion notification interface.
package publisher

import "context"

// Publisher pushes completion events so the pipeline orchestrator can trigger
// downstream stages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
