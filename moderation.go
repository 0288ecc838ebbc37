package moderation

import "github.com/elum-utils/moderation/core"

// Re-export core API at module root for convenient imports.
type (
	Core         = core.Core
	Options      = core.Options
	Outcome      = core.Outcome
	EventName    = core.EventName
	VerdictEvent = core.VerdictEvent
	EventHandler = core.EventHandler
)

const (
	EventApproved         = core.EventApproved
	EventRejected         = core.EventRejected
	EventFallbackApproved = core.EventFallbackApproved
	EventErrorRejected    = core.EventErrorRejected

	DefaultSentimentThreshold = core.DefaultSentimentThreshold
)

// New creates a new moderation pipeline.
func New(opt Options) *Core {
	return core.New(opt)
}
