package common

const (
	ComponentSyncer      = "syncer"
	ComponentEventSource = "event-source"
	ComponentCursorStore = "cursor-store"
	ComponentEntityStore = "entity-store"
	ComponentProjector   = "projector"
	ComponentRPC         = "rpc"
	ComponentAPI         = "api"
	ComponentLease       = "lease"
	ComponentDB          = "db"
	ComponentMetrics     = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentSyncer:      {},
	ComponentEventSource: {},
	ComponentCursorStore: {},
	ComponentEntityStore: {},
	ComponentProjector:   {},
	ComponentRPC:         {},
	ComponentAPI:         {},
	ComponentLease:       {},
	ComponentDB:          {},
	ComponentMetrics:     {},
}
