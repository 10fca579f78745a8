package http

import (
	"github.com/jonboulle/clockwork"

	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/adapters/valkey"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Search  *usecases.SearchService
	History *usecases.HistoryService

	// Sessions opened on /ws share the gateway and recorder.
	Gateway         ports.ProviderGateway
	Recorder        ports.SearchRecorder
	SessionDefaults usecases.SessionConfig
	Clock           clockwork.Clock

	// Optional infrastructure, reported by /v1/ready.
	DB    *postgres.DB
	Cache *valkey.Cache
	NATS  *natsadapter.Publisher
}
