package types

import (
	"github.com/killallgit/transcript-sync/internal/database"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/internal/services/regions"
	"github.com/killallgit/transcript-sync/internal/services/snapshots"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB            *database.DB
	RegionService regions.Service
	Broker        snapshots.Broker
	Tokens        identity.Verifier // nil accepts the X-User-ID header
	Version       string

	// StreamsDone is closed when the server shuts down
	StreamsDone <-chan struct{}
}
