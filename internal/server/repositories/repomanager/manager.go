// Package repomanager owns the lifecycle of the user store: it opens the
// backend selected by configuration, prepares its schema, hands out the
// users repository and closes the connection on shutdown.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// Backend names accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type RepositoryManager interface {
	// Init prepares the store (migrations, indexes). It is idempotent.
	Init(ctx context.Context) error
	Users() users.Repository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Settings selects and addresses a backend.
type Settings struct {
	Backend       string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string
}

// Open connects to the backend named in s. The caller runs Init and must
// Close the manager.
func Open(ctx context.Context, s Settings) (RepositoryManager, error) {
	switch s.Backend {
	case BackendPostgres:
		return NewPostgresRepositoryManager(ctx, s.DatabaseDSN)
	case BackendMongo:
		return NewMongoRepositoryManager(ctx, s.MongoURI, s.MongoDatabase)
	case BackendMemory:
		return NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Backend)
	}
}
