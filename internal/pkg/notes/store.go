// Package notes persists the free-text clinical note of each patient.
// Writes are last-write-wins and unversioned.
package notes

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kart-io/logger"
	options "github.com/kart-io/los-insight/pkg/options/notes"
)

// Store maps patient id to note text.
type Store interface {
	// Get returns "" and a nil error when the patient has no note.
	Get(ctx context.Context, patientID string) (string, error)
	Put(ctx context.Context, patientID, text string) error
	All(ctx context.Context) (map[string]string, error)
	Close() error
}

// Clients carries the shared connections some backends need. Fields may be
// nil when the selected backend does not use them.
type Clients struct {
	Redis goredis.UniversalClient
	Mongo *mongo.Database
}

// New opens the backend selected by opts.
func New(ctx context.Context, opts *options.Options, clients Clients) (Store, error) {
	if opts == nil {
		opts = options.NewOptions()
	}

	switch opts.Backend {
	case options.BackendFile:
		s, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, err
		}
		logger.Infow("Notes store opened", "backend", opts.Backend, "path", opts.Path)
		return s, nil
	case options.BackendRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("notes: redis backend requires a redis client")
		}
		logger.Infow("Notes store opened", "backend", opts.Backend, "key", opts.KeyPrefix+hashKey)
		return NewRedisStore(clients.Redis, opts.KeyPrefix), nil
	case options.BackendMongo:
		if clients.Mongo == nil {
			return nil, fmt.Errorf("notes: mongo backend requires a mongodb database")
		}
		logger.Infow("Notes store opened", "backend", opts.Backend, "collection", opts.Collection)
		return NewMongoStore(clients.Mongo, opts.Collection), nil
	case options.BackendGorm:
		db, err := OpenDB(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		s, err := NewGormStore(ctx, db)
		if err != nil {
			return nil, err
		}
		logger.Infow("Notes store opened", "backend", opts.Backend, "driver", opts.Driver)
		return s, nil
	default:
		return nil, fmt.Errorf("notes: unsupported backend %q", opts.Backend)
	}
}
