package drafts

import (
	"fmt"
	"io"
	"strings"
)

// Backend kinds accepted by Open.
const (
	KindFile     = "file"
	KindRedis    = "redis"
	KindMinio    = "minio"
	KindPostgres = "postgres"
)

// Options selects and configures a Backend.
type Options struct {
	Kind          string
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisKey      string
	Minio         MinioOptions
	DatabaseURL   string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend named by opts.Kind. The returned Closer releases
// its connections.
func Open(opts Options) (Backend, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindFile:
		store, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case KindRedis:
		store := NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisKey)
		return store, store, nil
	case KindMinio:
		store, err := NewMinioStore(opts.Minio)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case KindPostgres:
		store, err := NewGormStore(opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown drafts backend %q", opts.Kind)
	}
}
