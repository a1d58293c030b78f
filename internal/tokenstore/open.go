package tokenstore

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendKeyring = "keyring"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	RedisURL string
	Profile  string
}

// Open builds a Store from opts. The keyring is the default backend.
// The returned close function is always non-nil.
func Open(ctx context.Context, opts Options) (*Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendKeyring:
		b, err := OpenKeyring()
		if err != nil {
			return nil, noop, err
		}
		return New(b, opts.Profile), noop, nil
	case BackendRedis:
		b, err := OpenRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return New(b, opts.Profile), b.Close, nil
	case BackendMemory:
		return New(NewMemoryBackend(), opts.Profile), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown token store %q (expected %s, %s or %s)",
			opts.Backend, BackendKeyring, BackendRedis, BackendMemory)
	}
}
