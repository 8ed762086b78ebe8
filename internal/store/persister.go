package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/planner/internal/metrics"
	"github.com/mmynk/planner/internal/storage"
)

// WriteFailure describes a durable write that did not go through.
// The in-memory state it was meant to persist is still in place.
type WriteFailure struct {
	Key  string
	Kind storage.FailureKind
	Err  error
}

// LoadFailure describes a key that was skipped during Load.
type LoadFailure struct {
	Key string
	Err error
}

// Options configures a Persister and everything built on it.
type Options struct {
	// NewID generates entity identifiers. Defaults to uuid.NewString.
	NewID func() string

	// Now is the clock used for creation stamps. Defaults to time.Now.
	Now func() time.Time

	// OnWriteError is called after a failed write, outside any lock.
	OnWriteError func(WriteFailure)

	// OnLoadError is called for every key skipped during Load, after the
	// store lock has been released.
	OnLoadError func(LoadFailure)

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Persister serializes collections into a storage.KV.
//
// Writes are suppressed until MarkHydrated is called, so that collections
// initialized empty never overwrite saved data before it has been read.
type Persister struct {
	mu       sync.RWMutex
	kv       storage.KV
	opts     Options
	hydrated bool

	// loadFailures are queued under mu and drained by flushLoadFailures.
	loadFailures []LoadFailure
}

// NewPersister wraps kv.
func NewPersister(kv storage.KV, opts Options) *Persister {
	return &Persister{kv: kv, opts: opts.withDefaults()}
}

// MarkHydrated enables writes. Call it once the initial load is done.
func (p *Persister) MarkHydrated() {
	p.mu.Lock()
	p.hydrated = true
	p.mu.Unlock()
}

// Hydrated reports whether writes are enabled.
func (p *Persister) Hydrated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hydrated
}

// write stores v under key. Callers hold p.mu.
// The failure, if any, must be passed to report after unlocking.
func (p *Persister) write(ctx context.Context, key string, v any) *WriteFailure {
	if !p.hydrated {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return &WriteFailure{Key: key, Kind: storage.FailureOther, Err: fmt.Errorf("failed to encode %s: %w", key, err)}
	}
	if err := p.kv.Set(ctx, key, data); err != nil {
		return &WriteFailure{Key: key, Kind: storage.Classify(err), Err: err}
	}

	metrics.RecordWrite(key, "ok")
	p.opts.Logger.Debug("Collection persisted", "key", key, "bytes", len(data))
	return nil
}

// remove deletes key. Callers hold p.mu.
func (p *Persister) remove(ctx context.Context, key string) *WriteFailure {
	if err := p.kv.Remove(ctx, key); err != nil {
		return &WriteFailure{Key: key, Kind: storage.Classify(err), Err: err}
	}
	return nil
}

// read decodes key into dst. A missing key leaves dst untouched and
// returns false with no error.
func (p *Persister) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return true, nil
}

// report logs failures and forwards them to the callbacks.
func (p *Persister) report(failures ...*WriteFailure) {
	for _, f := range failures {
		if f == nil {
			continue
		}
		metrics.RecordWrite(f.Key, string(f.Kind))
		if f.Kind == storage.FailureQuota {
			p.opts.Logger.Error("Storage quota exceeded, change kept in memory only", "key", f.Key, "error", f.Err)
		} else {
			p.opts.Logger.Error("Storage write failed", "key", f.Key, "error", f.Err)
		}
		if p.opts.OnWriteError != nil {
			p.opts.OnWriteError(*f)
		}
	}
}

// loadFailed records a skipped key. Callers hold p.mu and call
// flushLoadFailures once it is released.
func (p *Persister) loadFailed(key string, err error) {
	metrics.RecordLoadFailure(key)
	p.opts.Logger.Warn("Collection load failed, starting empty", "key", key, "error", err)
	p.loadFailures = append(p.loadFailures, LoadFailure{Key: key, Err: err})
}

// flushLoadFailures hands queued load failures to OnLoadError. It must be
// called without p.mu held.
func (p *Persister) flushLoadFailures() {
	p.mu.Lock()
	failures := p.loadFailures
	p.loadFailures = nil
	p.mu.Unlock()

	if p.opts.OnLoadError == nil {
		return
	}
	for _, f := range failures {
		p.opts.OnLoadError(f)
	}
}
