package storage

import (
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/rs/zerolog/log"
)

// Engine names
const (
	EngineRedis  = "redis"
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
	EngineNoOp   = "noop"
)

// Opener connects to a backend. descriptor is engine-specific: a Redis
// connection descriptor, or a path for the embedded engines. A zero maxAge
// means records never expire.
type Opener func(descriptor string, maxAge time.Duration) (KeyValue, error)

// Engine describes one storage backend: whether its driver is usable and
// which concurrency modes it can serve.
type Engine struct {
	Name string
	// False when the driver couldn't be loaded. An unavailable engine
	// supports no modes at all.
	Available bool
	modes     map[Mode]bool
	open      Opener
}

// NewEngine describes an engine that supports modes whenever it's available.
func NewEngine(name string, available bool, open Opener, modes ...Mode) Engine {
	e := Engine{
		Name:      name,
		Available: available,
		modes:     make(map[Mode]bool, len(modes)),
		open:      open,
	}
	for _, m := range modes {
		e.modes[m] = true
	}
	return e
}

// Supports reports whether Handles in mode m can be opened on e.
func (e Engine) Supports(m Mode) bool {
	return e.Available && e.modes[m]
}

// Modes lists the supported modes in order.
func (e Engine) Modes() []Mode {
	var ms []Mode
	for _, m := range AllModes {
		if e.Supports(m) {
			ms = append(ms, m)
		}
	}
	return ms
}

// NewRedisEngine describes the Redis backend. Multi-process use is never
// supported: a client can't be handed across a process boundary, so each
// process has to open its own.
func NewRedisEngine(available bool, opts RedisOptions) Engine {
	return NewEngine(EngineRedis, available, func(d string, maxAge time.Duration) (KeyValue, error) {
		return NewRedisDB(d, maxAge, opts)
	}, SingleProcess, ThreadShared)
}

// NewBadgerEngine describes the BadgerDB backend, which locks its directory
// against other processes.
func NewBadgerEngine(available bool, opts BadgerOptions) Engine {
	return NewEngine(EngineBadger, available, func(d string, maxAge time.Duration) (KeyValue, error) {
		return NewBadgerDB(d, maxAge, opts)
	}, SingleProcess, ThreadShared)
}

// NewSQLiteEngine describes the SQLite backend. SQLite's file locking makes
// it safe to share between processes.
func NewSQLiteEngine(available bool) Engine {
	return NewEngine(EngineSQLite, available, func(d string, maxAge time.Duration) (KeyValue, error) {
		return NewSQLiteDB(d, maxAge)
	}, SingleProcess, ThreadShared, MultiProcess)
}

// NewNoOpEngine describes an engine that stores nothing.
func NewNoOpEngine() Engine {
	return NewEngine(EngineNoOp, true, func(string, time.Duration) (KeyValue, error) {
		return &NoOpDB{}, nil
	}, AllModes...)
}

// Factory opens Handles by engine name and concurrency mode. It holds no
// state beyond the engine descriptions it was built with.
type Factory struct {
	engines map[string]Engine
	order   []string
}

// Options configures the engines registered by DefaultFactory.
type Options struct {
	Redis  RedisOptions
	Badger BadgerOptions
}

// NewFactory returns a Factory that knows about engines. Later engines with
// the same name replace earlier ones.
func NewFactory(engines ...Engine) *Factory {
	f := &Factory{engines: make(map[string]Engine)}
	for _, e := range engines {
		if _, ok := f.engines[e.Name]; !ok {
			f.order = append(f.order, e.Name)
		}
		f.engines[e.Name] = e
	}
	return f
}

// DefaultFactory registers every engine compiled into this module.
func DefaultFactory(o Options) *Factory {
	return NewFactory(
		NewRedisEngine(true, o.Redis),
		NewBadgerEngine(true, o.Badger),
		NewSQLiteEngine(sqliteAvailable()),
		NewNoOpEngine(),
	)
}

// Engines returns the registered engines in registration order.
func (f *Factory) Engines() []Engine {
	es := make([]Engine, 0, len(f.order))
	for _, n := range f.order {
		es = append(es, f.engines[n])
	}
	return es
}

// Supports reports whether engine can open Handles in mode m. Unknown
// engines support nothing.
func (f *Factory) Supports(engine string, m Mode) bool {
	e, ok := f.engines[engine]
	return ok && e.Supports(m)
}

// Modes lists the modes engine supports. It is empty for unknown or
// unavailable engines.
func (f *Factory) Modes(engine string) []Mode {
	e, ok := f.engines[engine]
	if !ok {
		return nil
	}
	return e.Modes()
}

// Open connects to engine and returns a Handle for mode m. It fails with
// ErrBackendUnavailable if the engine is unknown or unavailable, or doesn't
// support m. A zero maxAge means records never expire.
func (f *Factory) Open(engine string, m Mode, descriptor string, maxAge time.Duration) (*Handle, error) {
	e, ok := f.engines[engine]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q", ErrBackendUnavailable, engine)
	}
	if !e.Available {
		return nil, fmt.Errorf("%w: the %v driver is not available", ErrBackendUnavailable, engine)
	}
	if !e.Supports(m) {
		return nil, fmt.Errorf("%w: %v does not support %v mode", ErrBackendUnavailable, engine, m)
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("max age must not be negative but got %v", maxAge)
	}

	kv, err := e.open(descriptor, maxAge)
	if err != nil {
		return nil, err
	}

	l := log.Info().
		Str("engine", engine).
		Str("mode", m.String())
	if maxAge > 0 {
		l = l.Str("maxAge", units.HumanDuration(maxAge))
	}
	l.Msg("opened the record store")

	return NewHandle(kv, engine, m), nil
}
