package storage

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alecthomas/units"
)

// Config contains the user's choice of engine and the settings needed to
// open it
type Config struct {
	Engine string
	Mode   Mode
	// A Redis connection descriptor ("host,port,password,db") or a path
	// for the embedded engines
	Descriptor string
	// Zero means records never expire
	MaxAge time.Duration
	// Redis client timeout and pool size
	Timeout  time.Duration
	PoolSize int
	// Badger value log file size, in bytes
	ValueLogFileSize int64
	// Swap in the no-op engine so nothing is written
	DryRun bool
}

// UnmarshalYAML parses a user-provided YAML configuration, returning any
// parsing errors.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the storage config: %v", err)
	}

	c.Engine = v["engine"]
	c.Descriptor = v["descriptor"]

	c.Mode = ThreadShared
	if m, ok := v["mode"]; ok {
		pm, err := ParseMode(m)
		if err != nil {
			return err
		}
		c.Mode = pm
	}

	for k, d := range map[string]*time.Duration{
		"maxAge":  &c.MaxAge,
		"timeout": &c.Timeout,
	} {
		s, ok := v[k]
		if !ok {
			continue
		}
		pd, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("can't parse %v as a duration: %v", k, err)
		}
		*d = pd
	}

	if dr, ok := v["dryRun"]; ok {
		b, err := strconv.ParseBool(dr)
		if err != nil {
			return fmt.Errorf("can't parse dryRun as a boolean")
		}
		c.DryRun = b
	}

	if ps, ok := v["poolSize"]; ok {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return fmt.Errorf("can't parse the pool size as an integer")
		}
		c.PoolSize = n
	}

	if vs, ok := v["valueLogFileSize"]; ok {
		// Accepts sizes like "64MiB"
		b, err := units.ParseBase2Bytes(vs)
		if err != nil {
			return fmt.Errorf("can't parse the value log file size: %v", err)
		}
		c.ValueLogFileSize = int64(b)
	}

	return nil
}

// CheckAndSetDefaults validates c and either returns a copy of c with default
// settings applied or returns an error due to an invalid configuration
func (c *Config) CheckAndSetDefaults() (Config, error) {
	n := *c
	if n.DryRun {
		n.Engine = EngineNoOp
	}
	if n.Engine == "" {
		n.Engine = EngineRedis
	}

	switch n.Engine {
	case EngineRedis:
		if n.Descriptor == "" {
			n.Descriptor = ",,,"
		}
		if _, err := ParseDescriptor(n.Descriptor); err != nil {
			return Config{}, err
		}
	case EngineSQLite:
		if n.Descriptor == "" {
			return Config{}, errors.New("the sqlite engine needs a database file path as its descriptor")
		}
	case EngineBadger, EngineNoOp:
	default:
		return Config{}, fmt.Errorf("unknown storage engine %q", n.Engine)
	}

	if n.MaxAge < 0 {
		return Config{}, errors.New("maxAge must not be negative")
	}
	if n.Timeout < 0 {
		return Config{}, errors.New("timeout must not be negative")
	}
	if n.PoolSize < 0 {
		return Config{}, errors.New("poolSize must not be negative")
	}
	// Badger's own bounds
	if n.ValueLogFileSize != 0 && (n.ValueLogFileSize < 1<<20 || n.ValueLogFileSize >= 2<<30) {
		return Config{}, errors.New("valueLogFileSize must be at least 1MiB and less than 2GiB")
	}

	return n, nil
}

// Options returns the engine options for DefaultFactory.
func (c *Config) Options() Options {
	return Options{
		Redis: RedisOptions{
			Timeout:  c.Timeout,
			PoolSize: c.PoolSize,
		},
		Badger: BadgerOptions{
			ValueLogFileSize: c.ValueLogFileSize,
		},
	}
}

// Open opens a Handle on f as configured.
func (c *Config) Open(f *Factory) (*Handle, error) {
	return f.Open(c.Engine, c.Mode, c.Descriptor, c.MaxAge)
}
