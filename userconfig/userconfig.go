package userconfig

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/ptgott/repstore/storage"

	yaml "gopkg.in/yaml.v2"
)

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	Storage storage.Config `yaml:"storage"`
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	s, err := m.Storage.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	return Meta{Storage: s}, nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing or validation. The Reader r
// can be either JSON or YAML.
func Parse(r io.Reader) (*Meta, error) {
	var m Meta
	err := yaml.NewDecoder(r).Decode(&m)
	if err != nil {
		return &Meta{}, fmt.Errorf("can't read the config file as YAML: %v", err)
	}

	var sc storage.Config = storage.Config{}
	if m.Storage == sc {
		return &Meta{}, errors.New("must include a \"storage\" section")
	}

	if m.Storage.DryRun || m.Storage.Engine == storage.EngineNoOp {
		log.Debug().Msg(
			"disabling database operations",
		)
	}

	return &m, nil

}
