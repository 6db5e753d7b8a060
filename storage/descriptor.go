package storage

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0
	descriptorFields = 4
)

// Descriptor holds the connection settings for a Redis server, parsed from a
// string of the form "host,port,password,db". Empty fields take defaults:
// localhost, 6379, no password and database 0.
type Descriptor struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ParseDescriptor parses s. It rejects anything that doesn't have exactly four
// fields, as well as ports and database numbers that aren't integers, rather
// than falling back to defaults for those.
func ParseDescriptor(s string) (Descriptor, error) {
	fields := strings.Split(s, ",")
	if len(fields) != descriptorFields {
		return Descriptor{}, fmt.Errorf(
			"%w: expected %v comma-separated fields (host,port,password,db) but got %v",
			ErrInvalidDescriptor, descriptorFields, len(fields),
		)
	}

	d := Descriptor{
		Host:     strings.TrimSpace(fields[0]),
		Port:     defaultRedisPort,
		Password: fields[2],
		DB:       defaultRedisDB,
	}
	if d.Host == "" {
		d.Host = defaultRedisHost
	}

	if p := strings.TrimSpace(fields[1]); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Descriptor{}, fmt.Errorf("%w: bad port %q", ErrInvalidDescriptor, p)
		}
		d.Port = port
	}

	if db := strings.TrimSpace(fields[3]); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return Descriptor{}, fmt.Errorf("%w: bad database number %q", ErrInvalidDescriptor, db)
		}
		d.DB = n
	}

	return d, nil
}

// Addr returns the host:port pair to dial.
func (d Descriptor) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// String renders d in descriptor form with the password masked, so it's safe
// to log.
func (d Descriptor) String() string {
	pw := ""
	if d.Password != "" {
		pw = "****"
	}
	return fmt.Sprintf("%v,%v,%v,%v", d.Host, d.Port, pw, d.DB)
}
