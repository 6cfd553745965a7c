// Package clientconfig is the CLI Controller's persisted state (spec §6):
// a key-value config file, an ".active-server" liveness record, plus the
// project-resolution order flag → env → cached value → external CLI
// query → error.
//
// Grounded on knative-func/config/config.go's XDG-rooted, product-named
// config directory, adapted from YAML to a flat key-value map since spec
// §6 describes the config store as "string/number/bool values" rather
// than a fixed schema, and swapped to gopkg.in/yaml.v3 (already the
// project's YAML library, per the deploy-manifest parser).
package clientconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const productName = "novafn"

// Store is a key-value config file plus its sibling liveness record, both
// rooted under the same config directory.
type Store struct {
	dir string
}

// Open resolves the config directory (XDG_CONFIG_HOME override, else the
// OS default) and ensures it exists.
func Open() (*Store, error) {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the product's config directory without creating it.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, productName)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, productName)
}

func (s *Store) configPath() string { return filepath.Join(s.dir, "config") }
func (s *Store) activeServerPath() string { return filepath.Join(s.dir, ".active-server") }

// Values is the flat key-value config map, matching spec §6's
// "string/number/bool values" description: every value round-trips
// through its string form and is coerced back on read.
type Values map[string]string

// Load reads the persisted config, returning an empty Values if the file
// doesn't exist yet.
func (s *Store) Load() (Values, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Values{}, nil
		}
		return nil, err
	}
	var v Values
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = Values{}
	}
	return v, nil
}

// Save persists v, overwriting any existing config file.
func (s *Store) Save(v Values) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath(), data, 0o644)
}

// Reset deletes the persisted config file.
func (s *Store) Reset() error {
	err := os.Remove(s.configPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Get looks up key, returning ok=false if unset.
func (v Values) Get(key string) (string, bool) {
	val, ok := v[key]
	return val, ok
}

// GetInt looks up key and parses it as an int, falling back to def.
func (v Values) GetInt(key string, def int) int {
	val, ok := v[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

// GetBool looks up key and parses it as a bool, falling back to def.
func (v Values) GetBool(key string, def bool) bool {
	val, ok := v[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

// ActiveServer is the liveness record start/restart writes and status/kill
// read back, per spec §4.7/§6.
type ActiveServer struct {
	PID       int       `yaml:"pid"`
	RestPort  int       `yaml:"restPort"`
	GRPCPort  int       `yaml:"grpcPort"`
	Host      string    `yaml:"host"`
	StartedAt time.Time `yaml:"startedAt"`
}

// WriteActiveServer persists the liveness record.
func (s *Store) WriteActiveServer(rec ActiveServer) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(s.activeServerPath(), data, 0o644)
}

// ReadActiveServer reads the liveness record. ErrNoActiveServer is
// returned when no daemon has ever been started (or it was cleared).
func (s *Store) ReadActiveServer() (ActiveServer, error) {
	data, err := os.ReadFile(s.activeServerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ActiveServer{}, ErrNoActiveServer
		}
		return ActiveServer{}, err
	}
	var rec ActiveServer
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return ActiveServer{}, err
	}
	return rec, nil
}

// ClearActiveServer removes the liveness record, e.g. on `clear`/`stop`.
func (s *Store) ClearActiveServer() error {
	err := os.Remove(s.activeServerPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ErrNoActiveServer is returned by ReadActiveServer when no daemon has
// been started or its record has been cleared.
var ErrNoActiveServer = errors.New("no active server record")

// ResolveProject implements spec §6's project resolution order: explicit
// flag, then environment, then the cached config value. queryExternal is
// consulted last and may be nil when the caller has no external CLI to
// fall back to (e.g. in a `config set|get|list` command, which is exempt
// per spec §6).
func ResolveProject(flagValue string, cfg Values, queryExternal func() (string, error)) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("GCLOUD_PROJECT"); v != "" {
		return v, nil
	}
	if v, ok := cfg.Get("projectId"); ok && v != "" {
		return v, nil
	}
	if queryExternal != nil {
		if v, err := queryExternal(); err == nil && v != "" {
			return v, nil
		}
	}
	return "", errors.New("no project configured: pass --project, set GCLOUD_PROJECT, or run `novafnctl config set projectId <id>`")
}
