// Package cache keeps envelopes on disk, one file per envelope, until they are sent.
package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/parcel/pkg/envelope"
	"github.com/ssargent/parcel/pkg/idgen"
)

// Extension of cached envelope files
const Extension = ".envelope"

// ErrNotFound is returned when a cached envelope does not exist
var ErrNotFound = errors.New("cached envelope not found")

// Config holds configuration for the cache
type Config struct {
	Dir          string         // Directory holding envelope files
	MaxEnvelopes int            // Oldest files are evicted beyond this count (0 = unbounded)
	Logger       zerolog.Logger // Reports evictions
}

// Cache stores envelopes as files named by KSUID so that directory order is arrival order
type Cache struct {
	config Config
	ids    *idgen.Generator
	mutex  sync.Mutex
}

// Open creates the cache directory if needed
func Open(config Config) (*Cache, error) {
	if err := os.MkdirAll(config.Dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "create cache dir %s", config.Dir)
	}
	c := &Cache{config: config, ids: idgen.New()}
	names, err := c.list()
	if err != nil {
		return nil, err
	}
	if n := len(names); n > 0 {
		if id, err := ksuid.Parse(strings.TrimSuffix(names[n-1], Extension)); err == nil {
			c.ids.Observe(id)
		}
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.config.Dir
}

// Store writes env to a new file and returns its name. The file is a
// persistent destination, so the stored envelope carries no sent_at.
func (c *Cache) Store(env *envelope.Envelope) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := c.ids.Next().String() + Extension
	path := filepath.Join(c.config.Dir, name)
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", errors.Wrap(err, "create cache file")
	}

	if err := env.Serialize(file, envelope.WithLogger(c.config.Logger)); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", errors.Wrap(err, "write cache file")
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", errors.Wrap(err, "sync cache file")
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(err, "close cache file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(err, "publish cache file")
	}

	if err := c.evict(); err != nil {
		return name, err
	}
	return name, nil
}

// List returns cached envelope names, oldest first
func (c *Cache) List() ([]string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.list()
}

func (c *Cache) list() ([]string, error) {
	entries, err := os.ReadDir(c.config.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "read cache dir")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a cached envelope. The caller owns the returned envelope.
func (c *Cache) Load(name string) (*envelope.Envelope, error) {
	path, err := c.path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrap(err, name), ErrNotFound)
		}
		return nil, err
	}
	defer file.Close()

	env, err := envelope.Deserialize(file)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return env, nil
}

// Remove deletes a cached envelope, typically after it was sent
func (c *Cache) Remove(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	path, err := c.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Mark(errors.Wrap(err, name), ErrNotFound)
		}
		return err
	}
	return nil
}

func (c *Cache) path(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, Extension) {
		return "", errors.Mark(errors.Newf("invalid cache entry name %q", name), ErrNotFound)
	}
	return filepath.Join(c.config.Dir, name), nil
}

// evict removes the oldest files beyond MaxEnvelopes
func (c *Cache) evict() error {
	if c.config.MaxEnvelopes <= 0 {
		return nil
	}
	names, err := c.list()
	if err != nil {
		return err
	}
	for len(names) > c.config.MaxEnvelopes {
		oldest := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(c.config.Dir, oldest)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "evict %s", oldest)
		}
		c.config.Logger.Warn().Str("envelope", oldest).Msg("cache is full, evicted oldest envelope")
	}
	return nil
}
