// Package docfile is an embeddable document store that keeps a collection of
// records in memory and persists it as one JSON or YAML file.
//
//	d := docfile.NewJSON("data/users.json")
//	if err := d.Connect(); err != nil {
//		return err
//	}
//	defer d.Disconnect()
//
//	d.Set(value.MustParseJSONMap(`{"name":"Fulanez"}`))
//	users, err := d.Get(value.MustParseJSONMap(`{"name":"Fulanez"}`))
package docfile

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fulldump/docfile/codec"
	"github.com/fulldump/docfile/collection"
	"github.com/fulldump/docfile/persistence"
	"github.com/fulldump/docfile/value"
)

// Driver owns one collection and its snapshot file. All methods are safe for
// concurrent use, calls are serialized.
type Driver struct {
	mutex      sync.Mutex
	gateway    *persistence.Gateway
	collection *collection.Collection // nil while disconnected

	policy            Policy
	flushOnDisconnect bool
	lenientConnect    bool
	logger            zerolog.Logger
	now               func() time.Time
	newID             func() string
}

func New(filename string, c codec.Codec, options ...Option) *Driver {
	d := &Driver{
		gateway: persistence.NewGateway(filename, c),
		policy:  AutoSave,
		logger:  log.Logger,
		now:     time.Now,
		newID:   collection.NewID,
	}
	for _, option := range options {
		option(d)
	}
	d.logger = d.logger.With().Str("file", filename).Str("format", c.Name()).Logger()
	d.gateway.Logger = d.logger
	d.gateway.Codec = codec.WithLogger(c, d.logger)
	return d
}

func NewJSON(filename string, options ...Option) *Driver {
	return New(filename, codec.NewJSON(), options...)
}

func NewYAML(filename string, y codec.YAML, options ...Option) *Driver {
	return New(filename, y, options...)
}

func (d *Driver) Filename() string {
	return d.gateway.Filename
}

func (d *Driver) Format() string {
	return d.gateway.Codec.Name()
}

func (d *Driver) Policy() Policy {
	return d.policy
}

func (d *Driver) Connected() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.collection != nil
}

// Connect loads the snapshot. A missing file starts an empty collection and,
// under AutoSave, writes an empty snapshot right away. Connecting an already
// connected driver reloads from disk, discarding unsaved changes.
func (d *Driver) Connect() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	records, found, err := d.gateway.Load()
	if err != nil {
		var parseErr *ParseError
		if !d.lenientConnect || !errors.As(err, &parseErr) {
			return fmt.Errorf("connect: %w", err)
		}
		d.logger.Warn().Err(err).Msg("snapshot cannot be parsed, starting empty")
		records = nil
	}

	c := d.newCollection()
	c.Replace(records)

	if !found && d.policy == AutoSave {
		if err := d.gateway.Save(c.Records()); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	d.collection = c
	d.logger.Info().
		Int("records", c.Len()).
		Str("policy", d.policy.String()).
		Msg("connected")

	return nil
}

func (d *Driver) newCollection() *collection.Collection {
	return collection.New(
		collection.WithClock(d.now),
		collection.WithIDGenerator(d.newID),
		collection.WithLogger(d.logger),
	)
}

// Disconnect discards the in-memory collection, flushing it first when
// configured. If that flush fails the driver stays connected. Disconnecting
// a disconnected driver does nothing.
func (d *Driver) Disconnect() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return nil
	}

	if d.flushOnDisconnect {
		if err := d.gateway.Save(d.collection.Records()); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
	}

	d.collection = nil
	d.logger.Info().Msg("disconnected")

	return nil
}

// Set inserts a new record and returns it with its system fields. Under
// AutoSave a failed save is returned together with the record, which is kept
// in memory.
func (d *Driver) Set(fields *value.Map) (*value.Map, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return nil, ErrNotConnected
	}

	record, err := d.collection.Insert(fields)
	if err != nil {
		return nil, err
	}

	return record, d.autoSave("set")
}

func (d *Driver) Get(query *value.Map) ([]*value.Map, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return nil, ErrNotConnected
	}

	return d.collection.Find(query), nil
}

// GetOne returns the first match or ErrNotFound.
func (d *Driver) GetOne(query *value.Map) (*value.Map, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return nil, ErrNotConnected
	}

	record, found := d.collection.FindOne(query)
	if !found {
		return nil, ErrNotFound
	}

	return record, nil
}

// Update merges patch over every record matching query and returns the number
// of matched records.
func (d *Driver) Update(query, patch *value.Map) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return 0, ErrNotConnected
	}

	n, err := d.collection.Update(query, patch)
	if err != nil || n == 0 {
		return 0, err
	}

	return n, d.autoSave("update")
}

func (d *Driver) Delete(query *value.Map) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return 0, ErrNotConnected
	}

	n := d.collection.Delete(query)
	if n == 0 {
		return 0, nil
	}

	return n, d.autoSave("delete")
}

func (d *Driver) Exists(query *value.Map) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return false, ErrNotConnected
	}

	return d.collection.Exists(query), nil
}

func (d *Driver) Count(query *value.Map) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return 0, ErrNotConnected
	}

	return d.collection.Count(query), nil
}

// Clear removes every record.
func (d *Driver) Clear() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return ErrNotConnected
	}

	d.collection.Clear()

	return d.autoSave("clear")
}

// Flush writes the whole collection to disk regardless of the policy.
func (d *Driver) Flush() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return ErrNotConnected
	}

	return d.gateway.Save(d.collection.Records())
}

// Save is an alias of Flush.
func (d *Driver) Save() error {
	return d.Flush()
}

// Drop removes the snapshot file and empties the collection. The driver stays
// connected, the file is written again on the next save.
func (d *Driver) Drop() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return ErrNotConnected
	}

	if err := d.gateway.Drop(); err != nil {
		return err
	}
	d.collection.Clear()
	d.logger.Info().Msg("dropped")

	return nil
}

// Reload replaces memory with the snapshot on disk. Parse errors are always
// returned and the in-memory collection is kept in that case.
func (d *Driver) Reload() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.collection == nil {
		return ErrNotConnected
	}

	records, _, err := d.gateway.Load()
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	d.collection.Replace(records)
	d.logger.Debug().Int("records", d.collection.Len()).Msg("reloaded")

	return nil
}

// Len is Count without a query.
func (d *Driver) Len() (int, error) {
	return d.Count(nil)
}

func (d *Driver) autoSave(op string) error {
	if d.policy != AutoSave {
		return nil
	}
	err := d.gateway.Save(d.collection.Records())
	if err != nil {
		d.logger.Error().Err(err).Str("op", op).Msg("autosave failed, memory and disk diverge until the next flush")
	}
	return err
}
