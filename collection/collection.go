package collection

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fulldump/docfile/match"
	"github.com/fulldump/docfile/value"
)

// System fields, assigned by the collection.
const (
	FieldID        = "_id"
	FieldCreatedAt = "_createdAt"
	FieldUpdatedAt = "_updatedAt"
)

// StampLayout formats timestamps in UTC with millisecond precision so that
// they sort lexicographically.
const StampLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrIDCollision = errors.New("could not generate a unique _id")

const idAttempts = 8

// Collection is an ordered, in-memory list of records. It is not safe for
// concurrent use, the owner serializes access.
type Collection struct {
	Rows      []*Row
	ids       *IndexID
	dupIDs    int
	now       func() time.Time
	newID     func() string
	lastStamp string
	logger    zerolog.Logger
}

type Row struct {
	I       int // position in Rows
	Payload *value.Map
}

type Option func(c *Collection)

func WithClock(now func() time.Time) Option {
	return func(c *Collection) {
		c.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Collection) {
		c.newID = newID
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Collection) {
		c.logger = l
	}
}

func New(options ...Option) *Collection {
	c := &Collection{
		Rows:   []*Row{},
		ids:    NewIndexID(),
		now:    time.Now,
		newID:  NewID,
		logger: log.Logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// NewID returns a UUIDv7: a millisecond timestamp followed by random bits.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func isSystemField(key string) bool {
	return key == FieldID || key == FieldCreatedAt || key == FieldUpdatedAt
}

// Insert appends a new record built from fields and returns a copy of it.
// System fields present in fields are ignored. Values that cannot be
// persisted are rejected and the collection is left untouched.
func (c *Collection) Insert(fields *value.Map) (*value.Map, error) {

	if err := validateFields(fields); err != nil {
		return nil, err
	}

	id, err := c.uniqueID()
	if err != nil {
		return nil, err
	}
	stamp := value.String(c.stamp())

	record := value.NewMap().Set(FieldID, value.String(id))
	fields.Range(func(key string, v value.Value) bool {
		if !isSystemField(key) {
			record.Set(key, v.Clone())
		}
		return true
	})
	record.Set(FieldCreatedAt, stamp)
	record.Set(FieldUpdatedAt, stamp)

	row := &Row{
		I:       len(c.Rows),
		Payload: record,
	}
	if err := c.ids.AddRow(row); err != nil {
		return nil, err
	}
	c.Rows = append(c.Rows, row)

	return record.Clone(), nil
}

func validateFields(fields *value.Map) error {
	var err error
	fields.Range(func(key string, v value.Value) bool {
		if isSystemField(key) {
			return true
		}
		err = value.ValidateEntry(key, v)
		return err == nil
	})
	return err
}

func (c *Collection) uniqueID() (string, error) {
	for i := 0; i < idAttempts; i++ {
		id := c.newID()
		if !c.ids.Has(id) {
			return id, nil
		}
		c.logger.Warn().Str("id", id).Msg("generated _id already exists, retrying")
	}
	return "", ErrIDCollision
}

// stamp returns the current time, never earlier than the previous stamp.
func (c *Collection) stamp() string {
	s := c.now().UTC().Format(StampLayout)
	if s < c.lastStamp {
		s = c.lastStamp
	}
	c.lastStamp = s
	return s
}

// Traverse calls f for every row matching query, in storage order, until f
// returns false.
func (c *Collection) Traverse(query *value.Map, f func(row *Row) bool) {

	if id, ok := lookupID(query); ok && c.dupIDs == 0 {
		row, found := c.ids.Get(id)
		if found {
			f(row)
		}
		return
	}

	for _, row := range c.Rows {
		if !match.Matches(row.Payload, query) {
			continue
		}
		if !f(row) {
			return
		}
	}
}

// Find returns copies of the matching records.
func (c *Collection) Find(query *value.Map) []*value.Map {
	result := []*value.Map{}
	c.Traverse(query, func(row *Row) bool {
		result = append(result, row.Payload.Clone())
		return true
	})
	return result
}

func (c *Collection) FindOne(query *value.Map) (*value.Map, bool) {
	var result *value.Map
	c.Traverse(query, func(row *Row) bool {
		result = row.Payload.Clone()
		return false
	})
	return result, result != nil
}

func (c *Collection) Exists(query *value.Map) bool {
	_, found := c.FindOne(query)
	return found
}

func (c *Collection) Count(query *value.Map) int {
	if query.Len() == 0 {
		return len(c.Rows)
	}
	n := 0
	c.Traverse(query, func(row *Row) bool {
		n++
		return true
	})
	return n
}

// Update merges patch over every matching record and returns how many were
// changed. `_id` and `_createdAt` keep their values, `_updatedAt` is bumped.
// A patch with values that cannot be persisted changes nothing.
func (c *Collection) Update(query, patch *value.Map) (int, error) {

	if err := validateFields(patch); err != nil {
		return 0, err
	}

	var stamp value.Value
	n := 0
	c.Traverse(query, func(row *Row) bool {
		if n == 0 {
			stamp = value.String(c.stamp())
		}
		patch.Range(func(key string, v value.Value) bool {
			if !isSystemField(key) {
				row.Payload.Set(key, v.Clone())
			}
			return true
		})
		row.Payload.Set(FieldUpdatedAt, stamp)
		n++
		return true
	})

	return n, nil
}

// Delete removes every matching record and returns how many were removed.
// The remaining records keep their relative order.
func (c *Collection) Delete(query *value.Map) int {

	remove := map[*Row]bool{}
	c.Traverse(query, func(row *Row) bool {
		remove[row] = true
		return true
	})
	if len(remove) == 0 {
		return 0
	}

	kept := make([]*Row, 0, len(c.Rows)-len(remove))
	for _, row := range c.Rows {
		if remove[row] {
			c.ids.RemoveRow(row)
			continue
		}
		row.I = len(kept)
		kept = append(kept, row)
	}
	c.Rows = kept

	if c.dupIDs > 0 {
		c.reindex()
	}

	return len(remove)
}

func (c *Collection) Clear() {
	c.Rows = []*Row{}
	c.ids.Clear()
	c.dupIDs = 0
}

func (c *Collection) Len() int {
	return len(c.Rows)
}

// Records exposes the stored records in order, callers must not modify them.
func (c *Collection) Records() []*value.Map {
	records := make([]*value.Map, len(c.Rows))
	for i, row := range c.Rows {
		records[i] = row.Payload
	}
	return records
}

// Replace discards the current content and takes ownership of records.
func (c *Collection) Replace(records []*value.Map) {
	c.Rows = make([]*Row, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		c.Rows = append(c.Rows, &Row{I: len(c.Rows), Payload: record})
	}
	c.reindex()
}

func (c *Collection) reindex() {
	c.ids.Clear()
	c.dupIDs = 0
	for _, row := range c.Rows {
		if err := c.ids.AddRow(row); err != nil {
			c.dupIDs++
			c.logger.Warn().Err(err).Int("row", row.I).Msg("duplicated _id")
		}
	}
}
