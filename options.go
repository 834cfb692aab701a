package docfile

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fulldump/docfile/persistence"
)

// Policy decides when memory is written to disk.
type Policy int

const (
	// AutoSave writes the snapshot after every call that changed something.
	AutoSave Policy = iota
	// Manual keeps changes in memory until Flush.
	Manual
)

func (p Policy) String() string {
	switch p {
	case AutoSave:
		return "autosave"
	case Manual:
		return "manual"
	}
	return "unknown"
}

type Option func(d *Driver)

func WithPolicy(p Policy) Option {
	return func(d *Driver) {
		d.policy = p
	}
}

// WithFlushOnDisconnect writes the snapshot during Disconnect.
func WithFlushOnDisconnect(flush bool) Option {
	return func(d *Driver) {
		d.flushOnDisconnect = flush
	}
}

// WithLenientConnect makes Connect start with an empty collection when the
// snapshot cannot be parsed, instead of failing. The file is left untouched
// until the next save.
func WithLenientConnect(lenient bool) Option {
	return func(d *Driver) {
		d.lenientConnect = lenient
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

func WithWriter(w persistence.Writer) Option {
	return func(d *Driver) {
		d.gateway.Writer = w
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Driver) {
		d.newID = newID
	}
}

func WithFileMode(perm os.FileMode) Option {
	return func(d *Driver) {
		d.gateway.Perm = perm
	}
}
