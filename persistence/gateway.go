package persistence

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fulldump/docfile/codec"
	"github.com/fulldump/docfile/value"
)

const (
	DefaultFileMode os.FileMode = 0644
	dirMode         os.FileMode = 0755
)

// IOError is a filesystem failure while reading, writing or removing a
// snapshot.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Gateway moves whole collections between memory and one snapshot file.
type Gateway struct {
	Filename string
	Codec    codec.Codec
	Writer   Writer
	Perm     os.FileMode
	Logger   zerolog.Logger
}

// NewGateway logs through the global logger tagged with file and format.
// Callers replacing Logger are expected to carry those fields themselves.
func NewGateway(filename string, c codec.Codec) *Gateway {
	return &Gateway{
		Filename: filename,
		Codec:    c,
		Writer:   AtomicWriter{},
		Perm:     DefaultFileMode,
		Logger:   log.Logger.With().Str("file", filename).Str("format", c.Name()).Logger(),
	}
}

// Load reads and decodes the snapshot. A missing file is reported with
// found == false and no error.
func (g *Gateway) Load() (records []*value.Map, found bool, err error) {

	t0 := time.Now()
	data, err := os.ReadFile(g.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		g.Logger.Debug().Msg("snapshot not found")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &IOError{Op: "load", Path: g.Filename, Err: pkgerrors.Wrap(err, "Gateway.Load os.ReadFile")}
	}

	records, err = g.Codec.Decode(data)
	if err != nil {
		return nil, true, err
	}

	g.Logger.Debug().
		Int("records", len(records)).
		Dur("took", time.Since(t0)).
		Msg("snapshot loaded")

	return records, true, nil
}

// Save encodes records and replaces the snapshot through the Writer.
func (g *Gateway) Save(records []*value.Map) error {

	t0 := time.Now()
	data, err := g.Codec.Encode(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(g.Filename), dirMode); err != nil {
		return &IOError{Op: "save", Path: g.Filename, Err: pkgerrors.Wrap(err, "Gateway.Save os.MkdirAll")}
	}

	if err := g.Writer.WriteFile(g.Filename, data, g.perm()); err != nil {
		return &IOError{Op: "save", Path: g.Filename, Err: pkgerrors.Wrap(err, "Gateway.Save WriteFile")}
	}

	g.Logger.Debug().
		Int("records", len(records)).
		Int("bytes", len(data)).
		Dur("took", time.Since(t0)).
		Msg("snapshot saved")

	return nil
}

// Drop removes the snapshot, a missing file is fine.
func (g *Gateway) Drop() error {
	err := os.Remove(g.Filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "drop", Path: g.Filename, Err: pkgerrors.Wrap(err, "Gateway.Drop os.Remove")}
	}
	g.Logger.Debug().Msg("snapshot dropped")
	return nil
}

func (g *Gateway) perm() os.FileMode {
	if g.Perm == 0 {
		return DefaultFileMode
	}
	return g.Perm
}
