package docfile

import (
	"errors"

	"github.com/fulldump/docfile/codec"
	"github.com/fulldump/docfile/persistence"
	"github.com/fulldump/docfile/value"
)

var (
	ErrNotConnected = errors.New("driver is not connected")
	ErrNotFound     = errors.New("record not found")

	// Values no snapshot can hold, rejected by Set and Update.
	ErrNotFinite   = value.ErrNotFinite
	ErrInvalidUTF8 = value.ErrInvalidUTF8
)

// IOError is a filesystem failure, see persistence.IOError.
type IOError = persistence.IOError

// ParseError is malformed snapshot content, see codec.ParseError.
type ParseError = codec.ParseError
