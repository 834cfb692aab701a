// Package codec translates a whole collection to and from the bytes of a
// snapshot file.
package codec

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fulldump/docfile/utils"
	"github.com/fulldump/docfile/value"
)

type Codec interface {
	Name() string
	Encode(records []*value.Map) ([]byte, error)
	Decode(data []byte) ([]*value.Map, error)
}

// ParseError reports snapshot content that could not be decoded.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var constructors = map[string]func(y YAML) Codec{
	"json": func(y YAML) Codec { return NewJSON() },
	"yaml": func(y YAML) Codec { return y },
	"yml":  func(y YAML) Codec { return y },
}

// New selects a codec by name. y configures the YAML codec and is ignored
// for json.
func New(format string, y YAML) (Codec, error) {
	constructor, ok := constructors[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q, must be [%s]", format, strings.Join(utils.GetKeys(constructors), "|"))
	}
	return constructor(y), nil
}

// FormatFromFilename infers the format from the file extension, json unless
// it is .yaml or .yml.
func FormatFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return "yaml"
	}
	return "json"
}

// WithLogger returns c with its decode warnings sent to l. Codecs without a
// logger use the global one, tagged with the format.
func WithLogger(c Codec, l zerolog.Logger) Codec {
	switch t := c.(type) {
	case JSON:
		t.Logger = &l
		return t
	case YAML:
		t.Logger = &l
		return t
	}
	return c
}

func logger(l *zerolog.Logger, format string) *zerolog.Logger {
	if l != nil {
		return l
	}
	fallback := log.Logger.With().Str("format", format).Logger()
	return &fallback
}
