package codec

import (
	"bytes"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/rs/zerolog"

	"github.com/fulldump/docfile/value"
)

// JSON stores the collection as an array of objects.
type JSON struct {
	Indent string // empty means compact output
	Logger *zerolog.Logger
}

func NewJSON() JSON {
	return JSON{Indent: "  "}
}

func (j JSON) Name() string {
	return "json"
}

func (j JSON) Encode(records []*value.Map) ([]byte, error) {

	options := []jsontext.Options{}
	if j.Indent != "" {
		options = append(options, jsontext.WithIndent(j.Indent))
	}

	buf := &bytes.Buffer{}
	enc := jsontext.NewEncoder(buf, options...)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := value.WriteJSONMap(enc, record); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode accepts an array of objects and the legacy {"records": {...}}
// layout, where every value of the mapping is a record.
func (j JSON) Decode(data []byte) ([]*value.Map, error) {

	if len(bytes.TrimSpace(data)) == 0 {
		return []*value.Map{}, nil
	}

	root, err := value.ParseJSON(data)
	if err != nil {
		return nil, &ParseError{Format: j.Name(), Err: err}
	}

	var items []value.Value
	switch root.Kind() {
	case value.KindList:
		items, _ = root.AsList()
	case value.KindMap:
		m, _ := root.AsMap()
		legacy, _ := m.Get("records")
		records, ok := legacy.AsMap()
		if !ok {
			j.logger().Warn().Msg("top level object without records, starting empty")
			return []*value.Map{}, nil
		}
		records.Range(func(key string, v value.Value) bool {
			items = append(items, v)
			return true
		})
	default:
		j.logger().Warn().Str("kind", root.Kind().String()).Msg("top level is not an array, starting empty")
		return []*value.Map{}, nil
	}

	return objects(j.logger(), items), nil
}

func (j JSON) logger() *zerolog.Logger {
	return logger(j.Logger, j.Name())
}

// objects keeps the maps in items, skipping anything else.
func objects(l *zerolog.Logger, items []value.Value) []*value.Map {
	result := make([]*value.Map, 0, len(items))
	for i, item := range items {
		m, ok := item.AsMap()
		if !ok {
			l.Warn().Int("item", i).Str("kind", item.Kind().String()).Msg("skipping item that is not a record")
			continue
		}
		result = append(result, m)
	}
	return result
}
