package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/fulldump/docfile/value"
)

// YAML stores the collection as a sequence of mappings.
//
// LineWidth is kept for configuration compatibility, yaml.v3 does not fold
// long scalars. NoRefs is always honoured since the encoded tree never shares
// nodes.
type YAML struct {
	Indent    int
	LineWidth int
	NoRefs    bool
	SortKeys  bool
	Logger    *zerolog.Logger
}

func NewYAML() YAML {
	return YAML{
		Indent:    2,
		LineWidth: 120,
		NoRefs:    true,
		SortKeys:  false,
	}
}

func (y YAML) Name() string {
	return "yaml"
}

// Integral numbers below this magnitude are written as !!int.
const maxExactInt = 1e15

func (y YAML) Encode(records []*value.Map) ([]byte, error) {

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, record := range records {
		node, err := y.mapNode(record)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, node)
	}
	if len(seq.Content) == 0 {
		seq.Style = yaml.FlowStyle
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}

	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	indent := y.Indent
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (y YAML) mapNode(m *value.Map) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	keys := m.Keys()
	if y.SortKeys {
		sort.Strings(keys)
	}
	for _, key := range keys {
		v, _ := m.Get(key)
		child, err := y.valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		node.Content = append(node.Content, stringNode(key), child)
	}
	if len(node.Content) == 0 {
		node.Style = yaml.FlowStyle
	}
	return node, nil
}

func (y YAML) valueNode(v value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil
	case value.KindNumber:
		return numberNode(v)
	case value.KindString:
		s, _ := v.AsString()
		return stringNode(s), nil
	case value.KindList:
		items, _ := v.AsList()
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range items {
			child, err := y.valueNode(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		if len(node.Content) == 0 {
			node.Style = yaml.FlowStyle
		}
		return node, nil
	case value.KindMap:
		m, _ := v.AsMap()
		return y.mapNode(m)
	}
	return nil, fmt.Errorf("unexpected kind %s", v.Kind())
}

// stringNode is tagged so that ambiguous scalars ("true", "1", timestamps)
// get quoted.
func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func numberNode(v value.Value) (*yaml.Node, error) {
	n, _ := v.AsNumber()
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("encode %v: %w", n, value.ErrNotFinite)
	}
	if n == math.Trunc(n) && math.Abs(n) < maxExactInt {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(n), 10)}, nil
	}
	s := strconv.FormatFloat(n, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}, nil
}

// Decode accepts a sequence of mappings. Other documents decode to an empty
// collection.
func (y YAML) Decode(data []byte) ([]*value.Map, error) {

	root := &yaml.Node{}
	if err := yaml.Unmarshal(data, root); err != nil {
		return nil, &ParseError{Format: y.Name(), Err: err}
	}

	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case 0:
		return []*value.Map{}, nil
	case yaml.SequenceNode:
	default:
		if root.ShortTag() != "!!null" {
			y.logger().Warn().Str("tag", root.ShortTag()).Msg("top level is not a sequence, starting empty")
		}
		return []*value.Map{}, nil
	}

	d := &nodeDecoder{active: map[*yaml.Node]bool{}}
	items := make([]value.Value, 0, len(root.Content))
	for _, child := range root.Content {
		item, err := d.value(child)
		if err != nil {
			return nil, &ParseError{Format: y.Name(), Err: err}
		}
		items = append(items, item)
	}

	return objects(y.logger(), items), nil
}

func (y YAML) logger() *zerolog.Logger {
	return logger(y.Logger, y.Name())
}

var errRecursiveAlias = errors.New("alias refers to itself")

type nodeDecoder struct {
	active map[*yaml.Node]bool // anchors being expanded
}

func (d *nodeDecoder) value(node *yaml.Node) (value.Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		if d.active[node.Alias] {
			return value.Value{}, fmt.Errorf("line %d: %w", node.Line, errRecursiveAlias)
		}
		d.active[node.Alias] = true
		defer delete(d.active, node.Alias)
		return d.value(node.Alias)
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return value.Null(), nil
		}
		return d.value(node.Content[0])
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := d.value(child)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}
		return value.List(items...), nil
	case yaml.MappingNode:
		m := value.NewMap()
		if err := d.mapping(node, m); err != nil {
			return value.Value{}, err
		}
		return value.Object(m), nil
	case yaml.ScalarNode:
		return scalar(node)
	}
	return value.Value{}, fmt.Errorf("line %d: unexpected node kind %d", node.Line, node.Kind)
}

// mapping fills m with the pairs of node, expanding `<<` merge keys.
func (d *nodeDecoder) mapping(node *yaml.Node, m *value.Map) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge" {
			merged, err := d.value(val)
			if err != nil {
				return err
			}
			if err := merge(m, merged); err != nil {
				return fmt.Errorf("line %d: %w", key.Line, err)
			}
			continue
		}
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}
		v, err := d.value(val)
		if err != nil {
			return err
		}
		m.Set(key.Value, v)
	}
	return nil
}

func merge(m *value.Map, merged value.Value) error {
	sources := []value.Value{merged}
	if list, ok := merged.AsList(); ok {
		sources = list
	}
	for _, source := range sources {
		sm, ok := source.AsMap()
		if !ok {
			return errors.New("merge value must be a mapping")
		}
		sm.Range(func(k string, v value.Value) bool {
			if !m.Has(k) {
				m.Set(k, v)
			}
			return true
		})
	}
	return nil
}

func scalar(node *yaml.Node) (value.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return value.Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value.Value{}, fmt.Errorf("line %d: %q: %w", node.Line, node.Value, value.ErrNotFinite)
		}
		return value.Number(f), nil
	}
	// !!str, !!timestamp, !!binary and custom tags keep their text.
	return value.String(node.Value), nil
}
