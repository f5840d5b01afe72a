package store

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
)

// wireValue is the self-describing JSON form of an ir.Value. Unlike the
// canonical metadata encoding it also carries numeric arrays.
type wireValue struct {
	Kind    string               `json:"kind"`
	Bool    bool                 `json:"bool,omitempty"`
	Int     int64                `json:"int,omitempty"`
	Float   string               `json:"float,omitempty"`
	Str     string               `json:"str,omitempty"`
	DType   string               `json:"dtype,omitempty"`
	Shape   []int                `json:"shape,omitempty"`
	Bytes   []byte               `json:"bytes,omitempty"`
	Tag     string               `json:"tag,omitempty"`
	Record  string               `json:"record,omitempty"`
	Fields  []wireField          `json:"fields,omitempty"`
	Items   []wireValue          `json:"items,omitempty"`
	Entries map[string]wireValue `json:"entries,omitempty"`
}

type wireField struct {
	Name  string    `json:"name"`
	Value wireValue `json:"value"`
}

// RawOpaque is the decoded form of an opaque value: the bytes its
// MarshalBinary produced. It compares equal to the original under ir.Equal.
type RawOpaque []byte

// MarshalBinary implements encoding.BinaryMarshaler.
func (r RawOpaque) MarshalBinary() ([]byte, error) { return bytes.Clone(r), nil }

// marshalBody converts a record to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled; struct field order and
// sorted map keys make the output deterministic.
func marshalBody(rec *ir.Record) (string, error) {
	w, err := toWire(rec)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func toWire(v ir.Value) (wireValue, error) {
	switch vv := v.(type) {
	case ir.Null:
		return wireValue{Kind: "null"}, nil
	case ir.Bool:
		return wireValue{Kind: "bool", Bool: bool(vv)}, nil
	case ir.Int:
		return wireValue{Kind: "int", Int: int64(vv)}, nil
	case ir.Float:
		return wireValue{Kind: "float", Float: strconv.FormatFloat(float64(vv), 'g', -1, 64)}, nil
	case ir.String:
		return wireValue{Kind: "string", Str: string(vv)}, nil
	case ir.Enum:
		return wireValue{Kind: "enum", Str: string(vv)}, nil
	case ir.Array:
		return wireValue{Kind: "array", DType: vv.DType().String(), Shape: vv.Shape(), Bytes: vv.Bytes()}, nil
	case ir.HostArray:
		return wireValue{Kind: "host_array", DType: vv.DType().String(), Shape: vv.Shape(), Bytes: vv.Bytes()}, nil
	case ir.Opaque:
		m, ok := vv.V.(encoding.BinaryMarshaler)
		if !ok {
			return wireValue{}, ir.Errorf(ir.ErrCodeUnsupportedFieldType, "", "", "opaque %q value %T has no byte form", vv.Tag, vv.V)
		}
		raw, err := m.MarshalBinary()
		if err != nil {
			return wireValue{}, fmt.Errorf("opaque %q: %w", vv.Tag, err)
		}
		return wireValue{Kind: "opaque", Tag: vv.Tag, Bytes: raw}, nil
	case ir.List:
		items := make([]wireValue, len(vv))
		for i, e := range vv {
			w, err := toWire(e)
			if err != nil {
				return wireValue{}, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = w
		}
		return wireValue{Kind: "list", Items: items}, nil
	case ir.Map:
		entries := make(map[string]wireValue, len(vv))
		for k, e := range vv {
			w, err := toWire(e)
			if err != nil {
				return wireValue{}, fmt.Errorf("map[%q]: %w", k, err)
			}
			entries[k] = w
		}
		return wireValue{Kind: "map", Entries: entries}, nil
	case *ir.Record:
		rt := vv.Type()
		fields := make([]wireField, len(rt.Fields))
		for i, f := range rt.Fields {
			w, err := toWire(vv.At(i))
			if err != nil {
				return wireValue{}, fmt.Errorf("%s.%s: %w", rt.Name, f.Name, err)
			}
			fields[i] = wireField{Name: f.Name, Value: w}
		}
		return wireValue{Kind: "record", Record: rt.Name, Fields: fields}, nil
	default:
		return wireValue{}, fmt.Errorf("unsupported value %T", v)
	}
}

// unmarshalBody parses JSON TEXT back into a record, resolving record types
// through reg.
func unmarshalBody(data string, reg *registry.Registry) (*ir.Record, error) {
	var w wireValue
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	v, err := fromWire(w, reg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	rec, ok := v.(*ir.Record)
	if !ok {
		return nil, fmt.Errorf("unmarshal body: top-level value is %s, not a record", w.Kind)
	}
	return rec, nil
}

func fromWire(w wireValue, reg *registry.Registry) (ir.Value, error) {
	switch w.Kind {
	case "null":
		return ir.Null{}, nil
	case "bool":
		return ir.Bool(w.Bool), nil
	case "int":
		return ir.Int(w.Int), nil
	case "float":
		f, err := strconv.ParseFloat(w.Float, 64)
		if err != nil {
			return nil, fmt.Errorf("float %q: %w", w.Float, err)
		}
		return ir.Float(f), nil
	case "string":
		return ir.String(w.Str), nil
	case "enum":
		return ir.Enum(w.Str), nil
	case "array":
		a, err := decodeArray(w)
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(a), nil
	case "host_array":
		dt, err := array.ParseDType(w.DType)
		if err != nil {
			return nil, err
		}
		return ir.NewHostArray(dt, w.Shape, w.Bytes)
	case "opaque":
		return ir.Opaque{Tag: w.Tag, V: RawOpaque(w.Bytes)}, nil
	case "list":
		out := make(ir.List, len(w.Items))
		for i, item := range w.Items {
			v, err := fromWire(item, reg)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case "map":
		out := make(ir.Map, len(w.Entries))
		for k, e := range w.Entries {
			v, err := fromWire(e, reg)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case "record":
		class, ok := reg.Lookup(w.Record)
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeNotRegistered, w.Record, "", "record type is not registered")
		}
		sets := make([]ir.Set, len(w.Fields))
		for i, f := range w.Fields {
			v, err := fromWire(f.Value, reg)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", w.Record, f.Name, err)
			}
			sets[i] = ir.F(f.Name, v)
		}
		return ir.NewRecord(class.Type, sets...)
	default:
		return nil, fmt.Errorf("unknown value kind %q", w.Kind)
	}
}

func decodeArray(w wireValue) (*array.Array, error) {
	dt, err := array.ParseDType(w.DType)
	if err != nil {
		return nil, err
	}
	shape := w.Shape
	if shape == nil {
		shape = []int{}
	}
	return array.FromBytes(dt, shape, w.Bytes)
}
