package statespace

import (
	"fmt"
	"strings"
	"sync"

	"gonum.org/v1/gonum/unit"

	"github.com/san-kum/statespace/internal/dynamo"
	"github.com/san-kum/statespace/internal/quantity"
)

// Field declares one named slot of a schema and the dimensions of its value.
type Field struct {
	Name string
	Dims unit.Dimensions
}

// F declares a field whose dimensions are taken from a gonum unit value,
// e.g. F("x", unit.Length(0)).
func F(name string, u unit.Uniter) Field {
	return Field{Name: name, Dims: u.Unit().Dimensions()}
}

// family is shared by every derivative order of one schema so that the
// derivative transform returns canonical pointers.
type family struct {
	names []string
	index map[string]int
	base  []unit.Dimensions

	mu      sync.Mutex
	byOrder map[int]*Schema
}

// Schema is an immutable, ordered list of uniquely named, dimensioned fields.
// Schemas that differ only in derivative order share a family; keys resolved
// on one order are valid on all of them.
type Schema struct {
	fam    *family
	order  int
	fields []Field
}

// NewSchema builds a derivative-order-zero schema from fields in declaration order.
func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, &dynamo.ShapeError{Schema: "schema", Reason: "at least one field is required"}
	}

	fam := &family{
		names:   make([]string, len(fields)),
		index:   make(map[string]int, len(fields)),
		base:    make([]unit.Dimensions, len(fields)),
		byOrder: make(map[int]*Schema),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, &dynamo.ShapeError{Schema: "schema", Reason: fmt.Sprintf("field %d has an empty name", i)}
		}
		if _, dup := fam.index[f.Name]; dup {
			return nil, &dynamo.ShapeError{Schema: "schema", Reason: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		fam.names[i] = f.Name
		fam.index[f.Name] = i
		fam.base[i] = quantity.ShiftTime(f.Dims, 0)
	}

	return fam.at(0), nil
}

// MustSchema is NewSchema that panics on error. It is meant for package-level
// schema declarations.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (f *family) at(order int) *Schema {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.byOrder[order]; ok {
		return s
	}

	fields := make([]Field, len(f.names))
	for i, name := range f.names {
		fields[i] = Field{Name: name, Dims: quantity.ShiftTime(f.base[i], -order)}
	}
	s := &Schema{fam: f, order: order, fields: fields}
	f.byOrder[order] = s
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Order returns the derivative order relative to the schema NewSchema built.
func (s *Schema) Order() int { return s.order }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = Field{Name: f.Name, Dims: quantity.ShiftTime(f.Dims, 0)}
	}
	return out
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fam.names))
	copy(out, s.fam.names)
	return out
}

// Dims returns the dimensions of field i.
func (s *Schema) Dims(i int) unit.Dimensions {
	return quantity.ShiftTime(s.fields[i].Dims, 0)
}

// Derivative returns the schema whose fields are the n-th time derivative of
// s's fields. Negative n integrates. Derivative(n).Derivative(m) is the same
// *Schema as Derivative(n+m).
func (s *Schema) Derivative(n int) *Schema {
	if n == 0 {
		return s
	}
	return s.fam.at(s.order + n)
}

// Equal reports whether s and o declare the same names with the same
// dimensions in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Name != o.fields[i].Name {
			return false
		}
		if !quantity.SameDimensions(s.fields[i].Dims, o.fields[i].Dims) {
			return false
		}
	}
	return true
}

// Key resolves a field name to a key.
func (s *Schema) Key(name string) (Key, error) {
	i, ok := s.fam.index[name]
	if !ok {
		return Key{}, &dynamo.KeyNotFoundError{Key: name, Schema: s.String()}
	}
	return Key{name: name, index: i, fam: s.fam}, nil
}

// MustKey is Key that panics on error. Resolve keys once, next to the
// schema declaration, so a misspelt field fails before any integration runs:
//
//	var keyV = State.MustKey("v")
func (s *Schema) MustKey(name string) Key {
	k, err := s.Key(name)
	if err != nil {
		panic(err)
	}
	return k
}

// resolve maps k onto s. Keys from another family are looked up by name.
func (s *Schema) resolve(k Key) int {
	if k.fam == s.fam {
		return k.index
	}
	if i, ok := s.fam.index[k.name]; ok && k.name != "" {
		return i
	}
	panic(&dynamo.KeyNotFoundError{Key: k.name, Schema: s.String()})
}

func (s *Schema) String() string {
	if s == nil {
		return "schema{}"
	}
	var b strings.Builder
	b.WriteString("schema{")
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		if d := f.Dims.String(); d != "" {
			b.WriteString(" [")
			b.WriteString(d)
			b.WriteString("]")
		}
	}
	b.WriteString("}")
	return b.String()
}

// Key is a resolved field name. The zero Key is invalid.
type Key struct {
	name  string
	index int
	fam   *family
}

// Name returns the field name.
func (k Key) Name() string { return k.name }

// Index returns the field's position in declaration order.
func (k Key) Index() int { return k.index }
