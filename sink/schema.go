package sink

import (
	"fmt"

	"github.com/kbukum/parallelio/errors"
	"github.com/kbukum/parallelio/validation"
)

// FieldType is the logical type of a columnar field.
type FieldType string

const (
	TypeInt64       FieldType = "int64"
	TypeFloat64     FieldType = "float64"
	TypeString      FieldType = "string"
	TypeBool        FieldType = "bool"
	TypeBinary      FieldType = "binary"
	TypeInt64List   FieldType = "list<int64>"
	TypeFloat64List FieldType = "list<float64>"
	TypeStringList  FieldType = "list<string>"
)

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeInt64, TypeFloat64, TypeString, TypeBool, TypeBinary,
		TypeInt64List, TypeFloat64List, TypeStringList:
		return true
	}
	return false
}

// Field is one named column.
type Field struct {
	Name     string    `yaml:"name" mapstructure:"name" validate:"required"`
	Type     FieldType `yaml:"type" mapstructure:"type" validate:"required"`
	Nullable bool      `yaml:"nullable" mapstructure:"nullable"`
}

// Schema is the ordered field list of a columnar target.
type Schema struct {
	Fields []Field
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate requires at least one field, unique names and known types.
func (s Schema) Validate() error {
	v := validation.New()
	v.Check(len(s.Fields) > 0, "columnar.fields", "at least one field is required")
	v.Unique("columnar.fields", s.Names())
	for i, f := range s.Fields {
		v.Required(fmt.Sprintf("columnar.fields[%d].name", i), f.Name)
		v.Check(f.Type.Valid(), fmt.Sprintf("columnar.fields[%d].type", i), "unsupported type "+string(f.Type))
	}
	return v.Err()
}

// Pivot lays records out as one column per field. Every record must be a
// map[string]any holding each non-nullable field.
func (s Schema) Pivot(records []any) ([][]any, error) {
	columns := make([][]any, len(s.Fields))
	for i := range columns {
		columns[i] = make([]any, len(records))
	}
	for r, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, errors.InvalidInput("record", fmt.Sprintf("record %d is %T, want map[string]any", r, rec))
		}
		for i, f := range s.Fields {
			v, present := m[f.Name]
			if (!present || v == nil) && !f.Nullable {
				return nil, errors.MissingField(f.Name).WithDetail("record", r)
			}
			columns[i][r] = v
		}
	}
	return columns, nil
}
