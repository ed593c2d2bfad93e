package executor

import (
	"reflect"

	"github.com/pingcap/errors"
)

// ScanStruct copies one typed row into the exported fields of dest (a
// struct pointer), in declaration order. The struct layout must match the
// schema the Results was built with; SchemaOf derives that schema.
func (r *Results) ScanStruct(row int, dest interface{}) error {
	if r.mode != ModeTyped {
		return errors.New("ScanStruct requires a typed Results")
	}
	if row < 0 || row >= len(r.rows) {
		return errors.Errorf("row index %d out of range [0, %d)", row, len(r.rows))
	}

	val := reflect.ValueOf(dest)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return errors.New("ScanStruct expects a non-nil struct pointer")
	}
	val = val.Elem()

	cells := r.rows[row]
	idx := 0
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).PkgPath != "" { // unexported
			continue
		}
		if idx >= len(cells) {
			return errors.Errorf("struct %s has more bindable fields than the %d result columns",
				typ.Name(), len(cells))
		}
		if err := assignCell(val.Field(i), cells[idx]); err != nil {
			return errors.WithMessage(err, "field "+typ.Field(i).Name)
		}
		idx++
	}
	if idx != len(cells) {
		return errors.Errorf("struct %s binds %d fields but the row has %d columns",
			typ.Name(), idx, len(cells))
	}
	return nil
}

func assignCell(field reflect.Value, cell interface{}) error {
	cellVal := reflect.ValueOf(cell)
	if !cellVal.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	// Blob cells feed both Blob fields and raw []byte fields.
	if field.Type() == blobType {
		if b, ok := cell.(Blob); ok {
			field.Set(reflect.ValueOf(b))
			return nil
		}
	}
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8 {
		if b, ok := cell.(Blob); ok {
			field.SetBytes(b.Data())
			return nil
		}
	}

	if !cellVal.Type().AssignableTo(field.Type()) {
		if cellVal.Type().ConvertibleTo(field.Type()) {
			field.Set(cellVal.Convert(field.Type()))
			return nil
		}
		return errors.Errorf("cannot assign %s to %s", cellVal.Type(), field.Type())
	}
	field.Set(cellVal)
	return nil
}
