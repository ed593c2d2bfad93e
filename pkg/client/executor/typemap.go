package executor

import (
	"reflect"

	"github.com/pingcap/errors"
	gomysql "github.com/siddontang/go-mysql/mysql"
)

// Kind declares the Go-side type of one output column. A typed query binds
// an ordered Schema of kinds against the statement's result metadata.
type Kind int

const (
	KindInt8 Kind = iota
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBlob
	KindTime
)

var kindNames = map[Kind]string{
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBlob:    "blob",
	KindTime:    "time",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Schema is the declared output shape of a typed query.
type Schema []Kind

type inputTypeInfo struct {
	fieldType uint8
	unsigned  bool
}

var inputTypes = map[Kind]inputTypeInfo{
	KindInt8:    {gomysql.MYSQL_TYPE_TINY, false},
	KindUint8:   {gomysql.MYSQL_TYPE_TINY, true},
	KindInt16:   {gomysql.MYSQL_TYPE_SHORT, false},
	KindUint16:  {gomysql.MYSQL_TYPE_SHORT, true},
	KindInt32:   {gomysql.MYSQL_TYPE_LONG, false},
	KindUint32:  {gomysql.MYSQL_TYPE_LONG, true},
	KindInt64:   {gomysql.MYSQL_TYPE_LONGLONG, false},
	KindUint64:  {gomysql.MYSQL_TYPE_LONGLONG, true},
	KindFloat32: {gomysql.MYSQL_TYPE_FLOAT, false},
	KindFloat64: {gomysql.MYSQL_TYPE_DOUBLE, false},
	KindString:  {gomysql.MYSQL_TYPE_STRING, false},
	KindBlob:    {gomysql.MYSQL_TYPE_BLOB, false},
	KindTime:    {gomysql.MYSQL_TYPE_DATETIME, false},
}

func typeSet(types ...uint8) map[uint8]struct{} {
	set := make(map[uint8]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// outputTypes lists, per kind, the server field types it may decode.
var outputTypes = map[Kind]map[uint8]struct{}{
	KindInt8:    typeSet(gomysql.MYSQL_TYPE_TINY),
	KindUint8:   typeSet(gomysql.MYSQL_TYPE_TINY),
	KindInt16:   typeSet(gomysql.MYSQL_TYPE_SHORT),
	KindUint16:  typeSet(gomysql.MYSQL_TYPE_SHORT),
	KindInt32:   typeSet(gomysql.MYSQL_TYPE_LONG, gomysql.MYSQL_TYPE_INT24),
	KindUint32:  typeSet(gomysql.MYSQL_TYPE_LONG, gomysql.MYSQL_TYPE_INT24),
	KindInt64:   typeSet(gomysql.MYSQL_TYPE_LONGLONG),
	KindUint64:  typeSet(gomysql.MYSQL_TYPE_LONGLONG),
	KindFloat32: typeSet(gomysql.MYSQL_TYPE_FLOAT),
	KindFloat64: typeSet(gomysql.MYSQL_TYPE_DOUBLE),
	KindTime: typeSet(gomysql.MYSQL_TYPE_TIME, gomysql.MYSQL_TYPE_DATE,
		gomysql.MYSQL_TYPE_DATETIME, gomysql.MYSQL_TYPE_TIMESTAMP),
	KindString: typeSet(gomysql.MYSQL_TYPE_TIME, gomysql.MYSQL_TYPE_DATE,
		gomysql.MYSQL_TYPE_DATETIME, gomysql.MYSQL_TYPE_TIMESTAMP,
		gomysql.MYSQL_TYPE_STRING, gomysql.MYSQL_TYPE_VAR_STRING,
		gomysql.MYSQL_TYPE_TINY_BLOB, gomysql.MYSQL_TYPE_BLOB,
		gomysql.MYSQL_TYPE_MEDIUM_BLOB, gomysql.MYSQL_TYPE_LONG_BLOB,
		gomysql.MYSQL_TYPE_BIT, gomysql.MYSQL_TYPE_NEWDECIMAL),
	KindBlob: typeSet(gomysql.MYSQL_TYPE_TINY_BLOB, gomysql.MYSQL_TYPE_BLOB,
		gomysql.MYSQL_TYPE_MEDIUM_BLOB, gomysql.MYSQL_TYPE_LONG_BLOB,
		gomysql.MYSQL_TYPE_BIT),
}

// ValidFor reports whether a server column of fieldType may be decoded into
// this kind.
func (k Kind) ValidFor(fieldType uint8) bool {
	set, ok := outputTypes[k]
	if !ok {
		return false
	}
	_, ok = set[fieldType]
	return ok
}

// IsDynamic marks the variable-length kinds whose output buffers start at
// the dynamic init size and may be regrown on truncation.
func (k Kind) IsDynamic() bool {
	return k == KindString || k == KindBlob
}

// fixedSize is the buffer width of the fixed-width kinds; dynamic kinds and
// KindTime size their buffers elsewhere.
func (k Kind) fixedSize() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// SchemaOf derives a Schema from a struct type, walking exported fields in
// declaration order. Supported field types: sized ints, float32/64, string,
// []byte, Blob, TimeValue. int/uint map to their 64-bit kinds.
func SchemaOf(v interface{}) (Schema, error) {
	typ := reflect.TypeOf(v)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, errors.New("SchemaOf expects a struct or struct pointer")
	}

	var schema Schema
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		kind, err := kindOfType(field.Type)
		if err != nil {
			return nil, errors.WithMessage(err, "field "+field.Name)
		}
		schema = append(schema, kind)
	}
	if len(schema) == 0 {
		return nil, errors.Errorf("struct %s has no bindable fields", typ.Name())
	}
	return schema, nil
}

var (
	blobType = reflect.TypeOf(Blob{})
	timeType = reflect.TypeOf(TimeValue{})
)

func kindOfType(typ reflect.Type) (Kind, error) {
	switch typ {
	case blobType:
		return KindBlob, nil
	case timeType:
		return KindTime, nil
	}

	switch typ.Kind() {
	case reflect.Int8:
		return KindInt8, nil
	case reflect.Uint8:
		return KindUint8, nil
	case reflect.Int16:
		return KindInt16, nil
	case reflect.Uint16:
		return KindUint16, nil
	case reflect.Int32:
		return KindInt32, nil
	case reflect.Uint32:
		return KindUint32, nil
	case reflect.Int, reflect.Int64:
		return KindInt64, nil
	case reflect.Uint, reflect.Uint64:
		return KindUint64, nil
	case reflect.Float32:
		return KindFloat32, nil
	case reflect.Float64:
		return KindFloat64, nil
	case reflect.String:
		return KindString, nil
	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			return KindBlob, nil
		}
	}
	return 0, errors.Errorf("unsupported output type %s", typ)
}
