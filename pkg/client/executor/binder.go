package executor

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pingcap/errors"
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/siddontang/go/hack"
)

// InputBind describes one bound input parameter the way the driver sees it.
type InputBind struct {
	BufferType   uint8
	IsUnsigned   bool
	BufferLength int
	HasLength    bool
}

// BindInputArgs maps heterogeneous Go inputs to bind descriptors plus the
// normalised driver arguments (int64/uint64/float64/string/[]byte/nil).
// A Go string binds as a string; TimeValue binds as DATETIME text; []byte
// and Blob bind as BLOB bytes. Named types are not unwrapped and are
// rejected as unsupported.
func BindInputArgs(args []interface{}) ([]InputBind, []interface{}, error) {
	binds := make([]InputBind, 0, len(args))
	driverArgs := make([]interface{}, 0, len(args))

	for i, arg := range args {
		bind, driverArg, err := bindOneInput(arg)
		if err != nil {
			return nil, nil, errors.WithMessage(err, fmt.Sprintf("input %d", i))
		}
		binds = append(binds, bind)
		driverArgs = append(driverArgs, driverArg)
	}
	return binds, driverArgs, nil
}

func bindOneInput(arg interface{}) (InputBind, interface{}, error) {
	switch v := arg.(type) {
	case nil:
		return InputBind{BufferType: gomysql.MYSQL_TYPE_NULL}, nil, nil
	case int8:
		return inputBindFor(KindInt8), int64(v), nil
	case uint8:
		return inputBindFor(KindUint8), uint64(v), nil
	case int16:
		return inputBindFor(KindInt16), int64(v), nil
	case uint16:
		return inputBindFor(KindUint16), uint64(v), nil
	case int32:
		return inputBindFor(KindInt32), int64(v), nil
	case uint32:
		return inputBindFor(KindUint32), uint64(v), nil
	case int:
		return inputBindFor(KindInt64), int64(v), nil
	case uint:
		return inputBindFor(KindUint64), uint64(v), nil
	case int64:
		return inputBindFor(KindInt64), v, nil
	case uint64:
		return inputBindFor(KindUint64), v, nil
	case float32:
		return inputBindFor(KindFloat32), float64(v), nil
	case float64:
		return inputBindFor(KindFloat64), v, nil
	case string:
		bind := inputBindFor(KindString)
		bind.BufferLength = len(v)
		bind.HasLength = true
		return bind, v, nil
	case []byte:
		bind := inputBindFor(KindBlob)
		bind.BufferLength = len(v)
		bind.HasLength = true
		return bind, v, nil
	case Blob:
		bind := inputBindFor(KindBlob)
		bind.BufferLength = v.Size()
		bind.HasLength = true
		return bind, v.Data(), nil
	case TimeValue:
		return inputBindFor(KindTime), v.String(), nil
	case *TimeValue:
		return inputBindFor(KindTime), v.String(), nil
	case bool:
		b := inputBindFor(KindInt8)
		if v {
			return b, int64(1), nil
		}
		return b, int64(0), nil
	default:
		return InputBind{}, nil, errors.Errorf("unsupported input type %T", arg)
	}
}

func inputBindFor(kind Kind) InputBind {
	info := inputTypes[kind]
	return InputBind{BufferType: info.fieldType, IsUnsigned: info.unsigned}
}

// CheckFieldsSchema validates result metadata against the declared schema.
// A non-empty return is the failure message; the caller turns it into
// errno.RetStmtParamsErr.
func CheckFieldsSchema(schema Schema, set RowSet) string {
	fieldCount := set.FieldCount()
	if fieldCount != len(schema) {
		return fmt.Sprintf("the query returns %d fields, but the schema declares %d", fieldCount, len(schema))
	}

	var failed []string
	for i, kind := range schema {
		if !kind.ValidFor(set.FieldType(i)) {
			failed = append(failed, set.FieldName(i))
		}
	}
	if len(failed) > 0 {
		return fmt.Sprintf("bind output type mismatch for fields: (%s)", strings.Join(failed, ", "))
	}
	return ""
}

// timeBufferSize fits "YYYY-MM-DD HH:MM:SS.ffffff" with room to spare.
const timeBufferSize = 32

// outputBind is the per-column output descriptor: the (possibly overridden)
// buffer type, the data buffer, the reported real length and the null flag.
type outputBind struct {
	kind       Kind
	bufferType uint8
	buffer     []byte
	length     int
	isNull     bool
}

// dataLen is the usable byte count of the buffer: the reported length,
// clamped when a non-regrowable column was larger than its buffer.
func (b *outputBind) dataLen() int {
	if b.length > len(b.buffer) {
		return len(b.buffer)
	}
	return b.length
}

// queryHandle owns the output binds of one statement execution, including
// the dynamic buffers that may regrow on truncation.
type queryHandle struct {
	binds []outputBind
	// dynamicIndex lists the truncation-candidate columns.
	dynamicIndex []int
}

// newQueryHandle sizes one bind per column: fixed widths for scalars, the
// dynamic init size for string/blob. A string kind forces the buffer type to
// MYSQL_TYPE_STRING so any column family can be read back as text.
func newQueryHandle(schema Schema, set RowSet, initSize int) *queryHandle {
	if initSize <= 0 {
		initSize = defaultDynamicBufferInitSize
	}

	handle := &queryHandle{binds: make([]outputBind, len(schema))}
	for i, kind := range schema {
		bind := &handle.binds[i]
		bind.kind = kind
		bind.bufferType = set.FieldType(i)

		switch {
		case kind == KindString:
			bind.bufferType = gomysql.MYSQL_TYPE_STRING
			bind.buffer = make([]byte, initSize)
			handle.dynamicIndex = append(handle.dynamicIndex, i)
		case kind == KindBlob:
			bind.buffer = make([]byte, initSize)
			handle.dynamicIndex = append(handle.dynamicIndex, i)
		case kind == KindTime:
			bind.buffer = make([]byte, timeBufferSize)
		default:
			bind.buffer = make([]byte, kind.fixedSize())
		}
	}
	return handle
}

// setColumn writes one fetched value into the column buffer. It reports
// whether the value was truncated against the current buffer size; the real
// length is always recorded so the caller can regrow and refetch the tail.
func (h *queryHandle) setColumn(col int, value interface{}) (bool, error) {
	bind := &h.binds[col]
	bind.isNull = value == nil
	bind.length = 0
	if value == nil {
		// Clear out whatever the previous row left behind.
		for i := range bind.buffer {
			bind.buffer[i] = 0
		}
		return false, nil
	}

	switch bind.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := valueToInt(value)
		if err != nil {
			return false, err
		}
		putFixedUint(bind.buffer, uint64(n))
		bind.length = len(bind.buffer)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		n, err := valueToUint(value)
		if err != nil {
			return false, err
		}
		putFixedUint(bind.buffer, n)
		bind.length = len(bind.buffer)
	case KindFloat32:
		f, err := valueToFloat(value)
		if err != nil {
			return false, err
		}
		binary.LittleEndian.PutUint32(bind.buffer, math.Float32bits(float32(f)))
		bind.length = len(bind.buffer)
	case KindFloat64:
		f, err := valueToFloat(value)
		if err != nil {
			return false, err
		}
		binary.LittleEndian.PutUint64(bind.buffer, math.Float64bits(f))
		bind.length = len(bind.buffer)
	default:
		data, err := valueToBytes(value)
		if err != nil {
			return false, err
		}
		bind.length = len(data)
		n := copy(bind.buffer, data)
		return n < len(data), nil
	}
	return false, nil
}

// setColumnTail refetches the bytes beyond offset of an already-fetched
// column into the (regrown) buffer.
func (h *queryHandle) setColumnTail(col, offset int, value interface{}) error {
	bind := &h.binds[col]
	data, err := valueToBytes(value)
	if err != nil {
		return err
	}
	if offset > len(data) {
		return errors.Errorf("column %d refetch offset %d beyond length %d", col, offset, len(data))
	}
	copy(bind.buffer[offset:], data[offset:])
	return nil
}

// growColumn resizes a dynamic column buffer preserving the prefix already
// fetched.
func (h *queryHandle) growColumn(col, size int) {
	bind := &h.binds[col]
	grown := make([]byte, size)
	copy(grown, bind.buffer)
	bind.buffer = grown
}

// decodeRow turns the current bind buffers into one typed row.
func (h *queryHandle) decodeRow() ([]interface{}, []bool, error) {
	row := make([]interface{}, len(h.binds))
	nulls := make([]bool, len(h.binds))

	for i := range h.binds {
		bind := &h.binds[i]
		nulls[i] = bind.isNull

		switch bind.kind {
		case KindInt8:
			row[i] = int8(bind.buffer[0])
		case KindUint8:
			row[i] = bind.buffer[0]
		case KindInt16:
			row[i] = int16(binary.LittleEndian.Uint16(bind.buffer))
		case KindUint16:
			row[i] = binary.LittleEndian.Uint16(bind.buffer)
		case KindInt32:
			row[i] = int32(binary.LittleEndian.Uint32(bind.buffer))
		case KindUint32:
			row[i] = binary.LittleEndian.Uint32(bind.buffer)
		case KindInt64:
			row[i] = int64(binary.LittleEndian.Uint64(bind.buffer))
		case KindUint64:
			row[i] = binary.LittleEndian.Uint64(bind.buffer)
		case KindFloat32:
			row[i] = math.Float32frombits(binary.LittleEndian.Uint32(bind.buffer))
		case KindFloat64:
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(bind.buffer))
		case KindString:
			if bind.isNull {
				row[i] = ""
			} else {
				row[i] = string(bind.buffer[:bind.dataLen()])
			}
		case KindBlob:
			if bind.isNull {
				row[i] = Blob{}
			} else {
				row[i] = NewBlob(bind.buffer[:bind.dataLen()])
			}
		case KindTime:
			if bind.isNull {
				row[i] = NewTimeValue()
			} else {
				tv, err := TimeFromString(string(bind.buffer[:bind.dataLen()]))
				if err != nil {
					return nil, nil, err
				}
				row[i] = tv
			}
		default:
			return nil, nil, errors.Errorf("unknown output kind %d", bind.kind)
		}
	}
	return row, nulls, nil
}

func putFixedUint(buffer []byte, v uint64) {
	switch len(buffer) {
	case 1:
		buffer[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buffer, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buffer, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buffer, v)
	}
}

func valueToInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(hack.String(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, errors.Errorf("cannot decode %T into an integer column", value)
	}
}

func valueToUint(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int64:
		return uint64(v), nil
	case []byte:
		return strconv.ParseUint(hack.String(v), 10, 64)
	case string:
		return strconv.ParseUint(v, 10, 64)
	default:
		return 0, errors.Errorf("cannot decode %T into an unsigned column", value)
	}
}

func valueToFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(hack.String(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, errors.Errorf("cannot decode %T into a float column", value)
	}
}

func valueToBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return hack.Slice(v), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case uint64:
		return []byte(strconv.FormatUint(v, 10)), nil
	case float64:
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	default:
		return nil, errors.Errorf("cannot decode %T into a byte column", value)
	}
}
