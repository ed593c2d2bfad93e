package executor

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pingcap/errors"
)

// FormatQuery renders "?" placeholders into literal SQL for the
// text-protocol path. A placeholder preceded by a backslash is left alone.
// String and time values are single-quoted (with escaping); blobs become
// hex literals; numbers pass through.
func FormatQuery(query string, args []interface{}) (string, error) {
	var sb strings.Builder
	sb.Grow(len(query) + 16*len(args))

	argIdx := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '?' || (i > 0 && query[i-1] == '\\') {
			sb.WriteByte(c)
			continue
		}

		if argIdx >= len(args) {
			return "", errors.Errorf("query has more placeholders than the %d arguments", len(args))
		}
		if err := writeValue(&sb, args[argIdx]); err != nil {
			return "", err
		}
		argIdx++
	}

	if argIdx != len(args) {
		return "", errors.Errorf("query has %d placeholders but %d arguments", argIdx, len(args))
	}
	return sb.String(), nil
}

func writeValue(sb *strings.Builder, arg interface{}) error {
	switch v := arg.(type) {
	case nil:
		sb.WriteString("NULL")
	case int8:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case uint8:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(v, 10))
	case float32:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	case string:
		sb.WriteByte('\'')
		writeEscaped(sb, v)
		sb.WriteByte('\'')
	case TimeValue:
		sb.WriteByte('\'')
		sb.WriteString(v.String())
		sb.WriteByte('\'')
	case *TimeValue:
		sb.WriteByte('\'')
		sb.WriteString(v.String())
		sb.WriteByte('\'')
	case []byte:
		writeHexLiteral(sb, v)
	case Blob:
		writeHexLiteral(sb, v.Data())
	default:
		return errors.Errorf("unsupported placeholder type %T", arg)
	}
	return nil
}

// writeEscaped emits the MySQL single-quoted-literal escapes.
func writeEscaped(sb *strings.Builder, input string) {
	for len(input) > 0 {
		s, size := utf8.DecodeRuneInString(input)
		switch s {
		case 0:
			sb.WriteString(`\0`)
		case '\n':
			sb.WriteString(`\n`)
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0x1a:
			sb.WriteString(`\Z`)
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		default:
			sb.WriteRune(s)
		}
		input = input[size:]
	}
}

// Binary data goes out as a hex literal so arbitrary bytes survive the text
// protocol.
func writeHexLiteral(sb *strings.Builder, data []byte) {
	sb.WriteString("X'")
	sb.WriteString(strings.ToUpper(hex.EncodeToString(data)))
	sb.WriteByte('\'')
}
