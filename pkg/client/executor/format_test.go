package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatQueryScalars(t *testing.T) {
	got, err := FormatQuery("select * from t where a = ? and b = ? and c = ?",
		[]interface{}{int32(7), uint64(8), 1.5})
	require.NoError(t, err)
	assert.Equal(t, "select * from t where a = 7 and b = 8 and c = 1.5", got)
}

func TestFormatQueryStringQuoting(t *testing.T) {
	got, err := FormatQuery("select * from users where username = ?",
		[]interface{}{"carol"})
	require.NoError(t, err)
	assert.Equal(t, "select * from users where username = 'carol'", got)
}

func TestFormatQueryStringEscaping(t *testing.T) {
	got, err := FormatQuery("insert into t values (?)",
		[]interface{}{`it's a "test"` + "\n\\"})
	require.NoError(t, err)
	assert.Equal(t, `insert into t values ('it\'s a "test"\n\\')`, got)
}

func TestFormatQueryNull(t *testing.T) {
	got, err := FormatQuery("update t set a = ?", []interface{}{nil})
	require.NoError(t, err)
	assert.Equal(t, "update t set a = NULL", got)
}

func TestFormatQueryTimeValue(t *testing.T) {
	tv := NewTimeValue()
	tv.SetYear(2024).SetMonth(9).SetDay(10)
	got, err := FormatQuery("insert into t values (?)", []interface{}{tv})
	require.NoError(t, err)
	assert.Equal(t, "insert into t values ('2024-09-10 00:00:00')", got)
}

func TestFormatQueryBlobHex(t *testing.T) {
	got, err := FormatQuery("insert into t values (?)",
		[]interface{}{NewBlob([]byte{0x00, 0xab, 0xff})})
	require.NoError(t, err)
	assert.Equal(t, "insert into t values (X'00ABFF')", got)
}

func TestFormatQueryEscapedPlaceholder(t *testing.T) {
	got, err := FormatQuery(`select '\?' from t where a = ?`, []interface{}{1})
	require.NoError(t, err)
	assert.Equal(t, `select '\?' from t where a = 1`, got)
}

func TestFormatQueryArgCountMismatch(t *testing.T) {
	_, err := FormatQuery("select ?", nil)
	assert.Error(t, err)

	_, err = FormatQuery("select 1", []interface{}{1})
	assert.Error(t, err)

	_, err = FormatQuery("select ?, ?", []interface{}{1})
	assert.Error(t, err)
}
