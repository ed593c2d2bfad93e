package executor

import (
	"testing"

	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputValiditySets(t *testing.T) {
	assert.True(t, KindInt8.ValidFor(gomysql.MYSQL_TYPE_TINY))
	assert.False(t, KindInt8.ValidFor(gomysql.MYSQL_TYPE_LONG))

	assert.True(t, KindInt32.ValidFor(gomysql.MYSQL_TYPE_LONG))
	assert.True(t, KindInt32.ValidFor(gomysql.MYSQL_TYPE_INT24))
	assert.False(t, KindInt32.ValidFor(gomysql.MYSQL_TYPE_LONGLONG))

	assert.True(t, KindInt64.ValidFor(gomysql.MYSQL_TYPE_LONGLONG))
	assert.False(t, KindInt64.ValidFor(gomysql.MYSQL_TYPE_LONG))

	assert.True(t, KindFloat32.ValidFor(gomysql.MYSQL_TYPE_FLOAT))
	assert.True(t, KindFloat64.ValidFor(gomysql.MYSQL_TYPE_DOUBLE))
	assert.False(t, KindFloat64.ValidFor(gomysql.MYSQL_TYPE_FLOAT))

	// A string may read back any member of the string/blob/decimal/time
	// family.
	for _, typ := range []uint8{
		gomysql.MYSQL_TYPE_TIME, gomysql.MYSQL_TYPE_DATE,
		gomysql.MYSQL_TYPE_DATETIME, gomysql.MYSQL_TYPE_TIMESTAMP,
		gomysql.MYSQL_TYPE_STRING, gomysql.MYSQL_TYPE_VAR_STRING,
		gomysql.MYSQL_TYPE_TINY_BLOB, gomysql.MYSQL_TYPE_BLOB,
		gomysql.MYSQL_TYPE_MEDIUM_BLOB, gomysql.MYSQL_TYPE_LONG_BLOB,
		gomysql.MYSQL_TYPE_BIT, gomysql.MYSQL_TYPE_NEWDECIMAL,
	} {
		assert.True(t, KindString.ValidFor(typ), "field type %d", typ)
	}
	assert.False(t, KindString.ValidFor(gomysql.MYSQL_TYPE_LONG))

	assert.True(t, KindBlob.ValidFor(gomysql.MYSQL_TYPE_BLOB))
	assert.False(t, KindBlob.ValidFor(gomysql.MYSQL_TYPE_STRING))

	assert.True(t, KindTime.ValidFor(gomysql.MYSQL_TYPE_DATETIME))
	assert.False(t, KindTime.ValidFor(gomysql.MYSQL_TYPE_STRING))
}

func TestDynamicKinds(t *testing.T) {
	assert.True(t, KindString.IsDynamic())
	assert.True(t, KindBlob.IsDynamic())
	assert.False(t, KindTime.IsDynamic())
	assert.False(t, KindInt64.IsDynamic())
}

func TestSchemaOf(t *testing.T) {
	type user struct {
		ID        int64
		Username  string
		Score     float64
		Avatar    Blob
		CreatedAt TimeValue
		internal  int // unexported, skipped
	}
	_ = user{internal: 0}

	schema, err := SchemaOf(&user{})
	require.NoError(t, err)
	assert.Equal(t, Schema{KindInt64, KindString, KindFloat64, KindBlob, KindTime}, schema)

	type bytesRow struct {
		Raw []byte
	}
	schema, err = SchemaOf(bytesRow{})
	require.NoError(t, err)
	assert.Equal(t, Schema{KindBlob}, schema)

	type badRow struct {
		M map[string]string
	}
	_, err = SchemaOf(&badRow{})
	assert.Error(t, err)

	_, err = SchemaOf(42)
	assert.Error(t, err)
}
