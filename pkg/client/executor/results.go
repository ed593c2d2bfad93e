package executor

// Mode selects how a Results materialises the server response.
type Mode int

const (
	// ModeExec runs statements with no result set; only AffectedRows is
	// filled.
	ModeExec Mode = iota
	// ModeRaw keeps rows as byte views backed by the stored row set.
	ModeRaw
	// ModeTyped decodes every column into the kind declared by the schema.
	ModeTyped
)

const defaultDynamicBufferInitSize = 64

// ResultsOption tunes result materialisation.
type ResultsOption struct {
	// DynamicBufferInitSize is the initial output buffer size for
	// variable-length columns in ModeTyped. 64 bytes covers most values.
	DynamicBufferInitSize int
}

// Results holds one query outcome: rows in the requested shape, the
// null-flag matrix, field names, the affected-row count and the error pair.
// A Results value is reusable; every execution clears it first.
type Results struct {
	mode   Mode
	schema Schema
	option ResultsOption

	// rows is filled in ModeTyped; each cell holds the concrete Go value of
	// its declared kind.
	rows [][]interface{}

	// rawRows is filled in ModeRaw. The views stay valid while rawSet is
	// held, so they must not outlive the Results (or the next Clear).
	rawRows [][][]byte
	rawSet  RowSet

	fieldNames   []string
	nullFlags    [][]bool
	affectedRows uint64
	hasValue     bool

	errNumber  int
	errMessage string
}

// NewExecResults builds a Results for statements without a result set.
func NewExecResults() *Results {
	return &Results{mode: ModeExec, option: defaultResultsOption()}
}

// NewRawResults builds a Results materialising text-protocol byte views.
func NewRawResults() *Results {
	return &Results{mode: ModeRaw, option: defaultResultsOption()}
}

// NewTypedResults builds a Results decoding each row against schema.
func NewTypedResults(schema Schema, opts ...ResultsOption) *Results {
	option := defaultResultsOption()
	if len(opts) > 0 {
		option = opts[0]
		if option.DynamicBufferInitSize <= 0 {
			option.DynamicBufferInitSize = defaultDynamicBufferInitSize
		}
	}
	return &Results{mode: ModeTyped, schema: schema, option: option}
}

func defaultResultsOption() ResultsOption {
	return ResultsOption{DynamicBufferInitSize: defaultDynamicBufferInitSize}
}

func (r *Results) Mode() Mode            { return r.mode }
func (r *Results) Schema() Schema        { return r.schema }
func (r *Results) Option() ResultsOption { return r.option }

// Rows returns the typed row set. Each row's cells hold int8..uint64,
// float32/float64, string, Blob or TimeValue per the declared schema.
func (r *Results) Rows() [][]interface{} {
	return r.rows
}

// RawRows returns text-protocol byte views. The backing row set belongs to
// the Results; the views die with it.
func (r *Results) RawRows() [][][]byte {
	return r.rawRows
}

func (r *Results) FieldNames() []string {
	return r.fieldNames
}

func (r *Results) NullFlags() [][]bool {
	return r.nullFlags
}

// IsValueNull reports the null flag of one cell; out-of-range indices are
// simply not null.
func (r *Results) IsValueNull(row, col int) bool {
	if row < 0 || row >= len(r.nullFlags) {
		return false
	}
	if col < 0 || col >= len(r.nullFlags[row]) {
		return false
	}
	return r.nullFlags[row][col]
}

func (r *Results) AffectedRows() uint64 {
	return r.affectedRows
}

func (r *Results) HasValue() bool {
	return r.hasValue
}

func (r *Results) OK() bool {
	return r.errNumber == 0
}

func (r *Results) ErrorNumber() int {
	return r.errNumber
}

func (r *Results) ErrorMessage() string {
	return r.errMessage
}

// Clear resets everything except mode, schema and option, releasing the raw
// backing row set.
func (r *Results) Clear() {
	r.rows = nil
	r.rawRows = nil
	r.rawSet = nil
	r.fieldNames = nil
	r.nullFlags = nil
	r.affectedRows = 0
	r.hasValue = false
	r.errNumber = 0
	r.errMessage = ""
}

func (r *Results) setError(number int, message string) {
	r.errNumber = number
	r.errMessage = message
}

func (r *Results) setFieldNames(set RowSet) {
	count := set.FieldCount()
	for i := 0; i < count; i++ {
		r.fieldNames = append(r.fieldNames, set.FieldName(i))
	}
}
