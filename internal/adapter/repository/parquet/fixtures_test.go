package parquet

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	arrowparquet "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/require"
)

type hitRow struct {
	action *string
	txID   *string
	null   bool
}

type sessionRow struct {
	visitorID *string
	os        *string
	hits      []hitRow
	nullHits  bool
}

type transactionRow struct {
	orderID *string
	dropoff *string
}

func sp(s string) *string { return &s }

var hitType = arrow.StructOf(
	arrow.Field{Name: "eventAction", Type: arrow.BinaryTypes.String, Nullable: true},
	arrow.Field{Name: "transactionId", Type: arrow.BinaryTypes.String, Nullable: true},
)

var sessionSchema = arrow.NewSchema([]arrow.Field{
	{Name: "fullvisitorid", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "operatingSystem", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "hit", Type: arrow.ListOf(hitType), Nullable: true},
}, nil)

var transactionSchema = arrow.NewSchema([]arrow.Field{
	{Name: "frontendOrderId", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "geopointDropoff", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func appendOpt(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

func sessionTable(t *testing.T, rows []sessionRow) arrow.Table {
	t.Helper()
	b := array.NewRecordBuilder(memory.DefaultAllocator, sessionSchema)
	defer b.Release()

	vb := b.Field(0).(*array.StringBuilder)
	ob := b.Field(1).(*array.StringBuilder)
	lb := b.Field(2).(*array.ListBuilder)
	sb := lb.ValueBuilder().(*array.StructBuilder)
	ab := sb.FieldBuilder(0).(*array.StringBuilder)
	tb := sb.FieldBuilder(1).(*array.StringBuilder)

	for _, r := range rows {
		appendOpt(vb, r.visitorID)
		appendOpt(ob, r.os)
		if r.nullHits {
			lb.AppendNull()
			continue
		}
		lb.Append(true)
		for _, h := range r.hits {
			if h.null {
				sb.AppendNull()
				continue
			}
			sb.Append(true)
			appendOpt(ab, h.action)
			appendOpt(tb, h.txID)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(sessionSchema, []arrow.Record{rec})
}

func transactionTable(t *testing.T, rows []transactionRow) arrow.Table {
	t.Helper()
	b := array.NewRecordBuilder(memory.DefaultAllocator, transactionSchema)
	defer b.Release()

	for _, r := range rows {
		appendOpt(b.Field(0).(*array.StringBuilder), r.orderID)
		appendOpt(b.Field(1).(*array.StringBuilder), r.dropoff)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(transactionSchema, []arrow.Record{rec})
}

func writeParquet(t *testing.T, tbl arrow.Table) []byte {
	t.Helper()
	defer tbl.Release()
	var buf bytes.Buffer
	err := pqarrow.WriteTable(tbl, &buf, 1024, arrowparquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	return buf.Bytes()
}

func sessionsParquet(t *testing.T, rows ...sessionRow) []byte {
	return writeParquet(t, sessionTable(t, rows))
}

func transactionsParquet(t *testing.T, rows ...transactionRow) []byte {
	return writeParquet(t, transactionTable(t, rows))
}
