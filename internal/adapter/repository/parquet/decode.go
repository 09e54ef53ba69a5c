package parquet

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/V4T54L/visitor-insight/internal/domain"
)

func decodeSessions(tbl arrow.Table, cols Columns) (domain.SessionTable, error) {
	schema := tbl.Schema()
	vidIdx := fieldIndex(schema, cols.VisitorID)
	if vidIdx < 0 {
		return nil, fmt.Errorf("missing column %q", cols.VisitorID)
	}
	osIdx := fieldIndex(schema, cols.OperatingSystem)
	hitsIdx := fieldIndex(schema, cols.Hits)

	out := make(domain.SessionTable, 0, tbl.NumRows())
	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		vids := rec.Column(vidIdx)
		var oses arrow.Array
		if osIdx >= 0 {
			oses = rec.Column(osIdx)
		}
		var hits *hitDecoder
		if hitsIdx >= 0 {
			hits = newHitDecoder(rec.Column(hitsIdx), cols)
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			vid, ok := stringAt(vids, i)
			if !ok {
				continue
			}
			s := domain.SessionRecord{VisitorID: vid}
			s.OperatingSystem, _ = stringAt(oses, i)
			s.Hits = hits.eventsAt(i)
			out = append(out, s)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeTransactions(tbl arrow.Table, cols Columns) (domain.TransactionTable, error) {
	schema := tbl.Schema()
	idIdx := fieldIndex(schema, cols.FrontendOrderID)
	if idIdx < 0 {
		return nil, fmt.Errorf("missing column %q", cols.FrontendOrderID)
	}
	dropIdx := fieldIndex(schema, cols.GeopointDropoff)
	if dropIdx < 0 {
		return nil, fmt.Errorf("missing column %q", cols.GeopointDropoff)
	}

	out := make(domain.TransactionTable, 0, tbl.NumRows())
	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		ids, drops := rec.Column(idIdx), rec.Column(dropIdx)
		for i := 0; i < int(rec.NumRows()); i++ {
			id, ok := stringAt(ids, i)
			if !ok {
				continue
			}
			t := domain.TransactionRecord{FrontendOrderID: id}
			if v, ok := stringAt(drops, i); ok {
				t.GeopointDropoff = &v
			}
			out = append(out, t)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// hitDecoder reads events out of a list<struct> column. A nil decoder, a null
// list or a column of any other shape yields no events.
type hitDecoder struct {
	list   array.ListLike
	hits   *array.Struct
	action []arrow.Array
	txID   []arrow.Array
}

func newHitDecoder(col arrow.Array, cols Columns) *hitDecoder {
	list, ok := col.(array.ListLike)
	if !ok {
		return nil
	}
	hits, ok := list.ListValues().(*array.Struct)
	if !ok {
		return nil
	}
	return &hitDecoder{
		list:   list,
		hits:   hits,
		action: resolvePath(hits, cols.EventAction),
		txID:   resolvePath(hits, cols.TransactionID),
	}
}

func (d *hitDecoder) eventsAt(i int) []domain.Event {
	if d == nil || d.list.IsNull(i) {
		return nil
	}
	start, end := d.list.ValueOffsets(i)
	if end <= start {
		return nil
	}
	events := make([]domain.Event, 0, end-start)
	for j := int(start); j < int(end); j++ {
		if d.hits.IsNull(j) {
			continue
		}
		var ev domain.Event
		if v, ok := pathStringAt(d.action, j); ok {
			ev.EventAction = &v
		}
		if v, ok := pathStringAt(d.txID, j); ok {
			ev.TransactionID = &v
		}
		events = append(events, ev)
	}
	return events
}

// resolvePath walks a dotted field path through nested structs and returns the
// arrays along it, or nil when any step is missing.
func resolvePath(st *array.Struct, fieldPath string) []arrow.Array {
	if fieldPath == "" {
		return nil
	}
	parts := strings.Split(fieldPath, ".")
	chain := make([]arrow.Array, 0, len(parts))
	cur := st
	for n, name := range parts {
		typ, ok := cur.DataType().(*arrow.StructType)
		if !ok {
			return nil
		}
		idx := structFieldIndex(typ, name)
		if idx < 0 {
			return nil
		}
		child := cur.Field(idx)
		chain = append(chain, child)
		if n == len(parts)-1 {
			break
		}
		if cur, ok = child.(*array.Struct); !ok {
			return nil
		}
	}
	return chain
}

func pathStringAt(chain []arrow.Array, i int) (string, bool) {
	if len(chain) == 0 {
		return "", false
	}
	for _, arr := range chain[:len(chain)-1] {
		if arr.IsNull(i) {
			return "", false
		}
	}
	return stringAt(chain[len(chain)-1], i)
}

// stringAt renders the value at i as a string; false means null.
func stringAt(arr arrow.Array, i int) (string, bool) {
	if arr == nil || arr.IsNull(i) {
		return "", false
	}
	switch a := arr.(type) {
	case *array.String:
		return strings.Clone(a.Value(i)), true
	case *array.LargeString:
		return strings.Clone(a.Value(i)), true
	case *array.Binary:
		return string(a.Value(i)), true
	case *array.LargeBinary:
		return string(a.Value(i)), true
	case *array.Dictionary:
		return stringAt(a.Dictionary(), a.GetValueIndex(i))
	default:
		return arr.ValueStr(i), true
	}
}

// fieldIndex finds a top-level column, falling back to a case-insensitive match.
func fieldIndex(schema *arrow.Schema, name string) int {
	if name == "" {
		return -1
	}
	if idx := schema.FieldIndices(name); len(idx) > 0 {
		return idx[0]
	}
	for i, f := range schema.Fields() {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

func structFieldIndex(typ *arrow.StructType, name string) int {
	if idx, ok := typ.FieldIdx(name); ok {
		return idx
	}
	for i, f := range typ.Fields() {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}
