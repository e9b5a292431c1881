// Package record implements the patient record: a nested document keyed by
// DNI, one sub-document per procedure tab, mapped to and from the flat form
// representation the client edits.
package record

import "encoding/json"

// TabID identifies one of the four procedure tabs.
type TabID string

const (
	TabHemodinamia      TabID = "hemodinamia"
	TabEndoscopia       TabID = "grupo-endoscopico"
	TabCirugias         TabID = "cirugias"
	TabCirugiaAnestesia TabID = "cirugia-anestesia"
)

// KeyDischargeTimestamp is the cross-cutting record key holding the epoch
// milliseconds of the discharge stamp. Set at most once, never overwritten.
const KeyDischargeTimestamp = "dischargeTimestamp"

// AllTabs lists the procedure tabs in presentation order.
func AllTabs() []TabID {
	return []TabID{TabHemodinamia, TabEndoscopia, TabCirugias, TabCirugiaAnestesia}
}

// ValidTab reports whether t names a known procedure tab.
func ValidTab(t TabID) bool {
	switch t {
	case TabHemodinamia, TabEndoscopia, TabCirugias, TabCirugiaAnestesia:
		return true
	}
	return false
}

// RowRecord is one row of a table, keyed by the column's business name.
type RowRecord map[string]string

// TabDocument stores one tab's data: field key → scalar (string or bool),
// table name → ordered rows. Values deserialized from JSONB arrive as
// map[string]any / []any, so readers go through the accessors below.
type TabDocument map[string]any

// PatientRecord maps tab identifiers to their TabDocument, plus the
// cross-cutting dischargeTimestamp.
type PatientRecord map[string]any

// Scalar returns the scalar stored under key, or nil when the key is absent
// or holds a table.
func (d TabDocument) Scalar(key string) any {
	switch v := d[key].(type) {
	case string, bool:
		return v
	}
	return nil
}

// String returns the string stored under key, or "" for anything else.
func (d TabDocument) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean stored under key, or false for anything else.
func (d TabDocument) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Rows returns the ordered rows stored under the table name. It tolerates
// both the in-memory []RowRecord form and the []any form JSON decoding
// produces after a reload.
func (d TabDocument) Rows(table string) []RowRecord {
	switch rows := d[table].(type) {
	case []RowRecord:
		return rows
	case []any:
		out := make([]RowRecord, 0, len(rows))
		for _, r := range rows {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			row := make(RowRecord, len(m))
			for k, v := range m {
				if s, ok := v.(string); ok {
					row[k] = s
				}
			}
			out = append(out, row)
		}
		return out
	}
	return nil
}

// Tab returns the TabDocument stored under the tab id, or an empty document.
func (r PatientRecord) Tab(id TabID) TabDocument {
	switch doc := r[string(id)].(type) {
	case TabDocument:
		return doc
	case map[string]any:
		return TabDocument(doc)
	}
	return TabDocument{}
}

// SetTab replaces the tab's sub-document, leaving every sibling key intact.
func (r PatientRecord) SetTab(id TabID, doc TabDocument) {
	r[string(id)] = doc
}

// DischargeMillis returns the discharge stamp in epoch milliseconds, or nil
// when the record was never discharged. JSON decoding may deliver the stamp
// as float64 or json.Number depending on the path it took.
func (r PatientRecord) DischargeMillis() *int64 {
	switch v := r[KeyDischargeTimestamp].(type) {
	case int64:
		return &v
	case float64:
		ms := int64(v)
		return &ms
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return &ms
		}
	}
	return nil
}

// Clone deep-copies the record through a JSON round trip, so callers can
// mutate the copy without aliasing stored state.
func (r PatientRecord) Clone() PatientRecord {
	if r == nil {
		return PatientRecord{}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return PatientRecord{}
	}
	var out PatientRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return PatientRecord{}
	}
	return out
}
