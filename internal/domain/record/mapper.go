package record

import (
	"fmt"
	"strings"
)

// RowValues is one submitted table row: column business name → raw value.
type RowValues map[string]string

// FormData is the flat wire representation of one tab's form: scalar values
// keyed by bound field key, plus ordered table rows keyed by table name.
type FormData struct {
	Fields map[string]any         `json:"fields"`
	Tables map[string][]RowValues `json:"tables,omitempty"`
}

// Collect builds the TabDocument for one tab from the submitted form.
// Only keys bound in the schema are read; anything else the client sends is
// ignored. Checkbox bindings collect as booleans, every other binding as a
// string; numeric-looking values stay strings on purpose.
//
// The DNI is the partition key for persistence, so a blank DNI aborts with
// a ValidationError before any store call can happen.
func Collect(schema *TabSchema, form FormData) (TabDocument, error) {
	doc := TabDocument{}

	for _, binding := range schema.Fields {
		raw, ok := form.Fields[binding.Key]
		if !ok {
			continue
		}
		if binding.Kind == KindCheckbox {
			doc[binding.Key] = asBool(raw)
		} else {
			doc[binding.Key] = asString(raw)
		}
	}

	if strings.TrimSpace(doc.String("dni")) == "" {
		return nil, &ValidationError{Field: "dni", Reason: "el DNI es obligatorio para guardar el registro"}
	}

	for _, tmpl := range schema.Tables {
		submitted, ok := form.Tables[tmpl.Name]
		if !ok {
			continue
		}
		rows := make([]RowRecord, 0, len(submitted))
		for _, cells := range submitted {
			row := tmpl.NewRow()
			for _, col := range tmpl.Columns {
				if v, ok := cells[col]; ok {
					row[col] = v
				}
			}
			rows = append(rows, row)
		}
		doc[tmpl.Name] = rows
	}

	return doc, nil
}

// Populate is the inverse of Collect: it rebuilds the flat form values from
// a stored TabDocument. Keys the schema does not bind are ignored (forward
// compatible); bound fields the document lacks stay absent so the client
// keeps its defaults (backward compatible). Rows come back in stored order,
// materialized through the table's row template.
func Populate(schema *TabSchema, doc TabDocument) FormData {
	form := FormData{Fields: map[string]any{}}

	for _, binding := range schema.Fields {
		raw, ok := doc[binding.Key]
		if !ok {
			continue
		}
		if binding.Kind == KindCheckbox {
			form.Fields[binding.Key] = asBool(raw)
		} else {
			form.Fields[binding.Key] = asString(raw)
		}
	}

	for _, tmpl := range schema.Tables {
		stored := doc.Rows(tmpl.Name)
		if stored == nil {
			continue
		}
		if form.Tables == nil {
			form.Tables = map[string][]RowValues{}
		}
		rows := make([]RowValues, 0, len(stored))
		for _, rec := range stored {
			row := tmpl.NewRow()
			for _, col := range tmpl.Columns {
				if v, ok := rec[col]; ok {
					row[col] = v
				}
			}
			rows = append(rows, RowValues(row))
		}
		form.Tables[tmpl.Name] = rows
	}

	return form
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "on" || b == "1"
	}
	return false
}
