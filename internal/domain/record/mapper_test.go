package record

import (
	"reflect"
	"testing"
)

func hemoForm() FormData {
	return FormData{
		Fields: map[string]any{
			"dni":            "30123456",
			"apellido":       "Pereyra",
			"nombres":        "Marta",
			"diagnostico":    "Angor inestable",
			"ayuno":          true,
			"via-periferica": "on",
			"ignored-key":    "should vanish",
		},
		Tables: map[string][]RowValues{
			"practicas": {
				{"Practica Fecha": "12/03/2026", "Practica Codigo": "17.01.01", "Practica Descripcion": "CCG"},
				{"Practica Fecha": "12/03/2026", "Practica Codigo": "17.02.04"},
			},
		},
	}
}

func TestCollect_BoundKeysOnly(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	doc, err := Collect(schema, hemoForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc["ignored-key"]; ok {
		t.Error("unbound key leaked into the document")
	}
	if doc.String("diagnostico") != "Angor inestable" {
		t.Errorf("diagnostico = %q", doc.String("diagnostico"))
	}
}

func TestCollect_CheckboxBecomesBool(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	doc, err := Collect(schema, hemoForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := doc["ayuno"].(bool); !ok || !v {
		t.Errorf("ayuno = %#v, want true bool", doc["ayuno"])
	}
	if v, ok := doc["via-periferica"].(bool); !ok || !v {
		t.Errorf("via-periferica = %#v, want true bool (checkbox 'on')", doc["via-periferica"])
	}
}

func TestCollect_NumericStaysString(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	form := hemoForm()
	form.Fields["telefono"] = "2994123456"
	doc, err := Collect(schema, form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := doc["telefono"].(string); !ok || v != "2994123456" {
		t.Errorf("telefono = %#v, want string", doc["telefono"])
	}
}

func TestCollect_BlankDNIRejected(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	form := hemoForm()
	form.Fields["dni"] = "   "
	_, err := Collect(schema, form)
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCollect_RowsFilledFromTemplate(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	doc, err := Collect(schema, hemoForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := doc.Rows("practicas")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Missing cell in the second submitted row materializes as empty string.
	if v, ok := rows[1]["Practica Descripcion"]; !ok || v != "" {
		t.Errorf("missing cell = %q, %v; want empty present", v, ok)
	}
}

func TestRoundTrip_PopulateCollect(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	doc, err := Collect(schema, hemoForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	form2 := Populate(schema, doc)
	doc2, err := Collect(schema, form2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(doc, doc2) {
		t.Errorf("round trip drifted:\n  first  %#v\n  second %#v", doc, doc2)
	}
}

func TestPopulate_ExtrasIgnoredMissingAbsent(t *testing.T) {
	schema, _ := SchemaFor(TabHemodinamia)
	doc := TabDocument{
		"dni":          "30123456",
		"legacy-field": "from an older schema",
	}
	form := Populate(schema, doc)
	if _, ok := form.Fields["legacy-field"]; ok {
		t.Error("unbound stored key leaked into the form")
	}
	if _, ok := form.Fields["apellido"]; ok {
		t.Error("absent bound key should stay absent, not zero-filled")
	}
	if form.Fields["dni"] != "30123456" {
		t.Errorf("dni = %v", form.Fields["dni"])
	}
}

func TestPopulate_RowOrderPreserved(t *testing.T) {
	schema, _ := SchemaFor(TabCirugiaAnestesia)
	doc := TabDocument{
		"dni": "28999888",
		"monitoreo": []RowRecord{
			{"Hora": "08:00", "TA": "120/80", "FC": "72", "SpO2": "98", "Drogas": "", "Observaciones": ""},
			{"Hora": "08:15", "TA": "118/76", "FC": "70", "SpO2": "99", "Drogas": "Propofol", "Observaciones": ""},
			{"Hora": "08:30", "TA": "115/74", "FC": "68", "SpO2": "99", "Drogas": "", "Observaciones": "estable"},
		},
	}
	form := Populate(schema, doc)
	rows := form.Tables["monitoreo"]
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, hora := range []string{"08:00", "08:15", "08:30"} {
		if rows[i]["Hora"] != hora {
			t.Errorf("row %d Hora = %q, want %q", i, rows[i]["Hora"], hora)
		}
	}
}
