package record

import "github.com/clinica/intake/internal/domain/access"

// FieldKind distinguishes how a bound field's value is collected.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindCheckbox FieldKind = "checkbox"
)

// FieldBinding declares one bound form field: its stored key, how it
// collects, which specialty section owns it, and whether the discharge
// workflow requires it to be filled.
type FieldBinding struct {
	Key      string         `json:"key"`
	Kind     FieldKind      `json:"kind"`
	Section  access.Section `json:"section"`
	Required bool           `json:"required,omitempty"`
}

// RowTemplate declares one dynamic table: its stored name, the business
// names of its columns in order, and the owning section.
type RowTemplate struct {
	Name    string         `json:"name"`
	Columns []string       `json:"columns"`
	Section access.Section `json:"section"`
}

// NewRow materializes an empty row with every template column present.
func (t RowTemplate) NewRow() RowRecord {
	row := make(RowRecord, len(t.Columns))
	for _, col := range t.Columns {
		row[col] = ""
	}
	return row
}

// TabSchema is the explicit mapping between a tab, its bound fields and its
// row templates. The stored keys are the schema keys verbatim; no prefix
// stripping happens anywhere.
type TabSchema struct {
	ID     TabID          `json:"id"`
	Title  string         `json:"title"`
	Fields []FieldBinding `json:"fields"`
	Tables []RowTemplate  `json:"tables"`
}

// Field returns the binding for key, if any.
func (s *TabSchema) Field(key string) (FieldBinding, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldBinding{}, false
}

// Table returns the row template named name, if any.
func (s *TabSchema) Table(name string) (RowTemplate, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return RowTemplate{}, false
}

// RequiredFields lists the keys the discharge workflow validates.
func (s *TabSchema) RequiredFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// adminFields are the intake fields shared by every tab. The DNI is the
// partition key for persistence and is always required.
func adminFields() []FieldBinding {
	return []FieldBinding{
		{Key: "dni", Kind: KindText, Section: access.SectionAdministrativo, Required: true},
		{Key: "apellido", Kind: KindText, Section: access.SectionAdministrativo, Required: true},
		{Key: "nombres", Kind: KindText, Section: access.SectionAdministrativo, Required: true},
		{Key: "fecha-nacimiento", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "obra-social", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "nro-afiliado", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "telefono", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "domicilio", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "fecha-ingreso", Kind: KindText, Section: access.SectionAdministrativo},
		{Key: "habitacion", Kind: KindText, Section: access.SectionAdministrativo},
	}
}

func enfermeriaTable() RowTemplate {
	return RowTemplate{
		Name:    "enfermeria",
		Columns: []string{"Fecha", "Hora", "TA", "FC", "Temperatura", "Observaciones", "Firma"},
		Section: access.SectionEnfermero,
	}
}

func prescripcionesTable() RowTemplate {
	return RowTemplate{
		Name:    "prescripciones",
		Columns: []string{"Fecha", "Medicacion", "Dosis", "Via", "Horario"},
		Section: access.SectionMedico,
	}
}

var tabSchemas = map[TabID]*TabSchema{
	TabHemodinamia: {
		ID:    TabHemodinamia,
		Title: "Hemodinamia",
		Fields: append(adminFields(),
			FieldBinding{Key: "diagnostico", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "procedimiento", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "medico-interviniente", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "acceso-vascular", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "hallazgos", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "conducta", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "ayuno", Kind: KindCheckbox, Section: access.SectionEnfermero},
			FieldBinding{Key: "via-periferica", Kind: KindCheckbox, Section: access.SectionEnfermero},
			FieldBinding{Key: "indicaciones-egreso", Kind: KindText, Section: access.SectionMedico},
		),
		Tables: []RowTemplate{
			{
				Name:    "practicas",
				Columns: []string{"Practica Fecha", "Practica Codigo", "Practica Descripcion"},
				Section: access.SectionMedico,
			},
			enfermeriaTable(),
		},
	},
	TabEndoscopia: {
		ID:    TabEndoscopia,
		Title: "Grupo Endoscópico",
		Fields: append(adminFields(),
			FieldBinding{Key: "diagnostico", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "estudio", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "medico-endoscopista", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "sedacion", Kind: KindCheckbox, Section: access.SectionAnestesista},
			FieldBinding{Key: "hallazgos", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "biopsia", Kind: KindCheckbox, Section: access.SectionMedico},
			FieldBinding{Key: "conducta", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "indicaciones-egreso", Kind: KindText, Section: access.SectionMedico},
		),
		Tables: []RowTemplate{
			{
				Name:    "practicas",
				Columns: []string{"Practica Fecha", "Practica Codigo", "Practica Descripcion"},
				Section: access.SectionMedico,
			},
			enfermeriaTable(),
		},
	},
	TabCirugias: {
		ID:    TabCirugias,
		Title: "Cirugías",
		Fields: append(adminFields(),
			FieldBinding{Key: "diagnostico-preoperatorio", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "diagnostico-postoperatorio", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "operacion-realizada", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "cirujano", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "ayudante", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "instrumentadora", Kind: KindText, Section: access.SectionEnfermero},
			FieldBinding{Key: "tecnica-detalle", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "profilaxis-atb", Kind: KindCheckbox, Section: access.SectionMedico},
			FieldBinding{Key: "indicaciones-egreso", Kind: KindText, Section: access.SectionMedico},
		),
		Tables: []RowTemplate{
			enfermeriaTable(),
			prescripcionesTable(),
		},
	},
	TabCirugiaAnestesia: {
		ID:    TabCirugiaAnestesia,
		Title: "Cirugía y Anestesia",
		Fields: append(adminFields(),
			FieldBinding{Key: "diagnostico-preoperatorio", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "operacion-realizada", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "cirujano", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "anestesiologo", Kind: KindText, Section: access.SectionAnestesista},
			FieldBinding{Key: "tipo-anestesia", Kind: KindText, Section: access.SectionAnestesista},
			FieldBinding{Key: "asa", Kind: KindText, Section: access.SectionAnestesista},
			FieldBinding{Key: "ayuno-verificado", Kind: KindCheckbox, Section: access.SectionAnestesista},
			FieldBinding{Key: "consentimiento-firmado", Kind: KindCheckbox, Section: access.SectionAdministrativo},
			FieldBinding{Key: "tecnica-detalle", Kind: KindText, Section: access.SectionMedico},
			FieldBinding{Key: "evolucion-anestesica", Kind: KindText, Section: access.SectionAnestesista},
			FieldBinding{Key: "indicaciones-egreso", Kind: KindText, Section: access.SectionMedico},
		),
		Tables: []RowTemplate{
			{
				Name:    "monitoreo",
				Columns: []string{"Hora", "TA", "FC", "SpO2", "Drogas", "Observaciones"},
				Section: access.SectionAnestesista,
			},
			enfermeriaTable(),
			prescripcionesTable(),
		},
	},
}

// SchemaFor returns the schema for a tab; ok is false for unknown tabs.
func SchemaFor(tab TabID) (*TabSchema, bool) {
	s, ok := tabSchemas[tab]
	return s, ok
}
