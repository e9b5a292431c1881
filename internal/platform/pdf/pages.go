package pdf

import (
	"fmt"
	"time"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/domain/record"
)

// Signer is whoever triggered the discharge; their signature is stamped
// only on the pages their specialty may sign.
type Signer struct {
	Role      access.Role
	Nombre    string
	Apellido  string
	Matricula string
	FirmaPNG  string
}

func (s Signer) caption() string {
	c := fmt.Sprintf("%s %s", s.Nombre, s.Apellido)
	if s.Matricula != "" {
		c += " - " + s.Matricula
	}
	return c
}

// maySign reports whether the signer's specialty is in the page's allowed
// set. Administrador signs anything.
func (s Signer) maySign(allowed ...access.Role) bool {
	if s.Role == access.RoleAdministrador {
		return true
	}
	for _, r := range allowed {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Row capacities of the printed grids.
const (
	capPracticas      = 10
	capEnfermeria     = 14
	capPrescripciones = 12
	capMonitoreo      = 16
)

// Renderer composes the discharge document for each procedure type.
type Renderer struct {
	clinic string
}

func NewRenderer(clinicName string) *Renderer {
	return &Renderer{clinic: clinicName}
}

// Render builds the full document for one tab of a record: the procedure's
// pages in fixed order, then the discharge summary as the terminal page.
func (r *Renderer) Render(tab record.TabID, rec record.PatientRecord, signer Signer, dischargedAt time.Time) ([]byte, int, error) {
	doc := rec.Tab(tab)
	d := NewDoc(r.clinic)

	switch tab {
	case record.TabHemodinamia:
		r.hemodinamiaReport(d, doc, signer)
		r.practicasPage(d, doc, signer)
	case record.TabEndoscopia:
		r.endoscopiaReport(d, doc, signer)
		r.practicasPage(d, doc, signer)
	case record.TabCirugias:
		r.protocoloQuirurgico(d, doc, signer)
		r.enfermeriaPage(d, doc, signer)
		r.prescripcionesPage(d, doc, signer)
	case record.TabCirugiaAnestesia:
		// The anesthesia protocol leads so the scanned external protocol
		// can be spliced right behind it.
		r.protocoloAnestesico(d, doc, signer)
		r.protocoloQuirurgico(d, doc, signer)
		r.enfermeriaPage(d, doc, signer)
		r.prescripcionesPage(d, doc, signer)
	default:
		return nil, 0, fmt.Errorf("unknown procedure tab: %s", tab)
	}

	r.dischargeSummary(d, doc, signer, dischargedAt)

	out, err := d.Output()
	if err != nil {
		return nil, 0, err
	}
	return out, d.pdf.PageCount(), nil
}

// intakeHeader draws the administrative intake block shared by every
// procedure's first page.
func (r *Renderer) intakeHeader(d *Doc, doc record.TabDocument) {
	d.Label("Apellido y nombres", doc.String("apellido")+", "+doc.String("nombres"))
	d.Label("DNI", doc.String("dni"))
	d.Label("Fecha de nacimiento", doc.String("fecha-nacimiento"))
	d.Label("Obra social", doc.String("obra-social"))
	d.Label("Nro. de afiliado", doc.String("nro-afiliado"))
	d.Label("Teléfono", doc.String("telefono"))
	d.Label("Domicilio", doc.String("domicilio"))
	d.Label("Fecha de ingreso", doc.String("fecha-ingreso"))
	d.Label("Habitación", doc.String("habitacion"))
}

func (r *Renderer) hemodinamiaReport(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Informe de Hemodinamia")
	r.intakeHeader(d, doc)
	d.SectionTitle("Procedimiento")
	d.Label("Diagnóstico", doc.String("diagnostico"))
	d.Label("Procedimiento", doc.String("procedimiento"))
	d.Label("Médico interviniente", doc.String("medico-interviniente"))
	d.Label("Acceso vascular", doc.String("acceso-vascular"))
	d.Checkbox("Ayuno", doc.Bool("ayuno"))
	d.Checkbox("Vía periférica", doc.Bool("via-periferica"))
	d.TextBlock("Hallazgos", doc.String("hallazgos"), 8)
	d.TextBlock("Conducta", doc.String("conducta"), 4)
	if signer.maySign(access.RoleMedico) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

func (r *Renderer) endoscopiaReport(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Informe Endoscópico")
	r.intakeHeader(d, doc)
	d.SectionTitle("Estudio")
	d.Label("Diagnóstico", doc.String("diagnostico"))
	d.Label("Estudio", doc.String("estudio"))
	d.Label("Médico endoscopista", doc.String("medico-endoscopista"))
	d.Checkbox("Sedación", doc.Bool("sedacion"))
	d.Checkbox("Biopsia", doc.Bool("biopsia"))
	d.TextBlock("Hallazgos", doc.String("hallazgos"), 8)
	d.TextBlock("Conducta", doc.String("conducta"), 4)
	if signer.maySign(access.RoleMedico) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

func (r *Renderer) protocoloQuirurgico(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Protocolo Quirúrgico")
	r.intakeHeader(d, doc)
	d.SectionTitle("Intervención")
	d.Label("Diagnóstico preoperatorio", doc.String("diagnostico-preoperatorio"))
	if v := doc.String("diagnostico-postoperatorio"); v != "" {
		d.Label("Diagnóstico postoperatorio", v)
	}
	d.Label("Operación realizada", doc.String("operacion-realizada"))
	d.Label("Cirujano", doc.String("cirujano"))
	d.Label("Ayudante", doc.String("ayudante"))
	d.Label("Instrumentadora", doc.String("instrumentadora"))
	d.Checkbox("Profilaxis ATB", doc.Bool("profilaxis-atb"))
	d.TextBlock("Técnica", doc.String("tecnica-detalle"), 14)
	if signer.maySign(access.RoleMedico) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

func (r *Renderer) protocoloAnestesico(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Protocolo Anestésico")
	d.Label("Apellido y nombres", doc.String("apellido")+", "+doc.String("nombres"))
	d.Label("DNI", doc.String("dni"))
	d.Label("Anestesiólogo", doc.String("anestesiologo"))
	d.Label("Tipo de anestesia", doc.String("tipo-anestesia"))
	d.Label("ASA", doc.String("asa"))
	d.Checkbox("Ayuno verificado", doc.Bool("ayuno-verificado"))
	d.Checkbox("Consentimiento firmado", doc.Bool("consentimiento-firmado"))
	d.SectionTitle("Monitoreo")
	d.Table(
		[]string{"Hora", "TA", "FC", "SpO2", "Drogas", "Observaciones"},
		[]float64{1, 1.2, 0.8, 0.8, 2, 2.5},
		rowsFor(doc, "monitoreo", []string{"Hora", "TA", "FC", "SpO2", "Drogas", "Observaciones"}),
		capMonitoreo,
	)
	d.TextBlock("Evolución anestésica", doc.String("evolucion-anestesica"), 5)
	if signer.maySign(access.RoleAnestesista) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

func (r *Renderer) practicasPage(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Prácticas y Controles de Enfermería")
	d.SectionTitle("Prácticas")
	d.Table(
		[]string{"Fecha", "Código", "Descripción"},
		[]float64{1, 1, 3.5},
		rowsFor(doc, "practicas", []string{"Practica Fecha", "Practica Codigo", "Practica Descripcion"}),
		capPracticas,
	)
	r.enfermeriaGrid(d, doc, signer)
}

func (r *Renderer) enfermeriaPage(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Controles de Enfermería")
	r.enfermeriaGrid(d, doc, signer)
}

// enfermeriaGrid draws the nursing-control table. Only nursing staff (or
// an administrator) sign these pages.
func (r *Renderer) enfermeriaGrid(d *Doc, doc record.TabDocument, signer Signer) {
	d.SectionTitle("Controles de enfermería")
	d.Table(
		[]string{"Fecha", "Hora", "TA", "FC", "Temp.", "Observaciones", "Firma"},
		[]float64{1.1, 0.8, 1, 0.8, 0.8, 2.8, 1.2},
		rowsFor(doc, "enfermeria", []string{"Fecha", "Hora", "TA", "FC", "Temperatura", "Observaciones", "Firma"}),
		capEnfermeria,
	)
	if signer.maySign(access.RoleEnfermero) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

func (r *Renderer) prescripcionesPage(d *Doc, doc record.TabDocument, signer Signer) {
	d.AddPage("Prescripciones Médicas")
	d.SectionTitle("Prescripciones")
	d.Table(
		[]string{"Fecha", "Medicación", "Dosis", "Vía", "Horario"},
		[]float64{1, 2.5, 1, 0.8, 1.2},
		rowsFor(doc, "prescripciones", []string{"Fecha", "Medicacion", "Dosis", "Via", "Horario"}),
		capPrescripciones,
	)
	if signer.maySign(access.RoleMedico) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	}
}

// dischargeSummary is the terminal page of every document. Only a physician
// (or an administrator) signs it; any other signer leaves the bare
// signature line for the physician to sign on paper.
func (r *Renderer) dischargeSummary(d *Doc, doc record.TabDocument, signer Signer, dischargedAt time.Time) {
	d.AddPage("Resumen de Alta")
	d.Centered("Paciente", doc.String("apellido")+", "+doc.String("nombres"))
	d.Centered("DNI", doc.String("dni"))
	d.Space(4)
	d.Label("Fecha y hora de alta", dischargedAt.Format("02/01/2006 15:04"))
	d.TextBlock("Indicaciones al egreso", doc.String("indicaciones-egreso"), 10)
	d.Space(10)
	if signer.maySign(access.RoleMedico) {
		d.SignatureBlock(signer.caption(), signer.FirmaPNG)
	} else {
		d.SignatureLine("Firma y sello del médico")
	}
}

// rowsFor flattens a stored table into cell rows in the given column order.
func rowsFor(doc record.TabDocument, table string, columns []string) [][]string {
	stored := doc.Rows(table)
	out := make([][]string, 0, len(stored))
	for _, rec := range stored {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		out = append(out, row)
	}
	return out
}
