package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ClinicFileExt is the extension of the portable record export format.
const ClinicFileExt = ".clinic"

// Export serializes one DNI's record as pretty-printed JSON, re-importable
// verbatim through Import.
func (s *Service) Export(ctx context.Context, dni string) ([]byte, error) {
	rec, err := s.repo.Get(ctx, dni)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: export %s: %v", ErrPersistence, dni, err)
	}
	return out, nil
}

// Import parses a .clinic payload and stores it. The discharge stamp is
// stripped so an imported record never starts pre-locked, and the target
// DNI is scanned out of the tab documents rather than trusted from the
// file name.
func (s *Service) Import(ctx context.Context, data []byte) (string, error) {
	var rec PatientRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", &ValidationError{Field: "archivo", Reason: "el archivo no es un registro .clinic válido"}
	}

	delete(rec, KeyDischargeTimestamp)

	dni := scanDNI(rec)
	if dni == "" {
		return "", &ValidationError{Field: "dni", Reason: "el archivo no contiene ningún DNI"}
	}

	if err := s.repo.Upsert(ctx, dni, rec); err != nil {
		return "", err
	}
	if s.collector != nil {
		s.collector.RecordsImportedTotal.Inc()
	}
	s.log.Info().Str("dni", dni).Msg("record imported")
	return dni, nil
}

// scanDNI walks the tab documents in presentation order and returns the
// first non-blank dni value.
func scanDNI(rec PatientRecord) string {
	for _, tab := range AllTabs() {
		if dni := strings.TrimSpace(rec.Tab(tab).String("dni")); dni != "" {
			return dni
		}
	}
	return ""
}
