package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrMerge marks attachment-splice failures. The discharge workflow treats
// it as a degradation: the base document ships without the attachment.
var ErrMerge = errors.New("attachment merge failed")

// Merger splices a scanned external PDF into a rendered base document.
type Merger struct {
	conf *model.Configuration
}

func NewMerger() *Merger {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Merger{conf: conf}
}

// Merge inserts the external document's pages into base at the zero-based
// page index insertAt. It returns the resulting bytes and whether the
// splice happened: on any failure the base comes back unchanged with
// spliced=false and an ErrMerge-wrapped error, never a broken document.
func (m *Merger) Merge(base []byte, insertAt int, external []byte) ([]byte, bool, error) {
	if err := api.Validate(bytes.NewReader(external), m.conf); err != nil {
		return base, false, fmt.Errorf("%w: invalid external document: %v", ErrMerge, err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(base), m.conf)
	if err != nil {
		return base, false, fmt.Errorf("%w: base page count: %v", ErrMerge, err)
	}
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > pageCount {
		insertAt = pageCount
	}

	var parts []io.ReadSeeker
	switch insertAt {
	case 0:
		parts = []io.ReadSeeker{bytes.NewReader(external), bytes.NewReader(base)}
	case pageCount:
		parts = []io.ReadSeeker{bytes.NewReader(base), bytes.NewReader(external)}
	default:
		head, err := m.pages(base, fmt.Sprintf("1-%d", insertAt))
		if err != nil {
			return base, false, err
		}
		tail, err := m.pages(base, fmt.Sprintf("%d-%d", insertAt+1, pageCount))
		if err != nil {
			return base, false, err
		}
		parts = []io.ReadSeeker{bytes.NewReader(head), bytes.NewReader(external), bytes.NewReader(tail)}
	}

	var out bytes.Buffer
	if err := api.MergeRaw(parts, &out, false, m.conf); err != nil {
		return base, false, fmt.Errorf("%w: %v", ErrMerge, err)
	}
	return out.Bytes(), true, nil
}

// pages extracts a page range from a document.
func (m *Merger) pages(doc []byte, pageRange string) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(doc), &out, []string{pageRange}, m.conf); err != nil {
		return nil, fmt.Errorf("%w: trim %s: %v", ErrMerge, pageRange, err)
	}
	return out.Bytes(), nil
}
