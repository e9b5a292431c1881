// Package blobstore holds scanned external documents awaiting a discharge.
// Each DNI carries at most one attachment: the anesthesia clinic's scanned
// protocol PDF, uploaded ahead of time and spliced into the discharge
// document by the merge step, which consumes it.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound  = errors.New("attachment not found")
	ErrTooLarge  = errors.New("attachment exceeds maximum allowed size")
	ErrNotPDF    = errors.New("attachment must be a PDF")
	ErrEmptyFile = errors.New("attachment is empty")
)

// pdfMagic is the header every well-formed PDF starts with; the merge step
// runs full validation later, this is only a cheap upload-time gate.
const pdfMagic = "%PDF-"

// Attachment is one DNI's pending scanned document.
type Attachment struct {
	ID        uuid.UUID `json:"id"`
	DNI       string    `json:"dni"`
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// Store keeps one pending attachment per DNI. Put replaces any previous
// attachment for the DNI; Take returns it and removes it in one step.
type Store interface {
	Put(ctx context.Context, att *Attachment) error
	Get(ctx context.Context, dni string) (*Attachment, error)
	Take(ctx context.Context, dni string) (*Attachment, error)
	Delete(ctx context.Context, dni string) error
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type memStore struct {
	mu    sync.Mutex
	byDNI map[string]*Attachment
}

func NewMemStore() Store {
	return &memStore{byDNI: map[string]*Attachment{}}
}

func (s *memStore) Put(_ context.Context, att *Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *att
	cp.Data = append([]byte(nil), att.Data...)
	s.byDNI[att.DNI] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, dni string) (*Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.byDNI[dni]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *att
	cp.Data = append([]byte(nil), att.Data...)
	return &cp, nil
}

func (s *memStore) Take(_ context.Context, dni string) (*Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.byDNI[dni]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.byDNI, dni)
	return att, nil
}

func (s *memStore) Delete(_ context.Context, dni string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDNI[dni]; !ok {
		return ErrNotFound
	}
	delete(s.byDNI, dni)
	return nil
}

// ---------------------------------------------------------------------------
// Postgres implementation
// ---------------------------------------------------------------------------

type pgStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Put(ctx context.Context, att *Attachment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO record_attachment (id, dni, file_name, size, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dni) DO UPDATE
		SET id = EXCLUDED.id, file_name = EXCLUDED.file_name,
		    size = EXCLUDED.size, data = EXCLUDED.data, created_at = now()`,
		att.ID, att.DNI, att.FileName, att.Size, att.Data)
	if err != nil {
		return fmt.Errorf("store attachment: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, dni string) (*Attachment, error) {
	var att Attachment
	err := s.pool.QueryRow(ctx, `
		SELECT id, dni, file_name, size, created_at, data
		FROM record_attachment WHERE dni = $1`, dni).
		Scan(&att.ID, &att.DNI, &att.FileName, &att.Size, &att.CreatedAt, &att.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attachment: %w", err)
	}
	return &att, nil
}

func (s *pgStore) Take(ctx context.Context, dni string) (*Attachment, error) {
	var att Attachment
	err := s.pool.QueryRow(ctx, `
		DELETE FROM record_attachment WHERE dni = $1
		RETURNING id, dni, file_name, size, created_at, data`, dni).
		Scan(&att.ID, &att.DNI, &att.FileName, &att.Size, &att.CreatedAt, &att.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take attachment: %w", err)
	}
	return &att, nil
}

func (s *pgStore) Delete(ctx context.Context, dni string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM record_attachment WHERE dni = $1`, dni)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP handlers
// ---------------------------------------------------------------------------

// Handler exposes the attachment endpoints.
type Handler struct {
	store    Store
	maxBytes int64
	log      zerolog.Logger
}

func NewHandler(store Store, maxBytes int64, log zerolog.Logger) *Handler {
	return &Handler{store: store, maxBytes: maxBytes, log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/records/:dni/attachment", h.Upload)
	g.GET("/records/:dni/attachment", h.Status)
	g.DELETE("/records/:dni/attachment", h.Remove)
}

// Upload receives the scanned PDF as the "archivo" multipart part.
func (h *Handler) Upload(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	if dni == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "DNI vacío")
	}

	file, err := c.FormFile("archivo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "falta el archivo adjunto")
	}
	if file.Size > h.maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrTooLarge.Error())
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if int64(len(data)) > h.maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrTooLarge.Error())
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, ErrEmptyFile.Error())
	}
	if !strings.HasPrefix(string(data[:min(len(data), len(pdfMagic))]), pdfMagic) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, ErrNotPDF.Error())
	}

	att := &Attachment{
		ID:        uuid.New(),
		DNI:       dni,
		FileName:  file.Filename,
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
		Data:      data,
	}
	if err := h.store.Put(c.Request().Context(), att); err != nil {
		h.log.Error().Err(err).Str("dni", dni).Msg("attachment store failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "no se pudo guardar el adjunto")
	}
	h.log.Info().Str("dni", dni).Str("file", att.FileName).Int64("size", att.Size).Msg("attachment stored")
	return c.JSON(http.StatusCreated, att)
}

// Status reports whether a pending attachment exists for the DNI.
func (h *Handler) Status(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	att, err := h.store.Get(c.Request().Context(), dni)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusOK, map[string]any{"pending": false})
	}
	if err != nil {
		h.log.Error().Err(err).Str("dni", dni).Msg("attachment lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
	return c.JSON(http.StatusOK, map[string]any{"pending": true, "attachment": att})
}

// Remove discards a pending attachment before any discharge consumes it.
func (h *Handler) Remove(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	if err := h.store.Delete(c.Request().Context(), dni); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no hay adjunto pendiente")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
	return c.NoContent(http.StatusNoContent)
}
