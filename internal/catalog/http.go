package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogStore/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 1 * time.Second

	msgNotFound = "Producto no encontrado"
)

// Catalog is the part of Manager the HTTP layer depends on.
type Catalog interface {
	ListN(n int) []Product
	Get(id int) (Product, error)
	Create(ctx context.Context, d Draft) (Product, error)
	Update(ctx context.Context, id int, d Draft) (Product, error)
	Delete(ctx context.Context, id int) error
	Ping(ctx context.Context) error
}

type Server struct {
	Catalog Catalog
	Log     *zap.Logger

	// Guard protects the write routes. They are not mounted when it is nil.
	Guard func(http.Handler) http.Handler
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)

	if s.Guard != nil {
		r.Group(func(wr chi.Router) {
			wr.Use(s.Guard)
			wr.Post("/products", s.create)
			wr.Put("/products/{id}", s.update)
			wr.Delete("/products/{id}", s.delete)
		})
	}

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Catalog.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Catalog.ListN(parseLimit(r.URL.Query().Get("limit"))))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	p, err := s.Catalog.Get(id)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.Create(r.Context(), d)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	d, err := decodeDraft(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.Update(r.Context(), id, d)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *ValidationError
		derr *DuplicateCodeError
	)

	switch {
	case errors.Is(err, ErrNotFound):
		writeNotFound(w)
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusBadRequest, ErrValidation.Error(), map[string]any{"fields": verr.Fields})
	case errors.As(err, &derr):
		kit.WriteError(w, r, http.StatusConflict, ErrDuplicateCode.Error(), map[string]any{"code": derr.Code})
	case errors.Is(err, ErrPersistence):
		s.logFailure(r, err)
		kit.WriteError(w, r, http.StatusInternalServerError, ErrPersistence.Error(), nil)
	default:
		s.logFailure(r, err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logFailure(r *http.Request, err error) {
	s.logger().Error("catalog operation failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func writeNotFound(w http.ResponseWriter) {
	kit.WriteMessage(w, http.StatusNotFound, msgNotFound)
}

// parseLimit returns 0 (no limit) unless raw is a positive integer.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func productID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (Draft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var d Draft
	if err := dec.Decode(&d); err != nil {
		return Draft{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Draft{}, errors.New("extra data after json object")
	}
	return d, nil
}
