package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/domain"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
	logpkg "github.com/kailas-cloud/zelastic/internal/logger"
	healthuc "github.com/kailas-cloud/zelastic/internal/usecase/health"
	storeuc "github.com/kailas-cloud/zelastic/internal/usecase/store"
	"github.com/kailas-cloud/zelastic/internal/version"
)

// Search paging limits.
const (
	defaultSearchLimit = 50
	maxSearchLimit     = 1000
	maxBodyBytes       = 16 << 20
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeDuplicateKey     ErrorCode = "duplicate_key"
	CodeInvalidIndexType ErrorCode = "invalid_index_type"
	CodeInvalidName      ErrorCode = "invalid_name"
	CodeInvalidFilter    ErrorCode = "invalid_filter"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchIndex is the part of the search adapter the API exposes directly.
type SearchIndex interface {
	Flush(ctx context.Context) error
	MappingExists(ctx context.Context, container string) (bool, error)
	Document(ctx context.Context, container, id string) (map[string]string, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the container REST API.
type Server struct {
	store         *storeuc.Service
	index         SearchIndex
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(store *storeuc.Service, index SearchIndex, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  store,
		index:  index,
		health: health,
		logger: logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrDuplicateKey, http.StatusConflict, CodeDuplicateKey),
			sentinelHandler(domain.ErrInvalidIndexType, http.StatusBadRequest, CodeInvalidIndexType),
			sentinelHandler(domain.ErrInvalidName, http.StatusBadRequest, CodeInvalidName),
			sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeInvalidFilter),
			sentinelHandler(domain.ErrIndexOutOfRange, http.StatusBadRequest, CodeBadRequest),
		},
	}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/flush", s.Flush)

	r.Route("/containers", func(r chi.Router) {
		r.Get("/", s.ListContainers)
		r.Route("/{name}", func(r chi.Router) {
			r.Put("/", s.OpenContainer)
			r.Delete("/", s.DropContainer)
			r.Get("/meta", s.GetMeta)
			r.Post("/indexes", s.AddIndex)
			r.Post("/search", s.Search)
			r.Get("/records", s.ListRecords)
			r.Post("/records", s.InsertRecord)
			r.Get("/records/{id}", s.GetRecord)
			r.Put("/records/{id}", s.UpdateRecord)
			r.Delete("/records/{id}", s.DeleteRecord)
			r.Get("/records/{id}/document", s.GetDocument)
		})
	})
}

// --- DTOs ---

// ContainerResponse describes a container and its index definitions.
// Mapped reports whether the search engine currently holds the container index.
type ContainerResponse struct {
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Indexes   []IndexResponse `json:"indexes"`
	Mapped    bool            `json:"mapped"`
}

// IndexRequest is the body of POST /containers/{name}/indexes.
type IndexRequest struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// IndexResponse is a single index definition.
type IndexResponse struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// SearchRequest is the body of POST /containers/{name}/search.
// Filters are exact matches; Ranges bound numeric fields. Both are ANDed.
type SearchRequest struct {
	Filters map[string]any          `json:"filters"`
	Ranges  map[string]RangeRequest `json:"ranges"`
	Sort    string                  `json:"sort"`
	Offset  int                     `json:"offset"`
	Limit   int                     `json:"limit"`
}

// RangeRequest bounds a numeric field.
type RangeRequest struct {
	GT  *float64 `json:"gt"`
	GTE *float64 `json:"gte"`
	LT  *float64 `json:"lt"`
	LTE *float64 `json:"lte"`
}

// SearchResponse is a page of resolved hits.
type SearchResponse struct {
	Total int          `json:"total"`
	Items []RecordItem `json:"items"`
}

// RecordItem is a record with its identity.
type RecordItem struct {
	ID     string        `json:"id"`
	Record record.Record `json:"record"`
}

// --- Containers ---

// ListContainers handles GET /containers.
func (s *Server) ListContainers(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"items": names})
}

// OpenContainer handles PUT /containers/{name}: get-or-create.
func (s *Server) OpenContainer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.store.Container(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeMeta(w, r, name)
}

// DropContainer handles DELETE /containers/{name}.
func (s *Server) DropContainer(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Drop(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMeta handles GET /containers/{name}/meta.
func (s *Server) GetMeta(w http.ResponseWriter, r *http.Request) {
	s.writeMeta(w, r, chi.URLParam(r, "name"))
}

func (s *Server) writeMeta(w http.ResponseWriter, r *http.Request, name string) {
	info, err := s.store.Info(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sch, err := s.store.Meta(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	mapped, err := s.index.MappingExists(r.Context(), name)
	if err != nil {
		logpkg.FromContext(r.Context(), s.logger).Warn("Search mapping check failed",
			zap.String("container", name), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, ContainerResponse{
		Name:      info.Name(),
		CreatedAt: time.UnixMilli(info.CreatedAt()).UTC(),
		Indexes:   indexesToResponse(sch),
		Mapped:    mapped,
	})
}

// AddIndex handles POST /containers/{name}/indexes.
func (s *Server) AddIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := c.AddIndex(r.Context(), req.Field, req.Type); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IndexResponse(req))
}

// --- Records ---

// ListRecords handles GET /containers/{name}/records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	ids, err := c.Keys(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ids, "total": len(ids)})
}

// InsertRecord handles POST /containers/{name}/records[?id=].
func (s *Server) InsertRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if !decodeBody(w, r, &rec) {
		return
	}
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	id, err := c.Insert(r.Context(), rec, r.URL.Query().Get("id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetRecord handles GET /containers/{name}/records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	rec, err := c.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord handles PUT /containers/{name}/records/{id}.
func (s *Server) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if !decodeBody(w, r, &rec) {
		return
	}
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := c.Update(r.Context(), rec, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRecord handles DELETE /containers/{name}/records/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := c.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDocument handles GET /containers/{name}/records/{id}/document: the search
// side projection of a record, which may lag or outlive the record itself.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.store.Info(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	doc, err := s.index.Document(r.Context(), name, chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// --- Search ---

// Search handles POST /containers/{name}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Offset < 0 || req.Limit < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "offset and limit must be non-negative")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	c, err := s.store.Container(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	expr, err := buildExpression(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidFilter, err.Error())
		return
	}
	res, err := c.Search(r.Context(), expr, req.Sort)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ids := res.IDs()
	lo, hi := min(req.Offset, len(ids)), min(req.Offset+limit, len(ids))
	recs, err := res.Slice(r.Context(), lo, hi)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]RecordItem, len(recs))
	for i, rec := range recs {
		items[i] = RecordItem{ID: ids[lo+i], Record: rec}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Total: res.Len(), Items: items})
}

func buildExpression(req SearchRequest) (filter.Expression, error) {
	eq, err := filter.Equals(normalizeNumbers(req.Filters))
	if err != nil || len(req.Ranges) == 0 {
		return eq, err
	}

	keys := make([]string, 0, len(req.Ranges))
	for k := range req.Ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := eq.Must()
	for _, k := range keys {
		rr := req.Ranges[k]
		rng, err := filter.NewRangeFilter(rr.GT, rr.GTE, rr.LT, rr.LTE)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("range %q: %w", k, err)
		}
		c, err := filter.NewRange(k, rng)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	return filter.NewExpression(must, nil, nil)
}

// normalizeNumbers turns integral JSON numbers into int64 so they match int fields.
func normalizeNumbers(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[k] = int64(f)
			continue
		}
		out[k] = v
	}
	return out
}

// --- Ops ---

// Flush handles POST /flush.
func (s *Server) Flush(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Flush(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
		"build":  version.Current(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func indexesToResponse(sch domschema.Schema) []IndexResponse {
	out := make([]IndexResponse, 0, sch.Len())
	for _, d := range sch.Definitions() {
		out = append(out, IndexResponse{Field: d.Field(), Type: string(d.Type())})
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
