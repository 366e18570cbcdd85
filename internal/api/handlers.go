package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rpattn/advfilter/internal/domain"
	"github.com/rpattn/advfilter/internal/engine"
	"github.com/rpattn/advfilter/internal/matching"
	"github.com/rpattn/advfilter/internal/records"
	"github.com/rpattn/advfilter/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the filter engine and the saved filter store over REST.
type Handler struct {
	repo     repository.FilterRepository
	matcher  *matching.Service
	loader   *records.Loader
	catalogs map[string]domain.FieldCatalog
}

// NewHandler creates the API handler. catalogs maps entity types to their
// field definitions.
func NewHandler(repo repository.FilterRepository, matcher *matching.Service, catalogs map[string]domain.FieldCatalog) *Handler {
	return &Handler{
		repo:     repo,
		matcher:  matcher,
		loader:   records.NewLoader(),
		catalogs: catalogs,
	}
}

// Register wires the handler's routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/fields", h.handleFields)
	mux.HandleFunc("/api/filters", h.handleFilters)
	mux.HandleFunc("/api/filters/validate", h.handleValidate)
	mux.HandleFunc("/api/filters/apply", h.handleApply)
	mux.HandleFunc("/api/filters/", h.handleFilterByID)
	mux.HandleFunc("/api/quick-filters", h.handleQuickFilters)
	mux.HandleFunc("/api/preview", h.handlePreview)
}

func (h *Handler) catalogFor(entityType string) domain.FieldCatalog {
	return h.catalogs[entityType]
}

// handleFields returns the field definitions for an entity type.
func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
	catalog, ok := h.catalogs[entityType]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown entity type %q", entityType), http.StatusNotFound)
		return
	}

	type fieldResponse struct {
		Name string `json:"name"`
		domain.FieldDefinition
		Operators []domain.Operator `json:"operators"`
	}

	names := catalog.FieldNames()
	sort.Strings(names)
	fields := make([]fieldResponse, 0, len(names))
	for _, name := range names {
		def := catalog[name]
		fields = append(fields, fieldResponse{
			Name:            name,
			FieldDefinition: def,
			Operators:       engine.OperatorsFor(def.Type),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"entityType": entityType, "fields": fields})
}

// handleFilters lists saved filters or creates a new one.
func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
		filters, err := h.repo.List(r.Context(), entityType)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, filters)

	case http.MethodPost:
		var definition domain.Filter
		if err := decodeJSONBody(r.Body, &definition); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := engine.Check(definition, h.catalogFor(definition.EntityType)); err != nil {
			writeDefinitionError(w, err)
			return
		}
		saved, err := h.repo.Create(r.Context(), domain.SavedFilter{Definition: definition})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFilterByID fetches, updates or deletes one saved filter.
func (h *Handler) handleFilterByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/api/filters/")
	id, err := uuid.Parse(rawID)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid filter id: %v", err), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		saved, err := h.repo.GetByID(r.Context(), id)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	case http.MethodPut:
		var definition domain.Filter
		if err := decodeJSONBody(r.Body, &definition); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := engine.Check(definition, h.catalogFor(definition.EntityType)); err != nil {
			writeDefinitionError(w, err)
			return
		}
		saved, err := h.repo.Update(r.Context(), domain.SavedFilter{ID: id, Definition: definition})
		if err != nil {
			writeRepoError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	case http.MethodDelete:
		if err := h.repo.Delete(r.Context(), id); err != nil {
			writeRepoError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleValidate runs definition validation and returns every issue found,
// warnings included.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var definition domain.Filter
	if err := decodeJSONBody(r.Body, &definition); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	issues := engine.Validate(definition, h.catalogFor(definition.EntityType))
	valid := true
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			valid = false
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid, "issues": issues})
}

type applyRequest struct {
	FilterID *uuid.UUID      `json:"filterId,omitempty"`
	Filter   *domain.Filter  `json:"filter,omitempty"`
	Records  []domain.Record `json:"records"`
}

// handleApply evaluates a filter, inline or saved, against the posted record
// collection.
func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req applyRequest
	if err := decodeJSONBody(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var definition domain.Filter
	switch {
	case req.Filter != nil:
		definition = *req.Filter
	case req.FilterID != nil:
		saved, err := h.repo.GetByID(r.Context(), *req.FilterID)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		definition = saved.Definition
	default:
		http.Error(w, "either filter or filterId is required", http.StatusBadRequest)
		return
	}

	result, err := h.matcher.Apply(r.Context(), definition, req.Records, h.catalogFor(definition.EntityType))
	if err != nil {
		writeApplyError(w, err)
		return
	}

	if req.FilterID != nil {
		if err := h.repo.IncrementUsage(r.Context(), *req.FilterID); err != nil {
			// Usage counting is bookkeeping; a failed bump must not fail
			// the match the user already paid for.
			log.Printf("[API] failed to increment usage for filter %s: %v", req.FilterID, err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleQuickFilters lists the most used saved filters for an entity type.
func (h *Handler) handleQuickFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
	if entityType == "" {
		http.Error(w, "entityType is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	filters, err := h.repo.ListQuickFilters(r.Context(), entityType, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, filters)
}

// handlePreview loads an uploaded CSV/XLSX collection and applies an inline
// filter to it in one round trip.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	var definition domain.Filter
	if err := json.Unmarshal([]byte(r.FormValue("filter")), &definition); err != nil {
		http.Error(w, fmt.Sprintf("invalid filter: %v", err), http.StatusBadRequest)
		return
	}

	catalog := h.catalogFor(definition.EntityType)
	collection, err := h.loader.Load(header.Filename, definition.EntityType, file, catalog)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.matcher.Apply(r.Context(), definition, collection, catalog)
	if err != nil {
		writeApplyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSONBody(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeApplyError(w http.ResponseWriter, err error) {
	var defErr *domain.DefinitionError
	switch {
	case errors.As(err, &defErr):
		writeDefinitionError(w, err)
	case errors.Is(err, matching.ErrCancelled):
		http.Error(w, err.Error(), http.StatusRequestTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeDefinitionError(w http.ResponseWriter, err error) {
	var defErr *domain.DefinitionError
	if errors.As(err, &defErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "invalid filter definition",
			"issues": defErr.Issues,
		})
		return
	}
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}

func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
