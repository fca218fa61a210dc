package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mercator-hq/dyndict/pkg/registry"
	"mercator-hq/dyndict/pkg/source"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes an API error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResourcesResponse is returned by GET /v1/resources.
type ResourcesResponse struct {
	Lifecycle string                `json:"lifecycle"`
	Capacity  int                   `json:"capacity"`
	Resources []registry.EntryStats `json:"resources"`
}

// LookupResponse is returned by GET /v1/resources/{name}/{key}.
type LookupResponse struct {
	Resource   string `json:"resource"`
	Key        string `json:"key"`
	Value      string `json:"value"`
	Generation uint64 `json:"generation"`
}

// ReloadResponse is returned by POST /v1/resources/{name}/reload.
type ReloadResponse struct {
	Resource string `json:"resource"`
	Status   string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, ErrorResponse{Error: ErrorBody{Code: errCode, Message: message}})
}

// writeRegistryError maps registry sentinel errors to HTTP statuses.
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNoSuchEntry):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, registry.ErrTerminating):
		writeError(w, http.StatusServiceUnavailable, "terminating", err.Error())
	case errors.Is(err, registry.ErrQueueFull):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "queue_full", err.Error())
	case errors.Is(err, registry.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, registry.ErrLoadFailed):
		writeError(w, http.StatusBadGateway, "load_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// resourceHandlers serves the /v1/resources API.
type resourceHandlers struct {
	registry *registry.Registry
	timeout  time.Duration
}

func (h *resourceHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.registry.Stats(ctx)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	if stats == nil {
		stats = []registry.EntryStats{}
	}

	writeJSON(w, http.StatusOK, ResourcesResponse{
		Lifecycle: h.registry.Lifecycle().String(),
		Capacity:  h.registry.Cap(),
		Resources: stats,
	})
}

func (h *resourceHandlers) get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.registry.Stats(ctx)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	for _, s := range stats {
		if s.Name == name {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "no such resource: "+name)
}

func (h *resourceHandlers) lookup(w http.ResponseWriter, r *http.Request) {
	name, key := r.PathValue("name"), r.PathValue("key")

	var (
		value      string
		found      bool
		generation uint64
	)
	err := source.View(h.registry, name, func(dict *source.Dictionary, gen uint64) {
		value, found = dict.Lookup(key)
		generation = gen
	})
	switch {
	case errors.Is(err, source.ErrNotDictionary):
		writeError(w, http.StatusUnprocessableEntity, "not_a_dictionary", "resource does not hold a dictionary: "+name)
		return
	case err != nil:
		writeRegistryError(w, err)
		return
	case !found:
		writeError(w, http.StatusNotFound, "key_not_found", "no such key in "+name+": "+key)
		return
	}

	writeJSON(w, http.StatusOK, LookupResponse{
		Resource:   name,
		Key:        key,
		Value:      value,
		Generation: generation,
	})
}

func (h *resourceHandlers) reload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.registry.Reload(ctx, name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ReloadResponse{Resource: name, Status: "reloaded"})
	case errors.Is(err, registry.ErrReloadPending):
		writeJSON(w, http.StatusAccepted, ReloadResponse{Resource: name, Status: "pending"})
	default:
		writeRegistryError(w, err)
	}
}
