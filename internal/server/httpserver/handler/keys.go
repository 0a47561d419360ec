package handler

import (
	"net/http"

	"github.com/yndnr/shardmap-go/internal/telemetry/logger"
)

// handleInsert handles PUT /v1/keys/{key}.
func (h *Handler) handleInsert(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, ok := h.decodeValue(w, r)
	if !ok {
		return
	}
	if err := h.m.Insert(key, value); err != nil {
		logger.L(r.Context()).Debug("insert rejected", "key", key, "error", err)
		h.handleMapError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, newKeyResponse(key, value, h.m.BucketIndex(key)))
}

// handleGet handles GET /v1/keys/{key}.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := h.m.Get(key)
	if err != nil {
		h.handleMapError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newKeyResponse(key, value, h.m.BucketIndex(key)))
}

// handleDelete handles DELETE /v1/keys/{key}.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.m.Delete(key); err != nil {
		h.handleMapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReplace handles POST /v1/keys/{key}/replace.
func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, ok := h.decodeValue(w, r)
	if !ok {
		return
	}
	old, err := h.m.Replace(key, value)
	if err != nil {
		h.handleMapError(w, r, err)
		return
	}
	resp := newKeyResponse(key, value, h.m.BucketIndex(key))
	prev, prevEnc := EncodeValue(old)
	resp.Previous = &prev
	resp.PreviousEncoding = prevEnc
	h.writeJSON(w, r, http.StatusOK, resp)
}
