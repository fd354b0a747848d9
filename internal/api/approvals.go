package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/chat"
	"github.com/starford/muninn/internal/models"
)

// resolveMessage reads the optional assistant message of a resolve request.
// An empty body yields nil.
func resolveMessage(r *http.Request) (*models.Message, error) {
	var req ResolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return req.Message, nil
}

// ListApprovals handles GET /api/approvals.
//
//	@Summary		Pending changes waiting for approval
//	@Tags			approvals
//	@Produce		json
//	@Success		200	{object}	ApprovalListResponse
//	@Security		BearerAuth
//	@Router			/approvals [get]
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ApprovalListResponse{Approvals: h.Gate.Pending()})
}

// GetApproval handles GET /api/approvals/{id}.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	req, ok := h.Gate.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Approve handles POST /api/approvals/{id}/approve. With a message in the
// body the response is a ResolveResponse carrying the updated message, also
// when executing the change failed.
//
//	@Summary		Apply a pending change
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Approval id (the tool call id)"
//	@Param			body	body		ResolveRequest	false	"Assistant message holding the call"
//	@Success		200		{object}	models.ChangeRecord
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/approvals/{id}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	msg, err := resolveMessage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := h.Gate.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	rec, err := h.Gate.Approve(r.Context(), id)
	if msg == nil {
		if err != nil {
			writeError(w, h.Logger, "approve", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	chat.ApplyApproval(msg, id, rec, err)
	if err != nil {
		status, text := errorStatus(err)
		if status == http.StatusInternalServerError {
			writeError(w, h.Logger, "approve", err)
			return
		}
		writeJSON(w, status, ResolveResponse{Message: *msg, Error: text})
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Record: &rec, Message: *msg})
}

// Reject handles POST /api/approvals/{id}/reject.
//
//	@Summary		Discard a pending change
//	@Tags			approvals
//	@Accept			json
//	@Param			id		path	string			true	"Approval id (the tool call id)"
//	@Param			body	body	ResolveRequest	false	"Assistant message holding the call"
//	@Success		204		"Change discarded"
//	@Success		200		{object}	ResolveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/approvals/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	msg, err := resolveMessage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	id := chi.URLParam(r, "id")
	if !h.Gate.Reject(id) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	chat.MarkRejected(msg, id)
	writeJSON(w, http.StatusOK, ResolveResponse{Message: *msg})
}

// Changes handles GET /api/changes.
//
//	@Summary		Recently applied changes, newest first
//	@Tags			approvals
//	@Produce		json
//	@Success		200	{object}	ChangeListResponse
//	@Security		BearerAuth
//	@Router			/changes [get]
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	entries := []approval.Entry{}
	if h.History != nil {
		entries = h.History.Recent()
	}
	writeJSON(w, http.StatusOK, ChangeListResponse{Changes: entries})
}
