package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/factorylabs/be-process-reports/internal/apperrors"
	"github.com/factorylabs/be-process-reports/internal/logger"
	"github.com/factorylabs/be-process-reports/internal/service"
)

// HTTPHandler exposes the submission and approval operations over HTTP JSON.
type HTTPHandler struct {
	submissions *service.SubmissionService
	approvals   *service.ApprovalService
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(submissions *service.SubmissionService, approvals *service.ApprovalService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		submissions: submissions,
		approvals:   approvals,
		log:         log,
	}
}

// CreateSubmission handles POST /api/v1/submissions.
func (h *HTTPHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category    string         `json:"category"`
		FormType    string         `json:"formType"`
		LotNo       string         `json:"lotNo"`
		TemplateIDs []int          `json:"templateIds"`
		FormData    map[string]any `json:"formData"`
		SubmittedBy string         `json:"submittedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.submissions.Create(r.Context(), &service.CreateSubmissionRequest{
		Category:    req.Category,
		FormType:    req.FormType,
		LotNo:       req.LotNo,
		TemplateIDs: req.TemplateIDs,
		FormData:    req.FormData,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"submissionId": sub.ID,
		"status":       sub.Status,
	})
}

// ListSubmissions handles GET /api/v1/submissions.
func (h *HTTPHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	req := &service.ListSubmissionsRequest{
		Category:    q.Get("category"),
		Page:        page,
		PageSize:    pageSize,
		Search:      optional(q.Get("search")),
		Status:      optional(q.Get("status")),
		FormType:    optional(q.Get("form_type")),
		SubmittedBy: optional(q.Get("user")),
		FromDate:    optional(q.Get("from_date")),
		ToDate:      optional(q.Get("to_date")),
	}

	subs, total, err := h.submissions.List(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"data":  subs,
		"total": total,
	})
}

// GetSubmission handles GET /api/v1/submissions/get.
func (h *HTTPHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Submission ID is required", http.StatusBadRequest)
		return
	}

	detail, err := h.submissions.Get(r.Context(), category, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"submission":          detail.Submission,
		"versionSetTemplates": detail.VersionSet.TemplateIDs,
		"versionSetVersion":   detail.VersionSet.Version,
	})
}

// GetFlow handles GET /api/v1/submissions/flow.
func (h *HTTPHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Submission ID is required", http.StatusBadRequest)
		return
	}

	steps, err := h.approvals.GetFlow(r.Context(), category, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	type stepResponse struct {
		Sequence      int     `json:"sequence"`
		RequiredLevel int     `json:"requiredLevel"`
		Status        string  `json:"status"`
		ApproverName  *string `json:"approverName,omitempty"`
		Comment       *string `json:"comment,omitempty"`
	}
	resp := make([]stepResponse, 0, len(steps))
	for _, s := range steps {
		resp = append(resp, stepResponse{
			Sequence:      s.Sequence,
			RequiredLevel: s.RequiredLevel,
			Status:        s.Status,
			ApproverName:  s.ApproverName,
			Comment:       s.Comment,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ApproveSubmission handles POST /api/v1/submissions/approve.
func (h *HTTPHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category       string  `json:"category"`
		SubmissionID   string  `json:"submissionId"`
		Action         string  `json:"action"`
		Comment        *string `json:"comment"`
		ApproverUserID string  `json:"approverUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.approvals.Act(r.Context(), &service.ApprovalActionRequest{
		Category:       req.Category,
		SubmissionID:   req.SubmissionID,
		Action:         req.Action,
		Comment:        req.Comment,
		ApproverUserID: req.ApproverUserID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UpdateSubmission handles PUT /api/v1/submissions/update.
func (h *HTTPHandler) UpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category     string         `json:"category"`
		SubmissionID string         `json:"submissionId"`
		LotNo        string         `json:"lotNo"`
		FormData     map[string]any `json:"formData"`
		Actor        string         `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.submissions.Update(r.Context(), &service.UpdateSubmissionRequest{
		Category:     req.Category,
		SubmissionID: req.SubmissionID,
		LotNo:        req.LotNo,
		FormData:     req.FormData,
		Actor:        req.Actor,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResubmitSubmission handles POST /api/v1/submissions/resubmit.
func (h *HTTPHandler) ResubmitSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category     string         `json:"category"`
		SubmissionID string         `json:"submissionId"`
		FormData     map[string]any `json:"formData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.approvals.Resubmit(r.Context(), &service.ResubmitRequest{
		Category:     req.Category,
		SubmissionID: req.SubmissionID,
		FormData:     req.FormData,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteSubmission handles DELETE /api/v1/submissions.
func (h *HTTPHandler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	id := r.URL.Query().Get("id")
	actor := r.URL.Query().Get("actor")
	if id == "" {
		http.Error(w, "Submission ID is required", http.StatusBadRequest)
		return
	}

	if err := h.submissions.Delete(r.Context(), category, id, actor); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetActivity handles GET /api/v1/submissions/activity.
func (h *HTTPHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Submission ID is required", http.StatusBadRequest)
		return
	}

	entries, err := h.submissions.GetActivity(r.Context(), category, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entries)
}

// ── response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"code":  apperrors.Code(err),
		"error": err.Error(),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
