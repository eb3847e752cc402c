package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/flatmate/internal/auth"
	"github.com/dukerupert/flatmate/internal/complaint"
	"github.com/dukerupert/flatmate/internal/model"
)

type ComplaintHandler struct {
	svc    *complaint.Service
	logger *slog.Logger
}

func NewComplaintHandler(svc *complaint.Service, logger *slog.Logger) *ComplaintHandler {
	return &ComplaintHandler{svc: svc, logger: logger}
}

type complaintRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	ComplaintType model.Category `json:"complaint_type"`
	SeverityLevel model.Severity `json:"severity_level"`
}

type voteRequest struct {
	VoteType model.VoteType `json:"vote_type"`
}

type complaintActionResponse struct {
	Message   string           `json:"message"`
	Complaint *model.Complaint `json:"complaint"`
}

func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req complaintRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ac, _ := auth.FromContext(r.Context())
	c, err := h.svc.Create(r.Context(), complaint.NewComplaint{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.ComplaintType,
		Severity:      req.SeverityLevel,
		FiledBy:       ac.UserID,
		HouseholdCode: ac.HouseholdCode,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create complaint", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List returns the caller's household's open complaints.
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, "list complaints")(h.svc.ListOpen(r.Context(), auth.HouseholdCode(r.Context())))
}

func (h *ComplaintHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, "list all complaints")(h.svc.ListAll(r.Context()))
}

func (h *ComplaintHandler) ListResolved(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, "list resolved complaints")(h.svc.ListResolved(r.Context()))
}

func (h *ComplaintHandler) Trending(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, "list trending complaints")(h.svc.Trending(r.Context(), auth.HouseholdCode(r.Context())))
}

func (h *ComplaintHandler) writeList(w http.ResponseWriter, op string) func([]model.Complaint, error) {
	return func(complaints []model.Complaint, err error) {
		if err != nil {
			writeServiceError(w, h.logger, op, err)
			return
		}
		if complaints == nil {
			complaints = []model.Complaint{}
		}
		writeJSON(w, http.StatusOK, complaints)
	}
}

func (h *ComplaintHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.Vote(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), req.VoteType)
	if err != nil {
		writeServiceError(w, h.logger, "vote", err)
		return
	}
	writeJSON(w, http.StatusOK, complaintActionResponse{Message: "Vote recorded", Complaint: c})
}

func (h *ComplaintHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Resolve(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "resolve complaint", err)
		return
	}
	writeJSON(w, http.StatusOK, complaintActionResponse{Message: "Complaint resolved", Complaint: c})
}
