package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/service"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// maxAttachmentBody caps attachment uploads (photos, ID scans).
const maxAttachmentBody = 10 << 20 // 10 MiB

type Dependencies struct {
	Logger              *log.Logger
	Addr                string
	RequestService      *service.RequestService
	VerificationService *service.VerificationService
	OccupancyService    *service.OccupancyService
}

type Server struct {
	httpServer   *http.Server
	logger       *log.Logger
	mux          *http.ServeMux
	requests     *service.RequestService
	verification *service.VerificationService
	occupancy    *service.OccupancyService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:       d.Logger,
		mux:          mux,
		requests:     d.RequestService,
		verification: d.VerificationService,
		occupancy:    d.OccupancyService,
	}

	// Review Station surface
	mux.HandleFunc("POST /v1/requests", s.handleSubmit)
	mux.HandleFunc("GET /v1/requests", s.handleListRequests)
	mux.HandleFunc("GET /v1/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("DELETE /v1/requests/{id}", s.handlePurgeRequest)
	mux.HandleFunc("POST /v1/requests/{id}/attachments/{label}", s.handleAttach)
	mux.HandleFunc("POST /v1/requests/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("POST /v1/requests/{id}/decision", s.handleDecide)
	mux.HandleFunc("POST /v1/authorizations/{category}/{id}/revoke", s.handleRevoke)

	// Gate Station surface
	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("POST /v1/movements", s.handleMovement)
	mux.HandleFunc("GET /v1/occupancy", s.handleOccupancy)
	mux.HandleFunc("GET /v1/occupancy/onsite", s.handleOnSite)
	mux.HandleFunc("GET /v1/gates", s.handleGates)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Request Ledger ───────────────────────────────────────────────────────────

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.requests.Submit(r.Context(), req)
	if err != nil {
		s.serviceError(w, err, "submit")
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse(rec))
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	status := types.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = types.StatusPendingReview
	}

	recs, err := s.requests.ListByStatus(r.Context(), status)
	if err != nil {
		s.serviceError(w, err, "list requests")
		return
	}

	out := make([]types.RequestResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, requestResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.requests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "get request")
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(rec))
}

func (s *Server) handlePurgeRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.requests.Purge(r.Context(), r.PathValue("id")); err != nil {
		s.serviceError(w, err, "purge request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAttachmentBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "attachment_too_large", "attachment body exceeds the 10 MiB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_body", "could not read attachment body")
		return
	}
	if len(blob) == 0 {
		writeError(w, http.StatusBadRequest, "bad_body", "empty attachment body")
		return
	}

	rec, err := s.requests.AttachFile(r.Context(), r.PathValue("id"), r.PathValue("label"), blob)
	if err != nil {
		s.serviceError(w, err, "attach file")
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(rec))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	rec, err := s.requests.FinalizeSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, err, "finalize")
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(rec))
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req types.DecisionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.requests.Decide(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.serviceError(w, err, "decide")
		return
	}
	writeJSON(w, http.StatusOK, requestResponse(rec))
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req types.RevokeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	category := types.Category(r.PathValue("category"))
	err := s.verification.Revoke(r.Context(), category, r.PathValue("id"), req.RevokedBy, req.Reason)
	if err != nil {
		s.serviceError(w, err, "revoke")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ── Gate Station ─────────────────────────────────────────────────────────────

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	res, err := s.verification.Verify(r.Context(), req.Category, req.Identifier)
	if err != nil {
		s.serviceError(w, err, "verify")
		return
	}

	resp := types.VerifyResponse{
		OK:         true,
		Matched:    res.Matched,
		Reason:     res.Reason,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}
	switch {
	case res.Personnel != nil:
		resp.Record = personnelView(*res.Personnel)
	case res.Vehicle != nil:
		resp.Record = vehicleView(*res.Vehicle)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request) {
	var req types.MovementRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.occupancy.RecordMovement(r.Context(), service.MovementInput{
		GateID:     req.GateID,
		Category:   req.Category,
		Identifier: req.Identifier,
		Kind:       req.Kind,
	})
	if err != nil {
		s.serviceError(w, err, "record movement")
		return
	}
	writeJSON(w, http.StatusCreated, movementResponse(rec))
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	count, err := s.occupancy.CurrentOccupancy(r.Context())
	if err != nil {
		s.serviceError(w, err, "occupancy")
		return
	}
	writeJSON(w, http.StatusOK, types.OccupancyResponse{
		OK:         true,
		Count:      count,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleOnSite(w http.ResponseWriter, r *http.Request) {
	recs, err := s.occupancy.ListOnSite(r.Context())
	if err != nil {
		s.serviceError(w, err, "list on site")
		return
	}
	writeJSON(w, http.StatusOK, types.OnSiteResponse{
		OK:         true,
		Entries:    onSiteEntries(recs),
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleGates(w http.ResponseWriter, r *http.Request) {
	recs, err := s.occupancy.ListGates(r.Context())
	if err != nil {
		s.serviceError(w, err, "list gates")
		return
	}
	writeJSON(w, http.StatusOK, gateViews(recs))
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

// serviceError maps the service taxonomy onto HTTP. Store unavailability is
// 503 so gate stations fail closed; verification misses never reach here
// (they are 200 responses with matched=false).
func (s *Server) serviceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "invalid_identifier", err.Error())
	case errors.Is(err, service.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, service.ErrAuthorizationNotFound):
		writeError(w, http.StatusNotFound, "authorization_not_found", err.Error())
	case errors.Is(err, service.ErrUnknownGate):
		writeError(w, http.StatusNotFound, "unknown_gate", err.Error())
	case errors.Is(err, service.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "already_decided", err.Error())
	case errors.Is(err, service.ErrAttachmentsIncomplete):
		writeError(w, http.StatusConflict, "attachments_incomplete", err.Error())
	case errors.Is(err, service.ErrNotUploading):
		writeError(w, http.StatusConflict, "not_uploading", err.Error())
	case errors.Is(err, service.ErrAlreadyOnSite):
		writeError(w, http.StatusConflict, "already_on_site", err.Error())
	case errors.Is(err, service.ErrNotOnSite):
		writeError(w, http.StatusConflict, "not_on_site", err.Error())
	case errors.Is(err, service.ErrAlreadyRevoked):
		writeError(w, http.StatusConflict, "already_revoked", err.Error())
	case errors.Is(err, service.ErrPriorNotRejected):
		writeError(w, http.StatusConflict, "prior_not_rejected", err.Error())
	case errors.Is(err, service.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, service.ErrAttachmentFailed):
		writeError(w, http.StatusBadGateway, "attachment_failed", err.Error())
	case errors.Is(err, service.ErrArchivalFailed):
		writeError(w, http.StatusBadGateway, "archival_failed", err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
