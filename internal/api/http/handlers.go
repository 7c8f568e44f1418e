package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/service"

	"github.com/gorilla/mux"
)

// Services are the use cases the REST API exposes.
type Services struct {
	Equipment   service.EquipmentService
	Lifecycle   service.LifecycleService
	Contracts   service.ContractService
	Ledger      service.LedgerService
	Maintenance service.MaintenanceService
	Alerts      *service.AlertDispatcher
}

type Handler struct {
	svc    Services
	health func(ctx context.Context) error
}

// NewHandler builds the REST handlers. health may be nil when there is no
// backing database to ping.
func NewHandler(svc Services, health func(ctx context.Context) error) *Handler {
	return &Handler{svc: svc, health: health}
}

type registerEquipmentRequest struct {
	AssetNumber  string `json:"asset_number"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Class        string `json:"class"`
	Category     string `json:"category"`
	Location     string `json:"location"`
}

type transitionRequest struct {
	Action      string                   `json:"action"`
	RequestID   string                   `json:"request_id"`
	Destination string                   `json:"destination"`
	Reason      string                   `json:"reason"`
	Notes       string                   `json:"notes"`
	Maintenance *domain.MaintenanceInput `json:"maintenance"`
}

// termsRequest accepts dates as YYYY-MM-DD or RFC 3339.
type termsRequest struct {
	RequestID        string  `json:"request_id"`
	Folio            string  `json:"folio"`
	Client           string  `json:"client"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	AmountCents      int64   `json:"amount_cents"`
	Days             int32   `json:"days"`
	AccumulatedHours float64 `json:"accumulated_hours"`
}

type terminateRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	Cancel    bool   `json:"cancel"`
}

type hoursRequest struct {
	Hours float64 `json:"hours"`
}

type collectionRequest struct {
	ScheduledFor string `json:"scheduled_for"`
	Notes        string `json:"notes"`
}

type bindResponse struct {
	Contract *domain.Contract         `json:"contract"`
	Result   *service.TransitionResult `json:"transition"`
}

type historyResponse struct {
	Movements  []domain.Movement `json:"movements"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type stateResponse struct {
	EquipmentID int64                 `json:"equipment_id"`
	State       domain.EquipmentState `json:"state"`
	At          *time.Time            `json:"at,omitempty"`
}

type listNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int32                 `json:"total"`
}

type listEquipmentResponse struct {
	Equipment []domain.Equipment `json:"equipment"`
	Total     int32              `json:"total"`
	Page      int32              `json:"page"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) RegisterEquipment(w http.ResponseWriter, r *http.Request) {
	var req registerEquipmentRequest
	if !decode(w, r, &req) {
		return
	}
	e := &domain.Equipment{
		AssetNumber:  strings.TrimSpace(req.AssetNumber),
		Brand:        req.Brand,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Class:        req.Class,
		Category:     req.Category,
		Location:     strings.TrimSpace(req.Location),
	}
	if err := h.svc.Equipment.RegisterEquipment(r.Context(), e); err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/equipment/%d", e.ID))
	respondJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EquipmentFilter{
		State:    domain.EquipmentState(q.Get("state")),
		Location: q.Get("location"),
		Category: q.Get("category"),
	}
	page := queryInt32(q.Get("page"), 1)
	pageSize := queryInt32(q.Get("page_size"), 50)

	list, total, err := h.svc.Equipment.ListEquipment(r.Context(), filter, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Equipment{}
	}
	respondJSON(w, http.StatusOK, listEquipmentResponse{Equipment: list, Total: total, Page: page})
}

func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Equipment.GetEquipment(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !decode(w, r, &req) {
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.svc.Lifecycle.Transition(r.Context(), service.TransitionCommand{
		EquipmentID: id,
		Action:      action,
		RequestID:   requestID(r, req.RequestID),
		Actor:       ActorFromContext(r.Context()),
		Destination: req.Destination,
		Reason:      req.Reason,
		Notes:       req.Notes,
		Maintenance: req.Maintenance,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, replayStatus(res), res)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	after, err := domain.ParseLedgerCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit := queryInt32(r.URL.Query().Get("limit"), 0)

	page, next, err := h.svc.Ledger.ListHistory(r.Context(), id, after, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := historyResponse{Movements: page}
	if resp.Movements == nil {
		resp.Movements = []domain.Movement{}
	}
	if next != nil {
		resp.NextCursor = next.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) StateAt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		respondError(w, r, &domain.ValidationError{Field: "at", Message: "at must be an RFC 3339 timestamp"})
		return
	}
	state, err := h.svc.Ledger.StateAt(r.Context(), id, at)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stateResponse{EquipmentID: id, State: state, At: &at})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	state, err := h.svc.Ledger.Verify(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stateResponse{EquipmentID: id, State: state})
}

func (h *Handler) MaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := h.svc.Maintenance.GetMaintenanceStatus(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) MaintenanceRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	records, err := h.svc.Maintenance.ListRecords(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.MaintenanceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) BindContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req termsRequest
	if !decode(w, r, &req) {
		return
	}
	terms, err := req.terms()
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, res, err := h.svc.Contracts.BindContract(r.Context(), id, terms, ActorFromContext(r.Context()), requestID(r, req.RequestID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, replayStatus(res), bindResponse{Contract: c, Result: res})
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Contracts.GetContract(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handler) RenewContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req termsRequest
	if !decode(w, r, &req) {
		return
	}
	terms, err := req.terms()
	if err != nil {
		respondError(w, r, err)
		return
	}
	renewal, err := h.svc.Contracts.RenewContract(r.Context(), id, terms, ActorFromContext(r.Context()), requestID(r, req.RequestID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, renewal)
}

func (h *Handler) ListRenewals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	renewals, err := h.svc.Contracts.ListRenewals(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if renewals == nil {
		renewals = []domain.Renewal{}
	}
	respondJSON(w, http.StatusOK, renewals)
}

func (h *Handler) TerminateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req terminateRequest
	if !decode(w, r, &req) {
		return
	}
	c, res, err := h.svc.Contracts.TerminateContract(r.Context(), id, req.Reason, req.Cancel, ActorFromContext(r.Context()), requestID(r, req.RequestID))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, replayStatus(res), bindResponse{Contract: c, Result: res})
}

func (h *Handler) RecordHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req hoursRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.Contracts.RecordHours(r.Context(), id, req.Hours)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handler) ScheduleCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req collectionRequest
	if !decode(w, r, &req) {
		return
	}
	when, err := parseDate("scheduled_for", req.ScheduledFor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	task, err := h.svc.Contracts.ScheduleCollection(r.Context(), id, when, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.Contracts.ListCollections(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.CollectionTask{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

// Helpers

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt32(s string, def int32) int32 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

// requestID prefers the body field over the Idempotency-Key header.
func requestID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get("Idempotency-Key")
}

func replayStatus(res *service.TransitionResult) int {
	if res != nil && res.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (t termsRequest) terms() (domain.ContractTerms, error) {
	start, err := parseDate("start_date", t.StartDate)
	if err != nil {
		return domain.ContractTerms{}, err
	}
	var end time.Time
	if t.EndDate != "" {
		if end, err = parseDate("end_date", t.EndDate); err != nil {
			return domain.ContractTerms{}, err
		}
	}
	return domain.ContractTerms{
		Folio:            t.Folio,
		Client:           t.Client,
		StartDate:        start,
		EndDate:          end,
		AmountCents:      t.AmountCents,
		Days:             t.Days,
		AccumulatedHours: t.AccumulatedHours,
	}, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &domain.ValidationError{Field: field, Message: "date is required"}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Message: "date must be YYYY-MM-DD or RFC 3339"}
	}
	return t.UTC(), nil
}

func (h *Handler) ActiveContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Contracts.GetActiveContract(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// ListNotifications pages through the alerts the background jobs raised.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt32(q.Get("limit"), 50)
	offset := queryInt32(q.Get("offset"), 0)

	list, total, err := h.svc.Alerts.Recent(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	respondJSON(w, http.StatusOK, listNotificationsResponse{Notifications: list, Total: total})
}
