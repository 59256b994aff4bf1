package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/internal/settlement/usecase/command"
	"github.com/tair/course-settlement/internal/settlement/usecase/query"
	"github.com/tair/course-settlement/pkg/logger"
	"github.com/tair/course-settlement/pkg/middleware"
)

// SettlementHandler handles HTTP requests for settlement using CQRS pattern
type SettlementHandler struct {
	// Command handlers
	createHandler  *command.CreateLedgerEntriesHandler
	retireHandler  *command.MarkIneligibleHandler
	sweepHandler   *command.SweepEligibilityHandler
	settleHandler  *command.SettleHandler
	paymentHandler *command.ExecutePaymentHandler

	// Query handlers
	listHandler         *query.ListLedgersHandler
	getHandler          *query.GetLedgerHandler
	summaryHandler      *query.GetSummaryHandler
	listPaymentsHandler *query.ListPaymentsHandler

	sweepBatchSize int
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(
	createHandler *command.CreateLedgerEntriesHandler,
	retireHandler *command.MarkIneligibleHandler,
	sweepHandler *command.SweepEligibilityHandler,
	settleHandler *command.SettleHandler,
	paymentHandler *command.ExecutePaymentHandler,
	listHandler *query.ListLedgersHandler,
	getHandler *query.GetLedgerHandler,
	summaryHandler *query.GetSummaryHandler,
	listPaymentsHandler *query.ListPaymentsHandler,
	sweepBatchSize int,
) *SettlementHandler {
	return &SettlementHandler{
		createHandler:       createHandler,
		retireHandler:       retireHandler,
		sweepHandler:        sweepHandler,
		settleHandler:       settleHandler,
		paymentHandler:      paymentHandler,
		listHandler:         listHandler,
		getHandler:          getHandler,
		summaryHandler:      summaryHandler,
		listPaymentsHandler: listPaymentsHandler,
		sweepBatchSize:      sweepBatchSize,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateLedgerEntries handles POST /api/admin/settlements/ledgers
func (h *SettlementHandler) CreateLedgerEntries(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID uint `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Order ID is required"})
		return
	}

	result, err := h.createHandler.Handle(r.Context(), command.CreateLedgerEntriesCommand{OrderID: req.OrderID})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Ledger entries recorded",
		Data: map[string]interface{}{
			"ledgers": result.Ledgers,
			"created": result.Created,
			"skipped": result.Skipped,
		},
	})
}

// MarkIneligible handles POST /api/admin/settlements/ineligible
func (h *SettlementHandler) MarkIneligible(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID uint   `json:"order_id"`
		ItemIDs []uint `json:"item_ids"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Order ID is required"})
		return
	}
	if req.Reason == "" {
		req.Reason = domain.IneligibleReasonRefunded
	}

	retired, err := h.retireHandler.Handle(r.Context(), command.MarkIneligibleCommand{
		OrderID: req.OrderID,
		ItemIDs: req.ItemIDs,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Ledger entries retired",
		Data:    map[string]interface{}{"retired": retired},
	})
}

// Sweep handles POST /api/admin/settlements/sweep
func (h *SettlementHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweepHandler.Handle(r.Context(), command.SweepEligibilityCommand{BatchSize: h.sweepBatchSize})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// Settle handles POST /api/admin/settlements/settle
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstructorID *uint `json:"instructor_id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
			return
		}
	}

	result, err := h.settleHandler.Handle(r.Context(), command.SettleCommand{InstructorID: req.InstructorID})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Eligible ledger entries settled", Data: result})
}

// ExecutePayment handles POST /api/admin/settlements/ledgers/{id}/payments
func (h *SettlementHandler) ExecutePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Method             string              `json:"method"`
		BankInfo           *domain.BankAccount `json:"bank_info"`
		Notes              string              `json:"notes"`
		ConfirmationNumber string              `json:"confirmation_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	payment, err := h.paymentHandler.Handle(r.Context(), command.ExecutePaymentCommand{
		LedgerID:           id,
		Method:             req.Method,
		BankInfo:           req.BankInfo,
		Notes:              req.Notes,
		ConfirmationNumber: req.ConfirmationNumber,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, Response{Success: true, Message: "Payout completed", Data: payment})
}

// ListLedgers handles GET /api/admin/settlements/ledgers
func (h *SettlementHandler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	instructorID, err := optionalUint(q.Get("instructor_id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid instructor ID"})
		return
	}
	eligible, err := optionalBool(q.Get("eligible"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid eligible filter"})
		return
	}
	settled, err := optionalBool(q.Get("settled"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid settled filter"})
		return
	}

	ledgers, err := h.listHandler.Handle(r.Context(), query.ListLedgersQuery{
		InstructorID: instructorID,
		Eligible:     eligible,
		Settled:      settled,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"ledgers": ledgers,
			"total":   len(ledgers),
		},
	})
}

// GetLedger handles GET /api/admin/settlements/ledgers/{id}
func (h *SettlementHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.getHandler.Handle(r.Context(), query.GetLedgerQuery{ID: id})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: detail})
}

// ListPayments handles GET /api/admin/settlements/ledgers/{id}/payments
func (h *SettlementHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	payments, err := h.listPaymentsHandler.Handle(r.Context(), query.ListPaymentsQuery{LedgerID: id})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"payments": payments,
		"total":    len(payments),
	}})
}

// GetSummary handles GET /api/admin/settlements/summary
func (h *SettlementHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	instructorID, err := optionalUint(r.URL.Query().Get("instructor_id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid instructor ID"})
		return
	}
	h.respondSummary(w, r, instructorID)
}

// GetMySummary handles GET /api/settlements/my/summary for instructors
func (h *SettlementHandler) GetMySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "User ID not found in context"})
		return
	}
	h.respondSummary(w, r, &userID)
}

func (h *SettlementHandler) respondSummary(w http.ResponseWriter, r *http.Request, instructorID *uint) {
	summaries, err := h.summaryHandler.Handle(r.Context(), query.GetSummaryQuery{InstructorID: instructorID})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"summaries": summaries,
		"total":     len(summaries),
	}})
}

// RegisterRoutes registers all settlement routes
func (h *SettlementHandler) RegisterRoutes(router *mux.Router) {
	// Instructor routes
	router.HandleFunc("/api/settlements/my/summary", middleware.AuthMiddleware(h.GetMySummary)).Methods("GET")

	// Admin routes
	admin := middleware.AdminMiddleware
	router.HandleFunc("/api/admin/settlements/ledgers", admin(h.CreateLedgerEntries)).Methods("POST")
	router.HandleFunc("/api/admin/settlements/ledgers", admin(h.ListLedgers)).Methods("GET")
	router.HandleFunc("/api/admin/settlements/ledgers/{id:[0-9]+}", admin(h.GetLedger)).Methods("GET")
	router.HandleFunc("/api/admin/settlements/ledgers/{id:[0-9]+}/payments", admin(h.ExecutePayment)).Methods("POST")
	router.HandleFunc("/api/admin/settlements/ledgers/{id:[0-9]+}/payments", admin(h.ListPayments)).Methods("GET")
	router.HandleFunc("/api/admin/settlements/ineligible", admin(h.MarkIneligible)).Methods("POST")
	router.HandleFunc("/api/admin/settlements/sweep", admin(h.Sweep)).Methods("POST")
	router.HandleFunc("/api/admin/settlements/settle", admin(h.Settle)).Methods("POST")
	router.HandleFunc("/api/admin/settlements/summary", admin(h.GetSummary)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint
func (h *SettlementHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Settlement service is healthy",
		})
	}).Methods("GET")
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid ledger ID"})
		return 0, false
	}
	return uint(id), true
}

func optionalUint(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	id := uint(v)
	return &id, nil
}

func optionalBool(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// statusFor maps settlement errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrLedgerNotFound), errors.Is(err, orderdomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPayoutMethod), errors.Is(err, domain.ErrInstructorNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLedgerAlreadySettled),
		errors.Is(err, domain.ErrLedgerNotSettled),
		errors.Is(err, domain.ErrLedgerNotEligible),
		errors.Is(err, domain.ErrPaymentAlreadyCompleted),
		errors.Is(err, domain.ErrPaymentNotPending),
		errors.Is(err, domain.ErrOrderNotPaid):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Settlement request failed")
		message = "Internal server error"
	}
	respondJSON(w, status, Response{Success: false, Error: message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
