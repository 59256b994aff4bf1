package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/usecase/command"
	"github.com/tair/course-settlement/internal/refund/usecase/query"
	"github.com/tair/course-settlement/pkg/logger"
	"github.com/tair/course-settlement/pkg/middleware"
)

// IdempotencyHeader carries the client-generated request key
const IdempotencyHeader = "Idempotency-Key"

// RefundHandler handles HTTP requests for refunds using CQRS pattern
type RefundHandler struct {
	// Command handlers
	requestHandler *command.RequestRefundHandler

	// Query handlers
	getHandler  *query.GetRefundHandler
	listHandler *query.ListMyRefundsHandler

	limiter *middleware.RateLimiter
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(
	requestHandler *command.RequestRefundHandler,
	getHandler *query.GetRefundHandler,
	listHandler *query.ListMyRefundsHandler,
) *RefundHandler {
	return &RefundHandler{
		requestHandler: requestHandler,
		getHandler:     getHandler,
		listHandler:    listHandler,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type requestRefundBody struct {
	OrderID        uint   `json:"order_id"`
	ItemIDs        []uint `json:"item_ids"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// RequestRefund handles POST /api/refunds
func (h *RefundHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	h.requestRefund(w, r, false)
}

// AdminRequestRefund handles POST /api/admin/refunds. The refund is paid to
// the order's buyer.
func (h *RefundHandler) AdminRequestRefund(w http.ResponseWriter, r *http.Request) {
	h.requestRefund(w, r, true)
}

func (h *RefundHandler) requestRefund(w http.ResponseWriter, r *http.Request, admin bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "User ID not found in context"})
		return
	}

	var req requestRefundBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if req.OrderID == 0 {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Order ID is required"})
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	refund, err := h.requestHandler.Handle(r.Context(), command.RequestRefundCommand{
		UserID:         userID,
		Admin:          admin,
		OrderID:        req.OrderID,
		ItemIDs:        req.ItemIDs,
		IdempotencyKey: key,
		Reason:         req.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Refund processed successfully",
		Data:    refund,
	})
}

// GetRefund handles GET /api/refunds/{id}
func (h *RefundHandler) GetRefund(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid refund ID"})
		return
	}
	userID, _ := middleware.UserID(r.Context())

	refund, err := h.getHandler.Handle(r.Context(), query.GetRefundQuery{
		RefundID: uint(id),
		UserID:   userID,
		Admin:    middleware.IsAdmin(r.Context()),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: refund})
}

// GetMyRefunds handles GET /api/refunds/my
func (h *RefundHandler) GetMyRefunds(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "User ID not found in context"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	refunds, err := h.listHandler.Handle(r.Context(), query.ListMyRefundsQuery{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"refunds": refunds,
			"total":   len(refunds),
		},
	})
}

// SetRateLimiter throttles refund requests per user
func (h *RefundHandler) SetRateLimiter(limiter *middleware.RateLimiter) {
	h.limiter = limiter
}

// RegisterRoutes registers all refund routes
func (h *RefundHandler) RegisterRoutes(router *mux.Router) {
	request := h.RequestRefund
	if h.limiter != nil {
		request = h.limiter.Limit(request)
	}
	router.HandleFunc("/api/refunds", middleware.AuthMiddleware(request)).Methods("POST")
	router.HandleFunc("/api/admin/refunds", middleware.AdminMiddleware(h.AdminRequestRefund)).Methods("POST")
	router.HandleFunc("/api/refunds/my", middleware.AuthMiddleware(h.GetMyRefunds)).Methods("GET")
	router.HandleFunc("/api/refunds/{id:[0-9]+}", middleware.AuthMiddleware(h.GetRefund)).Methods("GET")
}

// statusFor maps refund errors to HTTP status codes
func statusFor(err error) int {
	var moneyErr *domain.MoneyMovementError
	var validation *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrRefundNotFound), errors.Is(err, orderdomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrActiveRefundExists),
		errors.Is(err, domain.ErrRefundInProgress),
		errors.Is(err, domain.ErrIdempotencyKeyConflict),
		errors.Is(err, domain.ErrIdempotencyKeyFailed),
		errors.Is(err, domain.ErrRefundNotPending):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &moneyErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Refund request failed")
		message = "Internal server error"
	}
	respondJSON(w, status, Response{Success: false, Error: message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
