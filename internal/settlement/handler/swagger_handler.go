package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreateLedgerEntries godoc
// @Summary Record ledger entries for a paid order
// @Description Creates one ledger row and hold per course or section item. Replays are no-ops (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{order_id=int} true "Paid order"
// @Success 200 {object} object{success=bool,message=string,data=object{ledgers=array,created=int,skipped=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ledgers [post]
func (h *SettlementHandler) CreateLedgerEntriesDoc() {}

// ListLedgers godoc
// @Summary List ledger entries
// @Description List ledger rows filtered by instructor, eligibility and settlement (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Param instructor_id query int false "Instructor ID"
// @Param eligible query bool false "Eligible filter"
// @Param settled query bool false "Settled filter"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{ledgers=array,total=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ledgers [get]
func (h *SettlementHandler) ListLedgersDoc() {}

// GetLedger godoc
// @Summary Get ledger entry
// @Description Ledger row with its hold and payouts, bank info masked (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Param id path int true "Ledger ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ledgers/{id} [get]
func (h *SettlementHandler) GetLedgerDoc() {}

// ExecutePayment godoc
// @Summary Pay out a settled ledger entry
// @Description Records and completes a payout of the net amount. At most one completed payout per ledger row (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Ledger ID"
// @Param request body object{method=string,bank_info=object{bank_name=string,account_holder=string,account_number=string},notes=string,confirmation_number=string} true "Payout (method BANK_TRANSFER or MANUAL)"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ledgers/{id}/payments [post]
func (h *SettlementHandler) ExecutePaymentDoc() {}

// ListPayments godoc
// @Summary List payouts of a ledger entry
// @Description Payout history with masked bank info (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Param id path int true "Ledger ID"
// @Success 200 {object} object{success=bool,data=object{payments=array,total=int}}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ledgers/{id}/payments [get]
func (h *SettlementHandler) ListPaymentsDoc() {}

// MarkIneligible godoc
// @Summary Retire ledger entries
// @Description Tombstones the ledger rows of an order or of selected items. Fails if any row is settled (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{order_id=int,item_ids=[]int,reason=string} true "Rows to retire"
// @Success 200 {object} object{success=bool,message=string,data=object{retired=int}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/admin/settlements/ineligible [post]
func (h *SettlementHandler) MarkIneligibleDoc() {}

// Sweep godoc
// @Summary Run the eligibility sweep
// @Description Promotes rows whose hold window has elapsed (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=object{cutoff=string,scanned=int,promoted=int}}
// @Router /api/admin/settlements/sweep [post]
func (h *SettlementHandler) SweepDoc() {}

// Settle godoc
// @Summary Settle eligible entries
// @Description Marks every eligible row settled, optionally for one instructor (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{instructor_id=int} false "Instructor filter"
// @Success 200 {object} object{success=bool,message=string,data=object{count=int,total_net=int,settled_at=string}}
// @Router /api/admin/settlements/settle [post]
func (h *SettlementHandler) SettleDoc() {}

// GetSummary godoc
// @Summary Settlement summary
// @Description Held, eligible, settled, paid and cancelled totals per instructor (Admin only)
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Param instructor_id query int false "Instructor ID"
// @Success 200 {object} object{success=bool,data=object{summaries=array,total=int}}
// @Router /api/admin/settlements/summary [get]
func (h *SettlementHandler) GetSummaryDoc() {}

// GetMySummary godoc
// @Summary My settlement summary
// @Description Settlement totals of the authenticated instructor
// @Tags Settlements
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=object{summaries=array,total=int}}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/settlements/my/summary [get]
func (h *SettlementHandler) GetMySummaryDoc() {}
