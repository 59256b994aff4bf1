package handler

// RequestRefund godoc
// @Summary Request a refund
// @Description Refund a paid order, fully or for selected items. Replaying an Idempotency-Key returns the refund it produced.
// @Tags Refunds
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Client generated request key"
// @Param request body object{order_id=int,item_ids=[]int,reason=string} true "Refund request"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/refunds [post]
func (h *RefundHandler) RequestRefundDoc() {}

// AdminRequestRefund godoc
// @Summary Request a refund on behalf of a buyer
// @Description Same admission rules as the buyer route except ownership. The refund is paid to the order's buyer (Admin only)
// @Tags Refunds
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Client generated request key"
// @Param request body object{order_id=int,item_ids=[]int,reason=string} true "Refund request"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/admin/refunds [post]
func (h *RefundHandler) AdminRequestRefundDoc() {}

// GetRefund godoc
// @Summary Get refund by ID
// @Description Get one refund. Users see their own refunds, admins see all.
// @Tags Refunds
// @Security BearerAuth
// @Produce json
// @Param id path int true "Refund ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/refunds/{id} [get]
func (h *RefundHandler) GetRefundDoc() {}

// GetMyRefunds godoc
// @Summary Get my refunds
// @Description List refunds of the authenticated user, newest first
// @Tags Refunds
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{refunds=array,total=int}}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/refunds/my [get]
func (h *RefundHandler) GetMyRefundsDoc() {}
