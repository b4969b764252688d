package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"CekNomor/internal/middleware"
	"CekNomor/internal/model/dto"
	"CekNomor/internal/service"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/response"
)

// GetCreditBalance 当前余额
// GET /v1/credits
func GetCreditBalance(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	balance, err := service.Credit().Balance(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.CreditBalanceResponse{
		OwnerID: userID,
		Balance: balance,
	})
}

// GetCreditHistory 额度流水，按时间倒序
// GET /v1/credits/history
func GetCreditHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := service.Credit().History(ctx, userID, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, history)
}

// GrantCredits 给指定用户充值额度（运维接口）
// POST /v1/credits/grant
func GrantCredits(ctx context.Context, c *app.RequestContext) {
	var req struct {
		OwnerID string `json:"owner_id"`
		Amount  int    `json:"amount"`
	}
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if req.OwnerID == "" || req.Amount <= 0 {
		response.Error(ctx, c, fmt.Errorf("owner_id and positive amount required: %w", errors.InputError))
		return
	}

	if err := service.Credit().Grant(ctx, req.OwnerID, req.Amount); err != nil {
		response.Error(ctx, c, err)
		return
	}

	balance, err := service.Credit().Balance(ctx, req.OwnerID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.CreditBalanceResponse{
		OwnerID: req.OwnerID,
		Balance: balance,
	})
}
