package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"CekNomor/internal/model/dto"
	"CekNomor/internal/service"
	"CekNomor/pkg/response"
)

// 账号池为运维接口，全部挂在鉴权路由组下

// ListAccounts 账号列表，代理凭据脱敏
// GET /v1/accounts
func ListAccounts(ctx context.Context, c *app.RequestContext) {
	accounts, err := service.Account().List(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	resp := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, dto.NewAccountResponse(&accounts[i]))
	}
	response.Success(ctx, c, resp)
}

// CreateAccount 创建平台账号
// POST /v1/accounts
func CreateAccount(ctx context.Context, c *app.RequestContext) {
	var req dto.CreateAccountRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	acct, err := service.Account().Create(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewAccountResponse(acct))
}

// UpdateAccount 更新账号标签、日配额或代理
// PATCH /v1/accounts/:account_id
func UpdateAccount(ctx context.Context, c *app.RequestContext) {
	accountID, err := pathInt64(c, "account_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	acct, err := service.Account().Update(ctx, accountID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewAccountResponse(acct))
}

// DeleteAccount 删除账号
// DELETE /v1/accounts/:account_id
func DeleteAccount(ctx context.Context, c *app.RequestContext) {
	accountID, err := pathInt64(c, "account_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := service.Account().Delete(ctx, accountID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// LoginAccount 发起账号登录，重复调用刷新 QR 码
// POST /v1/accounts/:account_id/login
func LoginAccount(ctx context.Context, c *app.RequestContext) {
	accountID, err := pathInt64(c, "account_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := service.Account().Login(ctx, accountID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ConfirmAccountLogin 网关回调/运维确认登录完成
// POST /v1/accounts/:account_id/login/confirm
func ConfirmAccountLogin(ctx context.Context, c *app.RequestContext) {
	accountID, err := pathInt64(c, "account_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req struct {
		SessionRef string `json:"session_ref"`
	}
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Account().ConfirmLogin(ctx, accountID, req.SessionRef); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"success": true})
}

// LogoutAccount 显式登出
// POST /v1/accounts/:account_id/logout
func LogoutAccount(ctx context.Context, c *app.RequestContext) {
	accountID, err := pathInt64(c, "account_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := service.Account().Logout(ctx, accountID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"success": true})
}
