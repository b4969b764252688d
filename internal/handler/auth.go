package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"CekNomor/pkg/response"
	"CekNomor/pkg/token"
)

// 用户身份由外部系统签发，这里只提供令牌续期

// RefreshToken 用 refresh token 换新的令牌对
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	userID, err := token.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    expiresIn,
	})
}
