package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"CekNomor/internal/handler"
	"CekNomor/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	{
		auth.POST("/token/refresh", handler.RefreshToken)
	}

	// 快速校验：小批量同步执行
	validations := v1.Group("/validations")
	validations.Use(middleware.AuthMiddleware())
	{
		validations.POST("/quick", middleware.QuickCheckRateLimitMiddleware(), handler.QuickCheck)
	}

	// 批量校验任务
	jobs := v1.Group("/jobs")
	jobs.Use(middleware.AuthMiddleware())
	{
		jobs.POST("", middleware.JobSubmitRateLimitMiddleware(), handler.CreateJob)
		jobs.POST("/upload", middleware.JobSubmitRateLimitMiddleware(), handler.UploadJob)
		jobs.GET("", handler.ListJobs)
		jobs.GET("/:job_id", handler.GetJob)
		jobs.GET("/:job_id/items", handler.GetJobItems)
		jobs.GET("/:job_id/download", handler.DownloadJob)
		jobs.GET("/:job_id/events", handler.StreamJobEvents)
		jobs.DELETE("/:job_id", handler.DeleteJob)
	}

	// 平台账号池（运维）
	accounts := v1.Group("/accounts")
	accounts.Use(middleware.AuthMiddleware())
	{
		accounts.GET("", handler.ListAccounts)
		accounts.POST("", handler.CreateAccount)
		accounts.PATCH("/:account_id", handler.UpdateAccount)
		accounts.DELETE("/:account_id", handler.DeleteAccount)
		accounts.POST("/:account_id/login", middleware.AccountLoginRateLimitMiddleware(), handler.LoginAccount)
		accounts.POST("/:account_id/login/confirm", handler.ConfirmAccountLogin)
		accounts.POST("/:account_id/logout", handler.LogoutAccount)
	}

	// 额度
	credits := v1.Group("/credits")
	credits.Use(middleware.AuthMiddleware())
	{
		credits.GET("", handler.GetCreditBalance)
		credits.GET("/history", handler.GetCreditHistory)
		credits.POST("/grant", handler.GrantCredits)
	}
}
