package service

import (
	"os"
	"testing"

	"CekNomor/pkg/logger"
)

// 测试环境需要设置 JWT_SECRET 与 ENCRYPTION_KEY（config 启动校验）
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}
