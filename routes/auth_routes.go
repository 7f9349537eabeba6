package routes

import (
	"member_network/handlers"
	"member_network/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes 设置认证相关路由
// 认证系统采用JWT机制，令牌同时存储在数据库中支持撤销
func SetupAuthRoutes(app *fiber.App) {
	// 所有认证相关的路由以/api/auth为前缀
	auth := app.Group("/api/auth")

	// 登录路由 - 处理会员的登录请求
	// POST /api/auth/login
	// 请求体需包含用户名和密码，成功返回JWT令牌和过期时间
	// 不需要认证中间件，因为用户尚未登录
	auth.Post("/login", handlers.MemberLogin)

	// 登出路由 - 使当前会话的令牌立即失效
	// POST /api/auth/logout
	auth.Post("/logout", middleware.MemberAuthMiddleware(), handlers.MemberLogout)
}
