package routes

import (
	"member_network/handlers"
	"member_network/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterMemberRoutes 设置会员相关路由
func RegisterMemberRoutes(api fiber.Router) {
	members := api.Group("/members")

	// 注册路由不需要认证 - 新会员通过推荐码注册
	// 注册同时完成推荐关系绑定和矩阵安置
	members.Post("/register", handlers.RegisterMember)

	// 需要认证的路由
	members.Get("/:id", middleware.MemberAuthMiddleware(), handlers.GetMember)
}
