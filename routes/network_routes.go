package routes

import (
	"member_network/handlers"
	"member_network/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterNetworkRoutes 设置网络结构查询路由
// 推荐网络和矩阵是两棵独立的树，分别提供查询入口
func RegisterNetworkRoutes(api fiber.Router) {
	network := api.Group("/network", middleware.MemberAuthMiddleware())

	// 祖先链查询，从最近的推荐人开始
	network.Get("/:id/ancestors", handlers.GetAncestors)

	// 下线团队分页查询，广度优先顺序
	network.Get("/:id/subtree", handlers.GetSubtree)

	// 矩阵位置查询
	network.Get("/:id/matrix-position", handlers.GetMatrixPosition)
}
