package routes

import (
	"member_network/handlers"
	"member_network/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterBatchRoutes 设置批处理触发路由
// 月度聚合、资格考核和季度利润分享都由管理员手动或调度系统触发
// 全部管理员权限；同一周期的重叠触发会被拒绝
func RegisterBatchRoutes(api fiber.Router) {
	batch := api.Group("/batch", middleware.AdminAuthMiddleware())

	// 月度团队业绩聚合
	// POST /api/batch/team-volume/:period 周期格式2006-01
	batch.Post("/team-volume/:period", handlers.RunTeamVolumeBatch)

	// 月度资格考核
	// POST /api/batch/tier-qualification/:month 月份格式2006-01
	batch.Post("/tier-qualification/:month", handlers.RunTierQualificationBatch)

	// 季度利润分享：计算 -> 审批 -> 分发
	batch.Post("/profit-share/:period/calculate", handlers.CalculateProfitShareBatch)
	batch.Post("/profit-share/:period/approve", handlers.ApproveProfitShareBatch)
	batch.Post("/profit-share/:period/distribute", handlers.DistributeProfitShareBatch)

	// 物化祖先路径全量重建，维护操作
	batch.Post("/rebuild-ancestor-paths", handlers.RebuildAncestorPaths)
}
