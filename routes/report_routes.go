package routes

import (
	"member_network/handlers"
	"member_network/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterReportRoutes 设置报表查询路由
// 全部为只读分页查询
func RegisterReportRoutes(api fiber.Router) {
	reports := api.Group("/reports", middleware.MemberAuthMiddleware())

	// 会员的团队业绩快照时间序列
	reports.Get("/members/:id/team-volume", handlers.GetTeamVolumeHistory)

	// 会员的月度资格考核记录
	reports.Get("/members/:id/qualifications", handlers.GetQualificationHistory)

	// 会员作为受益人的佣金记录
	reports.Get("/members/:id/commissions", handlers.GetMemberCommissions)

	// 会员的业务积分余额和积分流水
	reports.Get("/members/:id/points", handlers.GetMemberPoints)

	// 追回账目 - 管理员视角可查全量
	reports.Get("/clawbacks", middleware.AdminAuthMiddleware(), handlers.GetClawbackLedger)

	// 利润分享批次结果
	reports.Get("/profit-share/:period", handlers.GetProfitShareBatch)
}
