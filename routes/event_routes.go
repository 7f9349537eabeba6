package routes

import (
	"member_network/handlers"

	"github.com/gofiber/fiber/v2"
)

// RegisterEventRoutes 设置外部事件接收路由
// 计费系统和提款系统在各自的事务完成后向这里推送事件
// 事件投递语义是至少一次，所有处理函数按幂等实现
// 不走会员认证 - 外部协作方通过网关层的服务间认证接入
func RegisterEventRoutes(api fiber.Router) {
	events := api.Group("/events")

	// 购买/订阅完成事件，驱动多层级佣金计算
	events.Post("/purchase", handlers.HandlePurchaseEvent)

	// 提款审批通过事件，锁定期内的提前退出触发佣金追回
	events.Post("/withdrawal-approval", handlers.HandleWithdrawalApproval)
}
