package routes

import (
	"member_network/handlers"

	"github.com/gofiber/fiber/v2"
)

// RegisterLedgerRoutes 设置账务意图路由
// 外部账务系统轮询待应用的意图并逐条确认
// 不走会员认证 - 账务协作方通过网关层的服务间认证接入
func RegisterLedgerRoutes(api fiber.Router) {
	ledger := api.Group("/ledger-intents")

	// 分页查询意图，默认只返回pending状态
	ledger.Get("/", handlers.ListLedgerIntents)

	// 确认意图已应用，重复确认是无操作
	ledger.Post("/:reference/ack", handlers.AcknowledgeLedgerIntent)
}
