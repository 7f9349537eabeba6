package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"member_network/database"
	"member_network/services"
)

// HandlePurchaseEvent 处理购买/订阅完成事件
// 外部计费系统在交易完成后推送该事件，驱动佣金计算
// 事件允许至少一次投递：重复推送同一交易引用号不会产生重复佣金
func HandlePurchaseEvent(c *fiber.Ctx) error {
	// 解析请求体
	var request struct {
		TransactionRef string `json:"transaction_ref"`
		MemberID       uint   `json:"member_id"`
		Amount         string `json:"amount"`
		ProductCode    string `json:"product_code"`
		OccurredAt     string `json:"occurred_at"` // RFC3339格式，可为空
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "参数解析失败: " + err.Error(),
		})
	}

	if request.TransactionRef == "" || request.MemberID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "交易引用号和会员ID不能为空",
		})
	}

	// 金额使用定点小数解析，拒绝二进制浮点
	amount, err := decimal.NewFromString(request.Amount)
	if err != nil || !amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的交易金额",
		})
	}

	occurredAt := time.Now()
	if request.OccurredAt != "" {
		parsed, err := time.Parse(time.RFC3339, request.OccurredAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "无效的交易时间，应为RFC3339格式",
			})
		}
		occurredAt = parsed
	}

	commissions, err := services.ComputeCommissions(database.GetDB(), services.PurchaseTransaction{
		TransactionRef: request.TransactionRef,
		MemberID:       request.MemberID,
		Amount:         amount,
		ProductCode:    request.ProductCode,
		OccurredAt:     occurredAt,
	})
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "会员不存在",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "佣金计算失败: " + err.Error(),
		})
	}

	results := make([]fiber.Map, 0, len(commissions))
	for _, commission := range commissions {
		results = append(results, fiber.Map{
			"level":          commission.Level,
			"beneficiary_id": commission.BeneficiaryID,
			"rate":           commission.Rate,
			"amount":         commission.Amount,
			"status":         commission.Status,
		})
	}

	return c.JSON(fiber.Map{
		"message":     "佣金计算完成",
		"commissions": results,
	})
}

// HandleWithdrawalApproval 处理提款审批事件
// 外部提款系统在审批通过后推送该事件；锁定期内的提前退出触发佣金追回
// 同一提款对同一佣金的重复触发是无操作
func HandleWithdrawalApproval(c *fiber.Ctx) error {
	// 解析请求体
	var request struct {
		WithdrawalRef  string `json:"withdrawal_ref"`
		TransactionRef string `json:"transaction_ref"`
		Reason         string `json:"reason"`
		RequestedAt    string `json:"requested_at"`    // RFC3339格式
		LockInEndsAt   string `json:"lock_in_ends_at"` // RFC3339格式
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "参数解析失败: " + err.Error(),
		})
	}

	if request.WithdrawalRef == "" || request.TransactionRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "提款引用号和交易引用号不能为空",
		})
	}

	requestedAt, err := time.Parse(time.RFC3339, request.RequestedAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的提款申请时间，应为RFC3339格式",
		})
	}
	lockInEndsAt, err := time.Parse(time.RFC3339, request.LockInEndsAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的锁定期结束时间，应为RFC3339格式",
		})
	}

	clawbacks, err := services.TriggerClawback(database.GetDB(), services.WithdrawalApproval{
		WithdrawalRef:  request.WithdrawalRef,
		TransactionRef: request.TransactionRef,
		Reason:         request.Reason,
		RequestedAt:    requestedAt,
		LockInEndsAt:   lockInEndsAt,
	})
	if err != nil {
		if errors.Is(err, services.ErrUnknownExitReason) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "未配置该退出原因的追回策略",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "佣金追回失败: " + err.Error(),
		})
	}

	results := make([]fiber.Map, 0, len(clawbacks))
	for _, clawback := range clawbacks {
		results = append(results, fiber.Map{
			"commission_id":   clawback.CommissionID,
			"member_id":       clawback.MemberID,
			"original_amount": clawback.OriginalAmount,
			"clawback_amount": clawback.ClawbackAmount,
			"percentage":      clawback.ClawbackPercentage,
		})
	}

	return c.JSON(fiber.Map{
		"message":   "提款事件处理完成",
		"clawbacks": results,
	})
}
