package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"member_network/database"
	"member_network/services"
	"member_network/utils"
)

// RunTeamVolumeBatch 触发月度团队业绩聚合批处理
// URL参数为周期月份，格式2006-01；同一周期的重叠运行会被拒绝
func RunTeamVolumeBatch(c *fiber.Ctx) error {
	periodStart, err := time.Parse("2006-01", c.Params("period"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的周期，格式应为2006-01",
		})
	}

	run, err := services.RunTeamVolumeAggregation(database.GetDB(), periodStart)
	if err != nil {
		if errors.Is(err, services.ErrBatchAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "该周期的聚合任务正在运行中",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "团队业绩聚合失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":         "团队业绩聚合完成",
		"period":          run.Period,
		"processed_count": run.ProcessedCount,
		"skipped_count":   run.SkippedCount,
		"report":          run.Report,
	})
}

// RunTierQualificationBatch 触发月度资格考核批处理
func RunTierQualificationBatch(c *fiber.Ctx) error {
	month := c.Params("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的考核月份，格式应为2006-01",
		})
	}

	run, err := services.RunTierQualification(database.GetDB(), month)
	if err != nil {
		if errors.Is(err, services.ErrBatchAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "该月份的考核任务正在运行中",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "资格考核失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":         "资格考核完成",
		"month":           run.Period,
		"processed_count": run.ProcessedCount,
		"skipped_count":   run.SkippedCount,
		"report":          run.Report,
	})
}

// CalculateProfitShareBatch 计算季度利润分享
// 请求体携带总利润、分配比例和分配方法；批次未审批前可重复计算
func CalculateProfitShareBatch(c *fiber.Ctx) error {
	period := c.Params("period")
	if period == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "周期不能为空",
		})
	}

	var request struct {
		TotalProfit            string `json:"total_profit"`
		DistributionPercentage string `json:"distribution_percentage"`
		Method                 string `json:"method"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "参数解析失败: " + err.Error(),
		})
	}

	totalProfit, err := decimal.NewFromString(request.TotalProfit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的总利润金额",
		})
	}
	distributionPct, err := decimal.NewFromString(request.DistributionPercentage)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的分配比例",
		})
	}

	batch, err := services.CalculateProfitShare(database.GetDB(), period, totalProfit, distributionPct, request.Method)
	if err != nil {
		if errors.Is(err, services.ErrInvalidShareMethod) || errors.Is(err, services.ErrInvalidBatchStatus) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, services.ErrBatchAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "该周期的利润分享计算正在运行中",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "利润分享计算失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":           "利润分享计算完成",
		"period":            batch.Period,
		"member_share_pool": batch.MemberSharePool,
		"method":            batch.DistributionMethod,
		"status":            batch.Status,
	})
}

// ApproveProfitShareBatch 管理员审批利润分享批次
func ApproveProfitShareBatch(c *fiber.Ctx) error {
	period := c.Params("period")

	// 审批人从认证上下文取
	approverID, err := utils.GetMemberIDFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "无法确认审批人身份",
		})
	}

	batch, err := services.ApproveProfitShare(database.GetDB(), period, approverID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "利润分享批次不存在",
			})
		}
		if errors.Is(err, services.ErrInvalidBatchStatus) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "只有已计算的批次可以审批",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "审批失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "审批成功",
		"period":  batch.Period,
		"status":  batch.Status,
	})
}

// DistributeProfitShareBatch 分发已审批的利润分享批次
// 为每个份额向外部账务系统发出入账意图
func DistributeProfitShareBatch(c *fiber.Ctx) error {
	period := c.Params("period")

	batch, err := services.DistributeProfitShare(database.GetDB(), period)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "利润分享批次不存在",
			})
		}
		if errors.Is(err, services.ErrInvalidBatchStatus) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "只有已审批的批次可以分发",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "分发失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "分发成功",
		"period":  batch.Period,
		"status":  batch.Status,
	})
}

// RebuildAncestorPaths 全量重建物化祖先路径缓存
// 管理维护操作：缓存异常时从推荐关系边重建投影
func RebuildAncestorPaths(c *fiber.Ctx) error {
	updated, err := services.RebuildPaths(database.GetDB())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "重建祖先路径失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "祖先路径重建完成",
		"updated": updated,
	})
}
