package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"member_network/database"
	"member_network/models"
	"member_network/services"
)

// GetTeamVolumeHistory 分页查询会员的团队业绩快照时间序列
func GetTeamVolumeHistory(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	page, pageSize := parsePagination(c)

	var total int64
	if err := database.GetDB().Model(&models.TeamVolumeSnapshot{}).
		Where("member_id = ?", memberID).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计团队业绩快照失败: " + err.Error(),
		})
	}

	var snapshots []models.TeamVolumeSnapshot
	if err := database.GetDB().Where("member_id = ?", memberID).
		Order("period_start DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&snapshots).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询团队业绩快照失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"snapshots": snapshots,
	})
}

// GetQualificationHistory 分页查询会员的月度资格考核记录
func GetQualificationHistory(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	page, pageSize := parsePagination(c)

	query := database.GetDB().Model(&models.TierQualification{}).Where("member_id = ?", memberID)
	if tier := c.Query("tier"); tier != "" {
		query = query.Where("tier = ?", tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计资格考核记录失败: " + err.Error(),
		})
	}

	var qualifications []models.TierQualification
	if err := query.Order("qualification_month DESC, tier ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&qualifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询资格考核记录失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":          total,
		"page":           page,
		"page_size":      pageSize,
		"qualifications": qualifications,
	})
}

// GetMemberCommissions 分页查询会员作为受益人的佣金记录
// 可按状态和交易引用号过滤
func GetMemberCommissions(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	page, pageSize := parsePagination(c)

	query := database.GetDB().Model(&models.Commission{}).Where("beneficiary_id = ?", memberID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if txRef := c.Query("transaction_ref"); txRef != "" {
		query = query.Where("transaction_ref = ?", txRef)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计佣金记录失败: " + err.Error(),
		})
	}

	var commissions []models.Commission
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&commissions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询佣金记录失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"commissions": commissions,
	})
}

// GetClawbackLedger 分页查询追回记录
// 不带会员ID时返回全量账目（管理员视角），带时按受益人过滤
func GetClawbackLedger(c *fiber.Ctx) error {
	page, pageSize := parsePagination(c)

	query := database.GetDB().Model(&models.Clawback{})
	if raw := c.Query("member_id"); raw != "" {
		memberID, err := strconv.Atoi(raw)
		if err != nil || memberID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "无效的会员ID",
			})
		}
		query = query.Where("member_id = ?", memberID)
	}
	if ref := c.Query("withdrawal_ref"); ref != "" {
		query = query.Where("withdrawal_ref = ?", ref)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计追回记录失败: " + err.Error(),
		})
	}

	var clawbacks []models.Clawback
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&clawbacks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询追回记录失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"clawbacks": clawbacks,
	})
}

// GetProfitShareBatch 查询利润分享批次及其会员份额
func GetProfitShareBatch(c *fiber.Ctx) error {
	period := c.Params("period")

	var batch models.QuarterlyProfitShare
	if err := database.GetDB().Where("period = ?", period).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "利润分享批次不存在",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询利润分享批次失败: " + err.Error(),
		})
	}

	page, pageSize := parsePagination(c)

	var total int64
	if err := database.GetDB().Model(&models.MemberProfitShare{}).
		Where("profit_share_id = ?", batch.ID).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计会员份额失败: " + err.Error(),
		})
	}

	var shares []models.MemberProfitShare
	if err := database.GetDB().Where("profit_share_id = ?", batch.ID).
		Order("share_amount DESC, member_id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&shares).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询会员份额失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"batch":     batch,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"shares":    shares,
	})
}

// GetMemberPoints 查询会员的业务积分余额和积分流水
func GetMemberPoints(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	balance, err := services.BusinessPointBalance(database.GetDB(), uint(memberID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询积分余额失败: " + err.Error(),
		})
	}

	page, pageSize := parsePagination(c)

	var total int64
	if err := database.GetDB().Model(&models.PointTransaction{}).
		Where("member_id = ?", memberID).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计积分流水失败: " + err.Error(),
		})
	}

	var transactions []models.PointTransaction
	if err := database.GetDB().Where("member_id = ?", memberID).
		Order("occurred_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询积分流水失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"member_id":              memberID,
		"business_point_balance": balance,
		"total":                  total,
		"page":                   page,
		"page_size":              pageSize,
		"transactions":           transactions,
	})
}

// ListLedgerIntents 分页查询账务意图
// 外部账务系统轮询待应用的意图，默认只返回pending状态
func ListLedgerIntents(c *fiber.Ctx) error {
	page, pageSize := parsePagination(c)

	status := c.Query("status", models.IntentStatusPending)
	query := database.GetDB().Model(&models.LedgerIntent{}).Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "统计账务意图失败: " + err.Error(),
		})
	}

	var intents []models.LedgerIntent
	if err := query.Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&intents).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询账务意图失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"intents":   intents,
	})
}

// AcknowledgeLedgerIntent 外部账务系统确认意图已应用
// 重复确认同一引用号是无操作
func AcknowledgeLedgerIntent(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "引用号不能为空",
		})
	}

	if err := services.AcknowledgeIntent(database.GetDB(), reference); err != nil {
		if errors.Is(err, services.ErrIntentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "账务意图不存在",
			})
		}
		if errors.Is(err, services.ErrIntentCancelled) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "账务意图已作废，不能应用",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "确认账务意图失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":   "确认成功",
		"reference": reference,
	})
}
