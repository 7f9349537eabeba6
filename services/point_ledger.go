package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// RecordPoints 写入一条积分流水
// 流水只追加不修改；(kind, reference)唯一索引保证同一事件重放不会重复记账
func RecordPoints(db *gorm.DB, memberID uint, points, businessPoints decimal.Decimal, kind, reference string, occurredAt time.Time) error {
	record := models.PointTransaction{
		MemberID:       memberID,
		Points:         points,
		BusinessPoints: businessPoints,
		Kind:           kind,
		Reference:      reference,
		OccurredAt:     occurredAt,
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return fmt.Errorf("写入积分流水失败: %w", err)
	}
	return nil
}

// sumResult 聚合查询结果的接收结构
type sumResult struct {
	Total decimal.Decimal
}

// BusinessPointBalance 返回会员的业务积分(BP)余额
// 利润分享的bp_based加权从这里取数
func BusinessPointBalance(db *gorm.DB, memberID uint) (decimal.Decimal, error) {
	var result sumResult
	err := db.Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(business_points), 0) AS total").
		Where("member_id = ?", memberID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("查询业务积分余额失败: %w", err)
	}
	return result.Total, nil
}

// PersonalVolumeInPeriod 返回会员在指定周期内的个人合格消费业绩
// 数据来源是purchase类型的业务积分流水
func PersonalVolumeInPeriod(db *gorm.DB, memberID uint, start, end time.Time) (decimal.Decimal, error) {
	var result sumResult
	err := db.Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(business_points), 0) AS total").
		Where("member_id = ? AND kind = ? AND occurred_at >= ? AND occurred_at < ?",
			memberID, models.PointKindPurchase, start, end).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("查询个人业绩失败: %w", err)
	}
	return result.Total, nil
}

// personalVolumeRow 按会员分组的个人业绩查询结果
type personalVolumeRow struct {
	MemberID uint
	Total    decimal.Decimal
}

// PersonalVolumesByMember 一次性返回周期内所有会员的个人业绩
// 供月度聚合批处理使用，避免逐会员查询
func PersonalVolumesByMember(db *gorm.DB, start, end time.Time) (map[uint]decimal.Decimal, error) {
	var rows []personalVolumeRow
	err := db.Model(&models.PointTransaction{}).
		Select("member_id, COALESCE(SUM(business_points), 0) AS total").
		Where("kind = ? AND occurred_at >= ? AND occurred_at < ?",
			models.PointKindPurchase, start, end).
		Group("member_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询周期个人业绩失败: %w", err)
	}

	volumes := make(map[uint]decimal.Decimal, len(rows))
	for _, row := range rows {
		volumes[row.MemberID] = row.Total
	}
	return volumes, nil
}
