package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// 利润分享状态机错误
var (
	ErrBatchNotFound       = errors.New("利润分享批次不存在")
	ErrInvalidBatchStatus  = errors.New("批次状态不允许该操作")
	ErrInvalidShareMethod  = errors.New("未知的分配方法")
)

// CalculateProfitShare 计算季度利润分享
// 会员分享池 = 项目总利润 × 分配比例；按配置的方法在活跃会员间分配：
//   - bp_based:    权重 = 职业头衔系数 × 业务积分余额
//   - level_based: 权重 = 职业头衔系数
//   - equal:       平均分配
//
// 周期级单写者锁由BatchRun承担，与其他批处理一致：同一季度的重叠计算
// 被拒绝，失败的运行保留检查点可续跑。权重按会员ID升序逐个计算并落库，
// 检查点逐会员推进；全部权重就绪后在单个事务里定份额并推进批次状态
//
// 分位精确对账：各份额先向下取整到分，剩余的零头分配给权重最大的份额，
// 保证所有会员份额之和与分享池严格相等
// 批次未经审批前允许重新计算（覆盖旧的份额明细）
func CalculateProfitShare(db *gorm.DB, period string, totalProfit, distributionPct decimal.Decimal, method string) (*models.QuarterlyProfitShare, error) {
	switch method {
	case models.DistributionMethodBPBased, models.DistributionMethodLevelBased, models.DistributionMethodEqual:
	default:
		return nil, ErrInvalidShareMethod
	}
	if totalProfit.IsNegative() || distributionPct.IsNegative() {
		return nil, errors.New("总利润和分配比例不能为负数")
	}

	// 已审批或已分发的批次不允许重新计算
	var batch models.QuarterlyProfitShare
	err := db.Where("period = ?", period).First(&batch).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询利润分享批次失败: %w", err)
	}
	if err == nil && batch.Status != models.ProfitShareStatusDraft && batch.Status != models.ProfitShareStatusCalculated {
		return nil, ErrInvalidBatchStatus
	}

	run, err := ClaimBatchRun(db, models.BatchJobProfitShare, period)
	if err != nil {
		return nil, err
	}

	// 批次行先落draft，份额定稿前批次不可审批
	batch.Period = period
	batch.TotalProfit = totalProfit
	batch.DistributionPercentage = distributionPct
	batch.MemberSharePool = totalProfit.Mul(distributionPct).Round(2)
	batch.DistributionMethod = method
	batch.Status = models.ProfitShareStatusDraft
	if err := db.Save(&batch).Error; err != nil {
		FailBatchRun(db, run, err)
		return nil, fmt.Errorf("保存利润分享批次失败: %w", err)
	}

	// 全新运行清除旧的份额明细；从检查点续跑时保留已算好的权重
	if run.CheckpointMember == 0 {
		if err := db.Where("profit_share_id = ?", batch.ID).
			Delete(&models.MemberProfitShare{}).Error; err != nil {
			FailBatchRun(db, run, err)
			return nil, fmt.Errorf("清除旧份额明细失败: %w", err)
		}
	}

	// 职业头衔系数映射一次取出
	multipliers, err := loadShareMultipliers(db)
	if err != nil {
		FailBatchRun(db, run, err)
		return nil, err
	}

	// 权重阶段：活跃会员按ID升序逐个计算，检查点之前的已在上次运行处理完成
	var members []models.Member
	if err := db.Where("status = ? AND id > ?", "active", run.CheckpointMember).
		Order("id ASC").Find(&members).Error; err != nil {
		FailBatchRun(db, run, err)
		return nil, fmt.Errorf("加载活跃会员失败: %w", err)
	}

	var skipped []SkippedMember
	for _, member := range members {
		weight, err := memberShareWeight(db, multipliers, member.ID, method)
		if err != nil {
			// 单条失败只跳过并记入报告，继续处理后面的会员
			skipped = append(skipped, SkippedMember{MemberID: member.ID, Reason: err.Error()})
			run.SkippedCount = len(skipped)
			continue
		}

		// 权重为零的会员不参与分配
		if weight.IsPositive() {
			share := models.MemberProfitShare{
				ProfitShareID: batch.ID,
				MemberID:      member.ID,
				Weight:        weight,
			}
			err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "profit_share_id"}, {Name: "member_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"weight", "share_amount"}),
			}).Create(&share).Error
			if err != nil {
				skipped = append(skipped, SkippedMember{MemberID: member.ID, Reason: err.Error()})
				run.SkippedCount = len(skipped)
				continue
			}
		}

		run.ProcessedCount++
		UpdateBatchCheckpoint(db, run, member.ID)
	}

	// 分配阶段：按持久化的权重定份额并推进批次状态，单个事务内完成
	err = db.Transaction(func(tx *gorm.DB) error {
		var shares []models.MemberProfitShare
		if err := tx.Where("profit_share_id = ?", batch.ID).
			Order("member_id ASC").Find(&shares).Error; err != nil {
			return fmt.Errorf("加载份额明细失败: %w", err)
		}
		if err := allocateShares(tx, &batch, shares); err != nil {
			return err
		}
		batch.Status = models.ProfitShareStatusCalculated
		if err := tx.Save(&batch).Error; err != nil {
			return fmt.Errorf("保存利润分享批次失败: %w", err)
		}
		return nil
	})
	if err != nil {
		FailBatchRun(db, run, err)
		return nil, err
	}

	if err := CompleteBatchRun(db, run, skipped); err != nil {
		return &batch, err
	}
	return &batch, nil
}

// memberShareWeight 按分配方法计算单个会员的权重
func memberShareWeight(db *gorm.DB, multipliers map[int]decimal.Decimal, memberID uint, method string) (decimal.Decimal, error) {
	switch method {
	case models.DistributionMethodEqual:
		return decimal.NewFromInt(1), nil
	case models.DistributionMethodLevelBased:
		return multiplierFor(db, multipliers, memberID), nil
	default:
		balance, err := BusinessPointBalance(db, memberID)
		if err != nil {
			return decimal.Zero, err
		}
		return multiplierFor(db, multipliers, memberID).Mul(balance), nil
	}
}

// allocateShares 按权重分配分享池并写回份额金额
// 零头分配给权重最大的份额（并列时取会员ID较小者），总和与池精确一致
func allocateShares(db *gorm.DB, batch *models.QuarterlyProfitShare, shares []models.MemberProfitShare) error {
	if len(shares) == 0 || !batch.MemberSharePool.IsPositive() {
		return nil
	}

	totalWeight := decimal.Zero
	for _, share := range shares {
		totalWeight = totalWeight.Add(share.Weight)
	}

	// 先逐份向下取整到分
	allocated := decimal.Zero
	largestIdx := 0
	for i := range shares {
		amount := batch.MemberSharePool.Mul(shares[i].Weight).Div(totalWeight).RoundDown(2)
		shares[i].ShareAmount = amount
		allocated = allocated.Add(amount)

		if shares[i].Weight.GreaterThan(shares[largestIdx].Weight) {
			largestIdx = i
		}
	}

	// 取整零头补给权重最大的份额，保证总和精确等于分享池
	residual := batch.MemberSharePool.Sub(allocated)
	if residual.IsPositive() {
		shares[largestIdx].ShareAmount = shares[largestIdx].ShareAmount.Add(residual)
	}

	for i := range shares {
		if err := db.Model(&models.MemberProfitShare{}).Where("id = ?", shares[i].ID).
			Update("share_amount", shares[i].ShareAmount).Error; err != nil {
			return fmt.Errorf("写入份额金额失败(会员ID=%d): %w", shares[i].MemberID, err)
		}
	}
	return nil
}

// ApproveProfitShare 管理员审批利润分享批次
// 只允许calculated -> approved的单向迁移
func ApproveProfitShare(db *gorm.DB, period string, approverID uint) (*models.QuarterlyProfitShare, error) {
	var batch models.QuarterlyProfitShare
	if err := db.Where("period = ?", period).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("查询利润分享批次失败: %w", err)
	}

	if batch.Status != models.ProfitShareStatusCalculated {
		return nil, ErrInvalidBatchStatus
	}

	now := time.Now()
	batch.Status = models.ProfitShareStatusApproved
	batch.ApproverID = &approverID
	batch.ApprovedAt = &now
	if err := db.Save(&batch).Error; err != nil {
		return nil, fmt.Errorf("审批利润分享批次失败: %w", err)
	}
	return &batch, nil
}

// DistributeProfitShare 分发已审批的利润分享批次
// 为每个份额向外部账务系统发出入账意图，然后标记批次为已分发
// 意图引用号唯一，重复分发调用不会产生重复意图
func DistributeProfitShare(db *gorm.DB, period string) (*models.QuarterlyProfitShare, error) {
	// 开始事务
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("开始事务失败: %w", tx.Error)
	}

	// 使用defer确保事务在函数返回时被正确处理
	var txCommitted bool
	defer func() {
		// 如果事务还没有被提交，则回滚
		if !txCommitted && tx != nil {
			tx.Rollback()
			log.Println("利润分享分发事务已回滚")
		}
	}()

	var batch models.QuarterlyProfitShare
	if err := tx.Where("period = ?", period).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("查询利润分享批次失败: %w", err)
	}

	if batch.Status != models.ProfitShareStatusApproved {
		return nil, ErrInvalidBatchStatus
	}

	var shares []models.MemberProfitShare
	if err := tx.Where("profit_share_id = ?", batch.ID).Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("查询份额明细失败: %w", err)
	}

	for _, share := range shares {
		intentRef := fmt.Sprintf("profitshare:%s:%d", period, share.MemberID)
		if err := EmitIntent(tx, share.MemberID, share.ShareAmount,
			models.IntentTypeProfitShareCredit, intentRef); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	batch.Status = models.ProfitShareStatusDistributed
	batch.DistributedAt = &now
	if err := tx.Save(&batch).Error; err != nil {
		return nil, fmt.Errorf("标记批次已分发失败: %w", err)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	// 标记事务已提交
	txCommitted = true

	return &batch, nil
}

// loadShareMultipliers 加载矩阵层级到分享权重系数的映射
func loadShareMultipliers(db *gorm.DB) (map[int]decimal.Decimal, error) {
	var configs []models.ProfessionalLevelConfig
	if err := db.Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("加载职业头衔配置失败: %w", err)
	}
	multipliers := make(map[int]decimal.Decimal, len(configs))
	for _, config := range configs {
		multipliers[config.Level] = config.ShareMultiplier
	}
	return multipliers, nil
}

// multiplierFor 返回会员矩阵位置对应的权重系数，未进入矩阵时为1
func multiplierFor(db *gorm.DB, multipliers map[int]decimal.Decimal, memberID uint) decimal.Decimal {
	var position models.MatrixPosition
	if err := db.Where("member_id = ?", memberID).First(&position).Error; err != nil {
		return decimal.NewFromInt(1)
	}
	if multiplier, ok := multipliers[position.Level]; ok && multiplier.IsPositive() {
		return multiplier
	}
	return decimal.NewFromInt(1)
}
