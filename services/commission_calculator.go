package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"member_network/models"
)

// PurchaseTransaction 触发佣金计算的合格交易事件
// 来自外部的购买/订阅完成事件，本系统只消费不产生
type PurchaseTransaction struct {
	TransactionRef string          `json:"transaction_ref"` // 交易引用号，佣金幂等键的组成部分
	MemberID       uint            `json:"member_id"`       // 付款会员ID
	Amount         decimal.Decimal `json:"amount"`          // 交易金额
	ProductCode    string          `json:"product_code"`    // 产品编码
	OccurredAt     time.Time       `json:"occurred_at"`     // 交易发生时间，决定适用哪个版本的比例表
}

// ComputeCommissions 对一笔合格交易沿祖先链计算并写入各层级佣金
// 处理流程：
//  1. 解析付款人的祖先链（最多maxLevels层）
//  2. 逐层按（受益人等级、层级、交易时间）从版本化比例表取比例
//  3. 受益人未持有合格套装时按折减系数缩减比例
//  4. 金额用定点小数计算并两位小数四舍五入，永不使用二进制浮点
//  5. 全交易佣金总额超过封顶比例时裁剪到封顶值并记录审计日志
//
// (transaction_ref, level)唯一索引保证重试幂等：已存在的层级直接跳过
// 所有写入在一个事务中完成，任何失败都不留下部分状态
func ComputeCommissions(db *gorm.DB, purchase PurchaseTransaction) ([]models.Commission, error) {
	if purchase.TransactionRef == "" {
		return nil, errors.New("交易引用号不能为空")
	}
	if !purchase.Amount.IsPositive() {
		return nil, errors.New("交易金额必须为正数")
	}
	if purchase.OccurredAt.IsZero() {
		purchase.OccurredAt = time.Now()
	}

	maxLevels := MaxCommissionLevels()
	nonKit := NonKitMultiplier()
	// 封顶金额 = 交易额 × 封顶百分比 / 100
	capAmount := purchase.Amount.Mul(CommissionCapPercent()).Div(decimal.NewFromInt(100))

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
			log.Println("佣金计算事务已回滚")
		}
	}()

	// 解析付款人的祖先链，从最近的推荐人开始
	chain, err := AncestorChain(tx, purchase.MemberID, maxLevels)
	if err != nil {
		return nil, fmt.Errorf("解析祖先链失败: %w", err)
	}

	// 记录付款人自身的合格消费业绩（业务积分），供月度聚合消费
	if err := RecordPoints(tx, purchase.MemberID, decimal.Zero, purchase.Amount,
		models.PointKindPurchase, purchase.TransactionRef, purchase.OccurredAt); err != nil {
		return nil, err
	}

	// 重试场景下已存在的佣金计入运行总额，保证封顶校验跨重试一致
	runningTotal := decimal.Zero
	var existingRows []models.Commission
	if err := tx.Where("transaction_ref = ?", purchase.TransactionRef).Find(&existingRows).Error; err != nil {
		return nil, fmt.Errorf("查询已有佣金记录失败: %w", err)
	}
	existingByLevel := make(map[int]models.Commission, len(existingRows))
	for _, row := range existingRows {
		existingByLevel[row.Level] = row
		runningTotal = runningTotal.Add(row.Amount)
	}

	created := make([]models.Commission, 0, len(chain))
	for i, ancestorID := range chain {
		level := i + 1

		// 幂等：该层级已有记录时跳过
		if _, exists := existingByLevel[level]; exists {
			continue
		}

		var ancestor models.Member
		if err := tx.First(&ancestor, ancestorID).Error; err != nil {
			return nil, fmt.Errorf("查询第%d层受益人(ID=%d)失败: %w", level, ancestorID, err)
		}

		// 从版本化比例表取交易发生时适用的比例
		rate, found, err := lookupRate(tx, ancestor.Tier, level, purchase.OccurredAt)
		if err != nil {
			return nil, err
		}
		if !found {
			// 该等级该层级没有配置比例，不产生佣金
			log.Printf("佣金比例未配置(tier=%s, level=%d)，跳过该层级", ancestor.Tier, level)
			continue
		}

		// 未持有合格套装时按折减系数缩减比例
		if !ancestor.HasQualifyingKit {
			rate = rate.Mul(nonKit)
		}

		// 定点小数计算，两位小数四舍五入
		amount := purchase.Amount.Mul(rate).Round(2)

		// 封顶校验：超出部分裁剪而不是整笔拒绝，并留下完整审计线索
		auditNote := ""
		if runningTotal.Add(amount).GreaterThan(capAmount) {
			clipped := capAmount.Sub(runningTotal)
			if clipped.IsNegative() {
				clipped = decimal.Zero
			}
			auditNote = fmt.Sprintf(
				"佣金封顶裁剪：原金额=%s 裁剪后=%s 此前各层级合计=%s 封顶值=%s 交易=%s 层级=%d",
				amount.StringFixed(2), clipped.StringFixed(2),
				runningTotal.StringFixed(2), capAmount.StringFixed(2),
				purchase.TransactionRef, level)
			log.Printf("佣金总额超过封顶，已裁剪，需人工审核: %s", auditNote)
			amount = clipped
		}

		// 裁剪到零的层级不再写入记录，但裁剪事实已记入日志
		if amount.IsZero() {
			continue
		}

		commission := models.Commission{
			TransactionRef: purchase.TransactionRef,
			Level:          level,
			PayerID:        purchase.MemberID,
			BeneficiaryID:  ancestorID,
			Type:           models.CommissionTypeReferral,
			Rate:           rate,
			Amount:         amount,
			Status:         models.CommissionStatusPending,
			AuditNote:      auditNote,
		}
		if err := tx.Create(&commission).Error; err != nil {
			return nil, fmt.Errorf("创建第%d层佣金记录失败: %w", level, err)
		}

		// 向外部账务系统发出佣金入账意图
		intentRef := fmt.Sprintf("commission:%s:%d", purchase.TransactionRef, level)
		if err := EmitIntent(tx, ancestorID, amount, models.IntentTypeCommissionCredit, intentRef); err != nil {
			return nil, err
		}

		// 受益人按佣金金额累计业务积分
		if err := RecordPoints(tx, ancestorID, decimal.Zero, amount,
			models.PointKindCommission, intentRef, purchase.OccurredAt); err != nil {
			return nil, err
		}

		runningTotal = runningTotal.Add(amount)
		created = append(created, commission)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	// 标记事务已提交
	txCommitted = true

	return created, nil
}

// lookupRate 从版本化比例表查找交易时点适用的佣金比例
// 取生效日期不晚于交易时间的最新一条记录，支持"当时适用什么比例"的时点审计
func lookupRate(db *gorm.DB, tier string, level int, at time.Time) (decimal.Decimal, bool, error) {
	var rate models.CommissionRate
	err := db.Where("tier = ? AND level = ? AND effective_from <= ?", tier, level, at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("查询佣金比例失败: %w", err)
	}
	return rate.Rate, true, nil
}
