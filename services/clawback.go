package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"member_network/models"
)

// ErrUnknownExitReason 退出原因没有对应的追回策略
var ErrUnknownExitReason = errors.New("未配置该退出原因的追回策略")

// WithdrawalApproval 提款审批事件
// 来自外部的提款审批完成事件，锁定期内的提前退出会触发佣金追回
type WithdrawalApproval struct {
	WithdrawalRef  string    `json:"withdrawal_ref"`  // 提款引用号
	TransactionRef string    `json:"transaction_ref"` // 被提前退出的原交易引用号
	Reason         string    `json:"reason"`          // 退出原因，追回策略表的键
	RequestedAt    time.Time `json:"requested_at"`    // 提款申请时间
	LockInEndsAt   time.Time `json:"lock_in_ends_at"` // 锁定期结束时间
}

// TriggerClawback 对提前退出的交易执行佣金追回
// 处理流程：
//  1. 申请时间晚于锁定期结束的不属于提前退出，只登记事件不追回
//  2. 按退出原因从策略表取追回比例，永不硬编码分支
//  3. 沿该交易产生的佣金记录逐条处理：
//     已发放的按比例生成追回记录并发出扣账意图；
//     尚未发放的直接取消，不产生追回
//  4. 提款状态登记和所有追回写入在同一个事务中完成，不允许部分生效
//
// 不变量：追回金额永不超过原佣金金额，写入前强制收敛
// 同一(佣金, 提款)对的重复触发是公认的无操作，不是错误
func TriggerClawback(db *gorm.DB, approval WithdrawalApproval) ([]models.Clawback, error) {
	if approval.WithdrawalRef == "" || approval.TransactionRef == "" {
		return nil, errors.New("提款引用号和交易引用号不能为空")
	}

	// 锁定期已满的正常退出不触发追回
	if !approval.RequestedAt.Before(approval.LockInEndsAt) {
		log.Printf("提款 %s 在锁定期满后申请，不触发追回", approval.WithdrawalRef)
		return nil, recordWithdrawalEvent(db, approval)
	}

	// 追回比例由策略表决定
	var policy models.ClawbackPolicy
	if err := db.Where("reason = ?", approval.Reason).First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownExitReason
		}
		return nil, fmt.Errorf("查询追回策略失败: %w", err)
	}

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
			log.Println("佣金追回事务已回滚")
		}
	}()

	// 提款状态登记与追回写入同属一个事务
	if err := recordWithdrawalEvent(tx, approval); err != nil {
		return nil, err
	}

	// 该交易沿祖先链产生的全部佣金记录
	var commissions []models.Commission
	if err := tx.Where("transaction_ref = ? AND status IN ?", approval.TransactionRef,
		[]string{models.CommissionStatusPending, models.CommissionStatusPaid}).
		Order("level ASC").Find(&commissions).Error; err != nil {
		return nil, fmt.Errorf("查询佣金记录失败: %w", err)
	}

	created := make([]models.Clawback, 0, len(commissions))
	for _, commission := range commissions {
		// 尚未发放的佣金直接取消，不需要追回
		if commission.Status == models.CommissionStatusPending {
			if err := tx.Model(&models.Commission{}).Where("id = ?", commission.ID).
				Update("status", models.CommissionStatusCancelled).Error; err != nil {
				return nil, fmt.Errorf("取消待发放佣金失败(ID=%d): %w", commission.ID, err)
			}
			// 同步作废该佣金的入账意图，否则外部账务系统仍会照常入账，
			// 而取消的佣金没有对应扣账意图可以冲抵
			intentRef := fmt.Sprintf("commission:%s:%d", commission.TransactionRef, commission.Level)
			if err := CancelIntent(tx, intentRef); err != nil {
				return nil, err
			}
			continue
		}

		// 同一(佣金, 提款)对的重复触发是无操作
		var existing models.Clawback
		err := tx.Where("commission_id = ? AND withdrawal_ref = ?",
			commission.ID, approval.WithdrawalRef).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询追回记录失败: %w", err)
		}

		// 追回金额 = 佣金金额 × 策略比例，两位小数四舍五入
		amount := commission.Amount.Mul(policy.Percentage).Round(2)
		// 不变量：追回金额不超过原佣金金额
		if amount.GreaterThan(commission.Amount) {
			amount = commission.Amount
		}

		clawback := models.Clawback{
			CommissionID:       commission.ID,
			WithdrawalRef:      approval.WithdrawalRef,
			MemberID:           commission.BeneficiaryID,
			OriginalAmount:     commission.Amount,
			ClawbackAmount:     amount,
			ClawbackPercentage: policy.Percentage,
			Reason:             approval.Reason,
			Status:             models.ClawbackStatusPending,
		}
		if err := tx.Create(&clawback).Error; err != nil {
			return nil, fmt.Errorf("创建追回记录失败(佣金ID=%d): %w", commission.ID, err)
		}

		// 向外部账务系统发出扣账意图，金额为负
		intentRef := fmt.Sprintf("clawback:%s:%d", approval.WithdrawalRef, commission.ID)
		if err := EmitIntent(tx, commission.BeneficiaryID, amount.Neg(),
			models.IntentTypeClawbackDebit, intentRef); err != nil {
			return nil, err
		}

		Notify(tx, commission.BeneficiaryID, models.NotificationClawbackApplied, map[string]interface{}{
			"withdrawal_ref":  approval.WithdrawalRef,
			"commission_id":   commission.ID,
			"clawback_amount": amount.StringFixed(2),
		})

		created = append(created, clawback)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	// 标记事务已提交
	txCommitted = true

	return created, nil
}

// recordWithdrawalEvent 登记提款审批事件的处理状态
// 引用号唯一，重复事件的登记是无操作
func recordWithdrawalEvent(db *gorm.DB, approval WithdrawalApproval) error {
	event := models.WithdrawalEvent{
		WithdrawalRef:  approval.WithdrawalRef,
		TransactionRef: approval.TransactionRef,
		Reason:         approval.Reason,
		Status:         "processed",
		RequestedAt:    approval.RequestedAt,
		LockInEndsAt:   approval.LockInEndsAt,
	}

	err := db.Where("withdrawal_ref = ?", approval.WithdrawalRef).
		FirstOrCreate(&event).Error
	if err != nil {
		return fmt.Errorf("登记提款事件失败: %w", err)
	}
	return nil
}
