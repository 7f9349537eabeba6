package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// 账务意图错误
var (
	ErrIntentNotFound  = errors.New("账务意图不存在")
	ErrIntentCancelled = errors.New("账务意图已作废，不能应用")
)

// EmitIntent 向外部账务系统发出付款/冲销意图
// 本系统不直接动账，只记录"该给谁记多少、为什么"
// reference是业务幂等键：重复发出同一reference的意图是无操作
func EmitIntent(db *gorm.DB, memberID uint, amount decimal.Decimal, intentType, reference string) error {
	intent := models.LedgerIntent{
		IntentID:  uuid.NewString(),
		MemberID:  memberID,
		Amount:    amount,
		Type:      intentType,
		Reference: reference,
		Status:    models.IntentStatusPending,
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&intent).Error; err != nil {
		return fmt.Errorf("写入账务意图失败: %w", err)
	}
	return nil
}

// AcknowledgeIntent 外部账务系统确认意图已应用
// 佣金入账意图被确认时，对应的佣金记录状态从pending推进到paid
func AcknowledgeIntent(db *gorm.DB, reference string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var intent models.LedgerIntent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).First(&intent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIntentNotFound
			}
			return fmt.Errorf("查询账务意图失败: %w", err)
		}

		// 已确认过的意图重复确认是无操作
		if intent.Status == models.IntentStatusApplied {
			return nil
		}

		// 已作废的意图拒绝应用，否则提前退出交易的佣金仍会被外部照常入账
		if intent.Status != models.IntentStatusPending {
			return ErrIntentCancelled
		}

		now := time.Now()
		intent.Status = models.IntentStatusApplied
		intent.AppliedAt = &now
		if err := tx.Save(&intent).Error; err != nil {
			return fmt.Errorf("更新账务意图失败: %w", err)
		}

		// 佣金入账确认后，佣金记录进入已发放状态
		if intent.Type == models.IntentTypeCommissionCredit {
			if err := markCommissionPaid(tx, intent.Reference, now); err != nil {
				return err
			}
		}

		return nil
	})
}

// CancelIntent 作废尚未被外部账务系统应用的意图
// 只有pending状态的意图会被作废；意图不存在或已应用时是无操作
func CancelIntent(db *gorm.DB, reference string) error {
	result := db.Model(&models.LedgerIntent{}).
		Where("reference = ? AND status = ?", reference, models.IntentStatusPending).
		Update("status", models.IntentStatusCancelled)
	if result.Error != nil {
		return fmt.Errorf("作废账务意图失败: %w", result.Error)
	}
	return nil
}

// markCommissionPaid 根据佣金入账意图的引用号推进佣金状态
// 引用号格式：commission:<交易引用号>:<层级>
// 外部交易引用号本身可能含冒号，层级只取最后一个冒号之后的段
func markCommissionPaid(tx *gorm.DB, reference string, paidAt time.Time) error {
	const prefix = "commission:"
	if !strings.HasPrefix(reference, prefix) {
		return nil
	}
	sep := strings.LastIndex(reference, ":")
	if sep < len(prefix) {
		return nil
	}
	txRef := reference[len(prefix):sep]
	level, err := strconv.Atoi(reference[sep+1:])
	if err != nil || txRef == "" {
		return nil
	}

	// 只允许从pending前进到paid，已取消/拒绝的记录不会被复活
	result := tx.Model(&models.Commission{}).
		Where("transaction_ref = ? AND level = ? AND status = ?",
			txRef, level, models.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":  models.CommissionStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return fmt.Errorf("更新佣金状态失败: %w", result.Error)
	}
	return nil
}
