package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"member_network/models"
)

// seedCommission 直接写入一条指定状态的佣金记录
func seedCommission(t *testing.T, db *gorm.DB, txRef string, level int, beneficiaryID uint, amount int64, status string) *models.Commission {
	t.Helper()

	commission := &models.Commission{
		TransactionRef: txRef,
		Level:          level,
		PayerID:        1,
		BeneficiaryID:  beneficiaryID,
		Type:           models.CommissionTypeReferral,
		Rate:           decimal.NewFromFloat(0.10),
		Amount:         decimal.NewFromInt(amount),
		Status:         status,
	}
	require.NoError(t, db.Create(commission).Error)
	return commission
}

func TestTriggerClawbackEarlyExit(t *testing.T) {
	db := newTestDB(t)
	beneficiary := createTestMember(t, db, "beneficiary", "none", true)

	paid1 := seedCommission(t, db, "tx-exit", 1, beneficiary.ID, 100, models.CommissionStatusPaid)
	paid2 := seedCommission(t, db, "tx-exit", 2, beneficiary.ID, 50, models.CommissionStatusPaid)
	pending := seedCommission(t, db, "tx-exit", 3, beneficiary.ID, 20, models.CommissionStatusPending)

	created, err := TriggerClawback(db, WithdrawalApproval{
		WithdrawalRef:  "wd-1",
		TransactionRef: "tx-exit",
		Reason:         models.ExitReasonPartialEarly,
		RequestedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 已发放的两笔按25%追回：100 -> 25.00, 50 -> 12.50
	require.Len(t, created, 2)
	assert.Equal(t, paid1.ID, created[0].CommissionID)
	assert.True(t, created[0].ClawbackAmount.Equal(decimal.NewFromFloat(25.00)), "追回金额=%s", created[0].ClawbackAmount)
	assert.Equal(t, paid2.ID, created[1].CommissionID)
	assert.True(t, created[1].ClawbackAmount.Equal(decimal.NewFromFloat(12.50)), "追回金额=%s", created[1].ClawbackAmount)

	// 待发放的一笔直接取消，不产生追回
	var cancelled models.Commission
	require.NoError(t, db.First(&cancelled, pending.ID).Error)
	assert.Equal(t, models.CommissionStatusCancelled, cancelled.Status)

	// 每笔追回对应一条负金额的扣账意图
	var intents []models.LedgerIntent
	require.NoError(t, db.Where("type = ?", models.IntentTypeClawbackDebit).
		Order("id ASC").Find(&intents).Error)
	require.Len(t, intents, 2)
	assert.True(t, intents[0].Amount.Equal(decimal.NewFromFloat(-25.00)), "意图金额=%s", intents[0].Amount)

	// 提款事件已登记
	var event models.WithdrawalEvent
	require.NoError(t, db.Where("withdrawal_ref = ?", "wd-1").First(&event).Error)
}

func TestTriggerClawbackCancelsPendingCreditIntent(t *testing.T) {
	db := newTestDB(t)
	beneficiary := createTestMember(t, db, "beneficiary", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, payer.ID, beneficiary.ID)

	// 购买事件产生待发放佣金和对应的入账意图
	created, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-early",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.CommissionStatusPending, created[0].Status)

	// 意图被外部应用前发生提前退出
	_, err = TriggerClawback(db, WithdrawalApproval{
		WithdrawalRef:  "wd-early",
		TransactionRef: "tx-early",
		Reason:         models.ExitReasonPartialEarly,
		RequestedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 佣金取消的同时入账意图被作废，外部账务系统不会再为它付款
	var intent models.LedgerIntent
	require.NoError(t, db.Where("reference = ?", "commission:tx-early:1").First(&intent).Error)
	assert.Equal(t, models.IntentStatusCancelled, intent.Status)

	// 迟到的确认被拒绝，意图和佣金都不会被复活
	assert.ErrorIs(t, AcknowledgeIntent(db, "commission:tx-early:1"), ErrIntentCancelled)

	var commission models.Commission
	require.NoError(t, db.First(&commission, created[0].ID).Error)
	assert.Equal(t, models.CommissionStatusCancelled, commission.Status)
	require.NoError(t, db.Where("reference = ?", "commission:tx-early:1").First(&intent).Error)
	assert.Equal(t, models.IntentStatusCancelled, intent.Status)
}

func TestTriggerClawbackIdempotent(t *testing.T) {
	db := newTestDB(t)
	beneficiary := createTestMember(t, db, "beneficiary", "none", true)
	seedCommission(t, db, "tx-retry", 1, beneficiary.ID, 100, models.CommissionStatusPaid)

	approval := WithdrawalApproval{
		WithdrawalRef:  "wd-retry",
		TransactionRef: "tx-retry",
		Reason:         models.ExitReasonFullEarly,
		RequestedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := TriggerClawback(db, approval)
	require.NoError(t, err)
	require.Len(t, first, 1)
	// full_early_exit按50%追回
	assert.True(t, first[0].ClawbackAmount.Equal(decimal.NewFromInt(50)))

	// 同一提款事件重放是无操作
	second, err := TriggerClawback(db, approval)
	require.NoError(t, err)
	assert.Empty(t, second)

	var count int64
	require.NoError(t, db.Model(&models.Clawback{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestTriggerClawbackNotEarly(t *testing.T) {
	db := newTestDB(t)
	beneficiary := createTestMember(t, db, "beneficiary", "none", true)
	paid := seedCommission(t, db, "tx-late", 1, beneficiary.ID, 100, models.CommissionStatusPaid)

	// 锁定期满后的正常退出不触发追回
	created, err := TriggerClawback(db, WithdrawalApproval{
		WithdrawalRef:  "wd-late",
		TransactionRef: "tx-late",
		Reason:         models.ExitReasonPartialEarly,
		RequestedAt:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, created)

	// 佣金保持不变，但事件仍被登记
	var unchanged models.Commission
	require.NoError(t, db.First(&unchanged, paid.ID).Error)
	assert.Equal(t, models.CommissionStatusPaid, unchanged.Status)

	var event models.WithdrawalEvent
	require.NoError(t, db.Where("withdrawal_ref = ?", "wd-late").First(&event).Error)
}

func TestTriggerClawbackUnknownReason(t *testing.T) {
	db := newTestDB(t)

	_, err := TriggerClawback(db, WithdrawalApproval{
		WithdrawalRef:  "wd-unknown",
		TransactionRef: "tx-unknown",
		Reason:         "vacation",
		RequestedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	// 未配置的退出原因显式报错，不猜默认比例
	assert.ErrorIs(t, err, ErrUnknownExitReason)
}

func TestTriggerClawbackNeverExceedsOriginal(t *testing.T) {
	db := newTestDB(t)
	beneficiary := createTestMember(t, db, "beneficiary", "none", true)
	seedCommission(t, db, "tx-over", 1, beneficiary.ID, 10, models.CommissionStatusPaid)

	// 策略比例超过100%时追回金额收敛到原佣金金额
	require.NoError(t, db.Create(&models.ClawbackPolicy{
		Reason:     "over_clawback",
		Percentage: decimal.NewFromFloat(1.50),
	}).Error)

	created, err := TriggerClawback(db, WithdrawalApproval{
		WithdrawalRef:  "wd-over",
		TransactionRef: "tx-over",
		Reason:         "over_clawback",
		RequestedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LockInEndsAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].ClawbackAmount.Equal(created[0].OriginalAmount))
}
