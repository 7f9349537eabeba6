package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member_network/models"
)

func TestCalculateProfitShareExactReconciliation(t *testing.T) {
	db := newTestDB(t)

	m1 := createTestMember(t, db, "m1", "none", true)
	m2 := createTestMember(t, db, "m2", "none", true)

	// 业务积分余额1:2，未进入矩阵时头衔系数为1
	now := time.Now()
	require.NoError(t, RecordPoints(db, m1.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m1", now))
	require.NoError(t, RecordPoints(db, m2.ID, decimal.Zero, decimal.NewFromInt(200),
		models.PointKindAdjustment, "bp-m2", now))

	// 分享池 = 1000.10 × 10% = 100.01，按权重无法整除
	batch, err := CalculateProfitShare(db, "2026-Q1",
		decimal.NewFromFloat(1000.10), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)
	assert.Equal(t, models.ProfitShareStatusCalculated, batch.Status)
	assert.True(t, batch.MemberSharePool.Equal(decimal.NewFromFloat(100.01)), "分享池=%s", batch.MemberSharePool)

	var shares []models.MemberProfitShare
	require.NoError(t, db.Where("profit_share_id = ?", batch.ID).
		Order("member_id ASC").Find(&shares).Error)
	require.Len(t, shares, 2)

	// 向下取整到分后，零头补给权重最大的份额
	assert.True(t, shares[0].ShareAmount.Equal(decimal.NewFromFloat(33.33)), "份额1=%s", shares[0].ShareAmount)
	assert.True(t, shares[1].ShareAmount.Equal(decimal.NewFromFloat(66.68)), "份额2=%s", shares[1].ShareAmount)

	// 分位对账：所有份额之和与分享池严格相等
	total := decimal.Zero
	for _, share := range shares {
		total = total.Add(share.ShareAmount)
	}
	assert.True(t, total.Equal(batch.MemberSharePool), "份额合计=%s 分享池=%s", total, batch.MemberSharePool)
}

func TestCalculateProfitShareEqualMethod(t *testing.T) {
	db := newTestDB(t)

	createTestMember(t, db, "m1", "none", true)
	createTestMember(t, db, "m2", "none", true)
	createTestMember(t, db, "m3", "none", true)

	batch, err := CalculateProfitShare(db, "2026-Q1",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodEqual)
	require.NoError(t, err)

	var shares []models.MemberProfitShare
	require.NoError(t, db.Where("profit_share_id = ?", batch.ID).
		Order("member_id ASC").Find(&shares).Error)
	require.Len(t, shares, 3)

	// 100 / 3：前两位小数向下取整，权重并列时零头给排序最前的会员
	assert.True(t, shares[0].ShareAmount.Equal(decimal.NewFromFloat(33.34)), "份额1=%s", shares[0].ShareAmount)
	assert.True(t, shares[1].ShareAmount.Equal(decimal.NewFromFloat(33.33)))
	assert.True(t, shares[2].ShareAmount.Equal(decimal.NewFromFloat(33.33)))
}

func TestCalculateProfitShareRecalculate(t *testing.T) {
	db := newTestDB(t)

	member := createTestMember(t, db, "m1", "none", true)
	require.NoError(t, RecordPoints(db, member.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m1", time.Now()))

	// 审批前允许重复计算，旧份额被覆盖
	_, err := CalculateProfitShare(db, "2026-Q1",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)

	batch, err := CalculateProfitShare(db, "2026-Q1",
		decimal.NewFromInt(2000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)
	assert.True(t, batch.MemberSharePool.Equal(decimal.NewFromInt(200)))

	var count int64
	require.NoError(t, db.Model(&models.MemberProfitShare{}).
		Where("profit_share_id = ?", batch.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var share models.MemberProfitShare
	require.NoError(t, db.Where("profit_share_id = ?", batch.ID).First(&share).Error)
	assert.True(t, share.ShareAmount.Equal(decimal.NewFromInt(200)))
}

func TestProfitShareStateMachine(t *testing.T) {
	db := newTestDB(t)

	member := createTestMember(t, db, "m1", "none", true)
	admin := createTestMember(t, db, "admin", "none", true)
	require.NoError(t, RecordPoints(db, member.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m1", time.Now()))

	// 未计算的批次不能审批或分发
	_, err := ApproveProfitShare(db, "2026-Q2", admin.ID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
	_, err = DistributeProfitShare(db, "2026-Q2")
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = CalculateProfitShare(db, "2026-Q2",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)

	// 审批前不能分发
	_, err = DistributeProfitShare(db, "2026-Q2")
	assert.ErrorIs(t, err, ErrInvalidBatchStatus)

	approved, err := ApproveProfitShare(db, "2026-Q2", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfitShareStatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, admin.ID, *approved.ApproverID)

	// 审批后不允许重新计算或重复审批
	_, err = CalculateProfitShare(db, "2026-Q2",
		decimal.NewFromInt(9999), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	assert.ErrorIs(t, err, ErrInvalidBatchStatus)
	_, err = ApproveProfitShare(db, "2026-Q2", admin.ID)
	assert.ErrorIs(t, err, ErrInvalidBatchStatus)

	distributed, err := DistributeProfitShare(db, "2026-Q2")
	require.NoError(t, err)
	assert.Equal(t, models.ProfitShareStatusDistributed, distributed.Status)
	require.NotNil(t, distributed.DistributedAt)

	// 每个份额对应一条入账意图（admin无业务积分，不参与分配）
	var intents []models.LedgerIntent
	require.NoError(t, db.Where("type = ?", models.IntentTypeProfitShareCredit).Find(&intents).Error)
	require.Len(t, intents, 1)
	assert.Equal(t, fmt.Sprintf("profitshare:2026-Q2:%d", member.ID), intents[0].Reference)
}

func TestCalculateProfitShareClaimsPeriodLock(t *testing.T) {
	db := newTestDB(t)

	member := createTestMember(t, db, "m1", "none", true)
	require.NoError(t, RecordPoints(db, member.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m1", time.Now()))

	// 同一季度已有运行中的计算任务时拒绝重叠运行
	require.NoError(t, db.Create(&models.BatchRun{
		Job:       models.BatchJobProfitShare,
		Period:    "2026-Q3",
		Status:    models.BatchStatusRunning,
		StartedAt: time.Now(),
	}).Error)

	_, err := CalculateProfitShare(db, "2026-Q3",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	assert.ErrorIs(t, err, ErrBatchAlreadyRunning)

	// 锁释放后计算正常完成并留下completed运行记录
	require.NoError(t, db.Model(&models.BatchRun{}).
		Where("job = ? AND period = ?", models.BatchJobProfitShare, "2026-Q3").
		Update("status", models.BatchStatusCompleted).Error)

	_, err = CalculateProfitShare(db, "2026-Q3",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)

	var run models.BatchRun
	require.NoError(t, db.Where("job = ? AND period = ?",
		models.BatchJobProfitShare, "2026-Q3").First(&run).Error)
	assert.Equal(t, models.BatchStatusCompleted, run.Status)
	assert.EqualValues(t, 1, run.ProcessedCount)
}

func TestCalculateProfitShareResumesFromCheckpoint(t *testing.T) {
	db := newTestDB(t)

	m1 := createTestMember(t, db, "m1", "none", true)
	m2 := createTestMember(t, db, "m2", "none", true)
	now := time.Now()
	require.NoError(t, RecordPoints(db, m1.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m1", now))
	require.NoError(t, RecordPoints(db, m2.ID, decimal.Zero, decimal.NewFromInt(100),
		models.PointKindAdjustment, "bp-m2", now))

	// 上次运行在m1之后失败：批次停在draft，m1的权重已落库，检查点记在m1
	batch := models.QuarterlyProfitShare{
		Period: "2026-Q4",
		Status: models.ProfitShareStatusDraft,
	}
	require.NoError(t, db.Create(&batch).Error)
	require.NoError(t, db.Create(&models.MemberProfitShare{
		ProfitShareID: batch.ID,
		MemberID:      m1.ID,
		Weight:        decimal.NewFromInt(300),
	}).Error)
	require.NoError(t, db.Create(&models.BatchRun{
		Job:              models.BatchJobProfitShare,
		Period:           "2026-Q4",
		Status:           models.BatchStatusFailed,
		CheckpointMember: m1.ID,
		StartedAt:        now,
	}).Error)

	// 续跑只计算检查点之后的会员，已落库的权重不被重算或清除
	_, err := CalculateProfitShare(db, "2026-Q4",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), models.DistributionMethodBPBased)
	require.NoError(t, err)

	var shares []models.MemberProfitShare
	require.NoError(t, db.Where("profit_share_id = ?", batch.ID).
		Order("member_id ASC").Find(&shares).Error)
	require.Len(t, shares, 2)
	assert.True(t, shares[0].Weight.Equal(decimal.NewFromInt(300)), "权重1=%s", shares[0].Weight)
	assert.True(t, shares[1].Weight.Equal(decimal.NewFromInt(100)), "权重2=%s", shares[1].Weight)

	// 份额按保留的权重3:1分配：75.00 / 25.00
	assert.True(t, shares[0].ShareAmount.Equal(decimal.NewFromInt(75)), "份额1=%s", shares[0].ShareAmount)
	assert.True(t, shares[1].ShareAmount.Equal(decimal.NewFromInt(25)), "份额2=%s", shares[1].ShareAmount)
}

func TestCalculateProfitShareRejectsUnknownMethod(t *testing.T) {
	db := newTestDB(t)

	_, err := CalculateProfitShare(db, "2026-Q1",
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.10), "random")
	assert.ErrorIs(t, err, ErrInvalidShareMethod)
}
