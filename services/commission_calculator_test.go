package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member_network/models"
)

func TestComputeCommissionsPerLevel(t *testing.T) {
	db := newTestDB(t)

	p3 := createTestMember(t, db, "p3", "none", true)
	p2 := createTestMember(t, db, "p2", "none", true)
	p1 := createTestMember(t, db, "p1", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, p2.ID, p3.ID)
	linkMembers(t, db, p1.ID, p2.ID)
	linkMembers(t, db, payer.ID, p1.ID)

	created, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-1",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	// 等级none的比例方案：10% / 5% / 2%
	assert.Equal(t, p1.ID, created[0].BeneficiaryID)
	assert.True(t, created[0].Amount.Equal(decimal.NewFromInt(100)), "第1层金额=%s", created[0].Amount)
	assert.Equal(t, p2.ID, created[1].BeneficiaryID)
	assert.True(t, created[1].Amount.Equal(decimal.NewFromInt(50)), "第2层金额=%s", created[1].Amount)
	assert.Equal(t, p3.ID, created[2].BeneficiaryID)
	assert.True(t, created[2].Amount.Equal(decimal.NewFromInt(20)), "第3层金额=%s", created[2].Amount)
	for _, commission := range created {
		assert.Equal(t, models.CommissionStatusPending, commission.Status)
	}

	// 每层佣金对应一条入账意图
	var intents []models.LedgerIntent
	require.NoError(t, db.Where("type = ?", models.IntentTypeCommissionCredit).
		Order("id ASC").Find(&intents).Error)
	require.Len(t, intents, 3)
	assert.Equal(t, "commission:tx-1:1", intents[0].Reference)

	// 付款人记入个人业绩，受益人按佣金记入业务积分
	payerBP, err := BusinessPointBalance(db, payer.ID)
	require.NoError(t, err)
	assert.True(t, payerBP.Equal(decimal.NewFromInt(1000)))
	p1BP, err := BusinessPointBalance(db, p1.ID)
	require.NoError(t, err)
	assert.True(t, p1BP.Equal(decimal.NewFromInt(100)))
}

func TestComputeCommissionsNonKitMultiplier(t *testing.T) {
	db := newTestDB(t)

	// p2没有合格套装，比例折半
	p2 := createTestMember(t, db, "p2", "none", false)
	p1 := createTestMember(t, db, "p1", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, p1.ID, p2.ID)
	linkMembers(t, db, payer.ID, p1.ID)

	created, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-kit",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// 第2层原比例5%，折半后2.5% -> 25
	assert.True(t, created[1].Amount.Equal(decimal.NewFromInt(25)), "折减后金额=%s", created[1].Amount)
}

func TestComputeCommissionsIdempotent(t *testing.T) {
	db := newTestDB(t)

	p1 := createTestMember(t, db, "p1", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, payer.ID, p1.ID)

	purchase := PurchaseTransaction{
		TransactionRef: "tx-retry",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(500),
		OccurredAt:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	}

	first, err := ComputeCommissions(db, purchase)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// 同一交易重放：已存在的层级全部跳过，不产生重复记录
	second, err := ComputeCommissions(db, purchase)
	require.NoError(t, err)
	assert.Empty(t, second)

	var count int64
	require.NoError(t, db.Model(&models.Commission{}).
		Where("transaction_ref = ?", "tx-retry").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// 积分流水同样只有一条
	require.NoError(t, db.Model(&models.PointTransaction{}).
		Where("reference = ?", "tx-retry").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestComputeCommissionsCapClipping(t *testing.T) {
	// 封顶压到交易额的12%，方便触发裁剪
	t.Setenv("COMMISSION_CAP_PERCENT", "12")
	db := newTestDB(t)

	p3 := createTestMember(t, db, "p3", "none", true)
	p2 := createTestMember(t, db, "p2", "none", true)
	p1 := createTestMember(t, db, "p1", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, p2.ID, p3.ID)
	linkMembers(t, db, p1.ID, p2.ID)
	linkMembers(t, db, payer.ID, p1.ID)

	created, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-cap",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 封顶120：第1层100正常，第2层50裁剪到20并留下审计备注，第3层裁剪到零不写入
	require.Len(t, created, 2)
	assert.True(t, created[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, created[1].Amount.Equal(decimal.NewFromInt(20)), "裁剪后金额=%s", created[1].Amount)
	assert.NotEmpty(t, created[1].AuditNote)

	total := created[0].Amount.Add(created[1].Amount)
	assert.True(t, total.Equal(decimal.NewFromInt(120)), "佣金总额=%s", total)
}

func TestComputeCommissionsRateVersioning(t *testing.T) {
	db := newTestDB(t)

	p1 := createTestMember(t, db, "p1", "none", true)
	payer := createTestMember(t, db, "payer", "none", true)
	linkMembers(t, db, payer.ID, p1.ID)

	// 2026年起第1层比例调整为20%，历史记录保留
	require.NoError(t, db.Create(&models.CommissionRate{
		Tier:          "none",
		Level:         1,
		Rate:          decimal.NewFromFloat(0.20),
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	// 调整前的交易仍适用旧比例
	old, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-old",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.True(t, old[0].Amount.Equal(decimal.NewFromInt(100)))

	// 调整后的交易适用新比例
	current, err := ComputeCommissions(db, PurchaseTransaction{
		TransactionRef: "tx-new",
		MemberID:       payer.ID,
		Amount:         decimal.NewFromInt(1000),
		OccurredAt:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.True(t, current[0].Amount.Equal(decimal.NewFromInt(200)))
}
