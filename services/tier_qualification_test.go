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

// seedSnapshot 为指定月份直接写入团队业绩快照
func seedSnapshot(t *testing.T, db *gorm.DB, memberID uint, month string, teamVolume int64, activeReferrals int) {
	t.Helper()

	monthStart, err := time.Parse("2006-01", month)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.TeamVolumeSnapshot{
		MemberID:             memberID,
		PeriodStart:          monthStart,
		PeriodEnd:            monthStart.AddDate(0, 1, 0),
		PersonalVolume:       decimal.Zero,
		TeamVolume:           decimal.NewFromInt(teamVolume),
		TeamDepth:            1,
		ActiveReferralsCount: activeReferrals,
	}).Error)
}

func loadQualification(t *testing.T, db *gorm.DB, memberID uint, tier, month string) *models.TierQualification {
	t.Helper()

	var record models.TierQualification
	err := db.Where("member_id = ? AND tier = ? AND qualification_month = ?",
		memberID, tier, month).First(&record).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		return nil
	}
	return &record
}

func TestTierQualificationStreakToPermanent(t *testing.T) {
	db := newTestDB(t)
	member := createTestMember(t, db, "streak", "none", true)

	// bronze门槛：团队业绩1000、活跃直推2人、连续3个月
	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		seedSnapshot(t, db, member.ID, month, 1500, 2)
	}

	for i, month := range []string{"2026-01", "2026-02", "2026-03"} {
		run, err := RunTierQualification(db, month)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCompleted, run.Status)

		record := loadQualification(t, db, member.ID, "bronze", month)
		require.NotNil(t, record)
		assert.True(t, record.Qualifies)
		assert.Equal(t, i+1, record.ConsecutiveMonths)
	}

	// 第三个连续达标月晋升永久资格
	record := loadQualification(t, db, member.ID, "bronze", "2026-03")
	require.NotNil(t, record)
	assert.True(t, record.PermanentStatus)
	require.NotNil(t, record.PermanentAchievedAt)

	// 等级缓存同步晋升
	var updated models.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, "bronze", updated.Tier)
}

func TestTierQualificationPermanentNeverReverts(t *testing.T) {
	db := newTestDB(t)
	member := createTestMember(t, db, "permanent", "none", true)

	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		seedSnapshot(t, db, member.ID, month, 1500, 2)
	}
	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		_, err := RunTierQualification(db, month)
		require.NoError(t, err)
	}

	// 4月业绩归零，永久资格依然保留且不再产生考核记录
	_, err := RunTierQualification(db, "2026-04")
	require.NoError(t, err)

	assert.Nil(t, loadQualification(t, db, member.ID, "bronze", "2026-04"))

	permanent := loadQualification(t, db, member.ID, "bronze", "2026-03")
	require.NotNil(t, permanent)
	assert.True(t, permanent.PermanentStatus)

	var updated models.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, "bronze", updated.Tier)
}

func TestTierQualificationStreakResets(t *testing.T) {
	db := newTestDB(t)
	member := createTestMember(t, db, "reset", "none", true)

	// 1月达标，2月业绩不足，3月重新达标
	seedSnapshot(t, db, member.ID, "2026-01", 1500, 2)
	seedSnapshot(t, db, member.ID, "2026-02", 500, 2)
	seedSnapshot(t, db, member.ID, "2026-03", 1500, 2)

	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		_, err := RunTierQualification(db, month)
		require.NoError(t, err)
	}

	// 中断后连续计数从1重新开始
	feb := loadQualification(t, db, member.ID, "bronze", "2026-02")
	require.NotNil(t, feb)
	assert.False(t, feb.Qualifies)
	assert.Equal(t, 0, feb.ConsecutiveMonths)

	mar := loadQualification(t, db, member.ID, "bronze", "2026-03")
	require.NotNil(t, mar)
	assert.True(t, mar.Qualifies)
	assert.Equal(t, 1, mar.ConsecutiveMonths)
	assert.False(t, mar.PermanentStatus)
}

func TestTierQualificationBothThresholdsRequired(t *testing.T) {
	db := newTestDB(t)
	member := createTestMember(t, db, "thresholds", "none", true)

	// 业绩达标但活跃直推不足
	seedSnapshot(t, db, member.ID, "2026-01", 5000, 1)

	_, err := RunTierQualification(db, "2026-01")
	require.NoError(t, err)

	record := loadQualification(t, db, member.ID, "bronze", "2026-01")
	require.NotNil(t, record)
	assert.False(t, record.Qualifies)
	assert.Equal(t, 0, record.ConsecutiveMonths)
}

func TestTierQualificationPromotionOnlyUpward(t *testing.T) {
	db := newTestDB(t)
	// 会员已是gold，bronze的永久资格不会把等级降回去
	member := createTestMember(t, db, "gold-holder", "gold", true)

	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		seedSnapshot(t, db, member.ID, month, 1500, 2)
		_, err := RunTierQualification(db, month)
		require.NoError(t, err)
	}

	record := loadQualification(t, db, member.ID, "bronze", "2026-03")
	require.NotNil(t, record)
	assert.True(t, record.PermanentStatus)

	var updated models.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, "gold", updated.Tier)
}
