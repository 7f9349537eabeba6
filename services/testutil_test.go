package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"member_network/database"
	"member_network/models"
)

// 每个测试用例使用独立命名的内存数据库，互不干扰
var testDBCounter int64

// newTestDB 创建内存SQLite测试数据库
// 执行全部模型迁移并写入与生产相同的基础配置数据
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared",
		atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库只保留一个连接，连接全部关闭后数据库即销毁
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Member{},
		&models.MemberToken{},
		&models.ReferralEdge{},
		&models.MatrixPosition{},
		&models.ProfessionalLevelConfig{},
		&models.Commission{},
		&models.CommissionRate{},
		&models.TeamVolumeSnapshot{},
		&models.TierRequirement{},
		&models.TierQualification{},
		&models.ClawbackPolicy{},
		&models.Clawback{},
		&models.WithdrawalEvent{},
		&models.QuarterlyProfitShare{},
		&models.MemberProfitShare{},
		&models.PointTransaction{},
		&models.LedgerIntent{},
		&models.NotificationEvent{},
		&models.BatchRun{},
	))

	database.Seed(db)
	return db
}

// createTestMember 创建测试会员
func createTestMember(t *testing.T, db *gorm.DB, username, tier string, hasKit bool) *models.Member {
	t.Helper()

	member := &models.Member{
		Username:         username,
		Name:             username,
		Status:           "active",
		Role:             "member",
		ReferralCode:     username + "-code",
		Tier:             tier,
		HasQualifyingKit: hasKit,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

// linkMembers 建立推荐关系边
func linkMembers(t *testing.T, db *gorm.DB, childID, parentID uint) {
	t.Helper()
	require.NoError(t, AddEdge(db, childID, parentID))
}
