package database

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// Seed 初始化基础配置数据
// 职业头衔映射、资格等级门槛、佣金比例表和追回策略表
// 都是可配置数据而不是硬编码分支，这里只在表为空时写入默认方案
// 重复调用是安全的：已存在的配置不会被覆盖
func Seed(db *gorm.DB) {
	seedProfessionalLevels(db)
	seedTierRequirements(db)
	seedCommissionRates(db)
	seedClawbackPolicies(db)
	log.Println("基础配置数据初始化完成")
}

// seedProfessionalLevels 初始化矩阵层级1..7对应的职业头衔和利润分享权重系数
func seedProfessionalLevels(db *gorm.DB) {
	levels := []models.ProfessionalLevelConfig{
		{Level: 1, Name: "Associate", ShareMultiplier: decimal.NewFromFloat(1.0)},
		{Level: 2, Name: "Coordinator", ShareMultiplier: decimal.NewFromFloat(1.25)},
		{Level: 3, Name: "Supervisor", ShareMultiplier: decimal.NewFromFloat(1.5)},
		{Level: 4, Name: "Manager", ShareMultiplier: decimal.NewFromFloat(1.75)},
		{Level: 5, Name: "Director", ShareMultiplier: decimal.NewFromFloat(2.0)},
		{Level: 6, Name: "Executive", ShareMultiplier: decimal.NewFromFloat(2.5)},
		{Level: 7, Name: "Ambassador", ShareMultiplier: decimal.NewFromFloat(3.0)},
	}

	for _, level := range levels {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&level).Error; err != nil {
			log.Printf("初始化职业头衔配置失败(level=%d): %v", level.Level, err)
		}
	}
}

// seedTierRequirements 初始化资格等级门槛
func seedTierRequirements(db *gorm.DB) {
	tiers := []models.TierRequirement{
		{Tier: "bronze", Rank: 1, RequiredTeamVolume: decimal.NewFromInt(1000), RequiredActiveReferrals: 2, RequiredConsecutiveMonths: 3},
		{Tier: "silver", Rank: 2, RequiredTeamVolume: decimal.NewFromInt(5000), RequiredActiveReferrals: 3, RequiredConsecutiveMonths: 3},
		{Tier: "gold", Rank: 3, RequiredTeamVolume: decimal.NewFromInt(20000), RequiredActiveReferrals: 5, RequiredConsecutiveMonths: 6},
		{Tier: "platinum", Rank: 4, RequiredTeamVolume: decimal.NewFromInt(50000), RequiredActiveReferrals: 8, RequiredConsecutiveMonths: 6},
	}

	for _, tier := range tiers {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tier).Error; err != nil {
			log.Printf("初始化资格等级门槛失败(tier=%s): %v", tier.Tier, err)
		}
	}
}

// seedCommissionRates 初始化默认佣金比例表
// 比例按（等级、层级、生效日期）版本化，调整方案时插入新生效日期的记录即可
func seedCommissionRates(db *gorm.DB) {
	// 默认方案自2020年起生效
	effectiveFrom := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	// 各等级按层级递减的比例方案
	schedules := map[string][]float64{
		"none":     {0.10, 0.05, 0.02},
		"bronze":   {0.10, 0.05, 0.02, 0.01},
		"silver":   {0.12, 0.06, 0.03, 0.02, 0.01},
		"gold":     {0.12, 0.07, 0.04, 0.03, 0.02, 0.01},
		"platinum": {0.15, 0.08, 0.05, 0.03, 0.02, 0.01, 0.01},
	}

	for tier, rates := range schedules {
		for i, rate := range rates {
			record := models.CommissionRate{
				Tier:          tier,
				Level:         i + 1,
				Rate:          decimal.NewFromFloat(rate),
				EffectiveFrom: effectiveFrom,
			}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
				log.Printf("初始化佣金比例失败(tier=%s, level=%d): %v", tier, i+1, err)
			}
		}
	}
}

// seedClawbackPolicies 初始化佣金追回策略表
func seedClawbackPolicies(db *gorm.DB) {
	policies := []models.ClawbackPolicy{
		{Reason: models.ExitReasonPartialEarly, Percentage: decimal.NewFromFloat(0.25)},
		{Reason: models.ExitReasonFullEarly, Percentage: decimal.NewFromFloat(0.50)},
	}

	for _, policy := range policies {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&policy).Error; err != nil {
			log.Printf("初始化追回策略失败(reason=%s): %v", policy.Reason, err)
		}
	}
}
