package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierRequirement 资格等级门槛配置模型
// 每个等级的月度考核门槛和晋升为永久资格所需的连续达标月数
type TierRequirement struct {
	ID                        uint            `json:"id" gorm:"primaryKey"`                                // 主键ID
	Tier                      string          `json:"tier" gorm:"size:30;uniqueIndex"`                     // 等级名称
	Rank                      int             `json:"rank"`                                                // 等级高低排序，数值越大越高
	RequiredTeamVolume        decimal.Decimal `json:"required_team_volume" gorm:"type:decimal(20,2)"`      // 团队业绩门槛
	RequiredActiveReferrals   int             `json:"required_active_referrals"`                           // 活跃直推人数门槛
	RequiredConsecutiveMonths int             `json:"required_consecutive_months"`                         // 晋升永久资格所需连续达标月数
	CreatedAt                 time.Time       `json:"created_at" gorm:"autoCreateTime"`                    // 创建时间
}

// TableName 返回表名
func (TierRequirement) TableName() string {
	return "tier_requirements"
}

// TierQualification 资格考核记录模型
// 每会员每等级每月一行，记录当月是否达标和连续达标月数
// permanent_status单调：一旦为true，后续任何月度考核都不会再改写
type TierQualification struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`                                       // 主键ID
	MemberID            uint       `json:"member_id" gorm:"uniqueIndex:idx_qualification_month"`       // 会员ID
	Tier                string     `json:"tier" gorm:"size:30;uniqueIndex:idx_qualification_month"`    // 等级名称
	QualificationMonth  string     `json:"qualification_month" gorm:"size:7;uniqueIndex:idx_qualification_month"` // 考核月份，格式2006-01
	Qualifies           bool       `json:"qualifies" gorm:"default:false"`                             // 当月是否达标
	ConsecutiveMonths   int        `json:"consecutive_months" gorm:"default:0"`                        // 连续达标月数，未达标时清零
	PermanentStatus     bool       `json:"permanent_status" gorm:"default:false"`                      // 永久资格，一旦为true不可逆
	PermanentAchievedAt *time.Time `json:"permanent_achieved_at"`                                      // 永久资格达成时间
	CreatedAt           time.Time  `json:"created_at" gorm:"autoCreateTime"`                           // 创建时间
	UpdatedAt           time.Time  `json:"updated_at" gorm:"autoUpdateTime"`                           // 更新时间
}

// TableName 返回表名
func (TierQualification) TableName() string {
	return "tier_qualifications"
}
