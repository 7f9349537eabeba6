package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TeamVolumeSnapshot 团队业绩快照模型
// 月度批处理为每个有下线的会员生成一行快照，记录个人业绩和整棵下线子树的业绩
// (member_id, period_start)唯一，重跑同一周期时覆盖更新，作为时间序列保留不删除
type TeamVolumeSnapshot struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`                                      // 主键ID
	MemberID             uint            `json:"member_id" gorm:"uniqueIndex:idx_volume_period"`            // 会员ID
	PeriodStart          time.Time       `json:"period_start" gorm:"uniqueIndex:idx_volume_period"`         // 周期开始日期
	PeriodEnd            time.Time       `json:"period_end"`                                                // 周期结束日期
	PersonalVolume       decimal.Decimal `json:"personal_volume" gorm:"type:decimal(20,2);default:0"`       // 个人业绩（周期内自身合格交易额）
	TeamVolume           decimal.Decimal `json:"team_volume" gorm:"type:decimal(20,2);default:0"`           // 团队业绩（含自身的整棵子树业绩之和）
	TeamDepth            int             `json:"team_depth" gorm:"default:0"`                               // 下线子树最大深度
	ActiveReferralsCount int             `json:"active_referrals_count" gorm:"default:0"`                   // 活跃直推人数
	CreatedAt            time.Time       `json:"created_at" gorm:"autoCreateTime"`                          // 创建时间
	UpdatedAt            time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                          // 更新时间
}

// TableName 返回表名
func (TeamVolumeSnapshot) TableName() string {
	return "team_volume_snapshots"
}
