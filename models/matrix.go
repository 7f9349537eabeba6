package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatrixPosition 矩阵安置位置模型
// 独立于推荐关系的固定宽度（3叉）安置树，仅用于职业头衔评定
// 每个会员在矩阵中只占一个位置，创建后不可变更
type MatrixPosition struct {
	ID               uint      `json:"id" gorm:"primaryKey"`                                          // 主键ID
	MemberID         uint      `json:"member_id" gorm:"uniqueIndex"`                                  // 会员ID，每个会员唯一
	ParentPositionID uint      `json:"parent_position_id" gorm:"uniqueIndex:idx_matrix_slot;index"`   // 上级位置ID，根位置为哨兵值0：NULL在MySQL唯一索引中互不冲突，哨兵值保证根位置槽位同样唯一
	Slot             int       `json:"slot" gorm:"uniqueIndex:idx_matrix_slot"`                       // 槽位索引：0左, 1中, 2右，同一上级下唯一防止并发抢占
	SponsorID        uint      `json:"sponsor_id" gorm:"index"`                                       // 期望安置人ID，安置搜索的起点
	Level            int       `json:"level"`                                                         // 矩阵层级，1..最大深度
	ProfessionalLevel string   `json:"professional_level" gorm:"size:30"`                             // 该层级对应的职业头衔
	Active           bool      `json:"active" gorm:"default:true"`                                    // 是否有效
	PlacedAt         time.Time `json:"placed_at" gorm:"index"`                                        // 安置时间，广度优先溢出扫描的排序键
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`                              // 创建时间
}

// TableName 返回表名
func (MatrixPosition) TableName() string {
	return "matrix_positions"
}

// ProfessionalLevelConfig 职业头衔配置模型
// 矩阵层级1..7到头衔的固定映射，以及利润分享时使用的头衔权重系数
type ProfessionalLevelConfig struct {
	ID              uint            `json:"id" gorm:"primaryKey"`     // 主键ID
	Level           int             `json:"level" gorm:"uniqueIndex"` // 矩阵层级
	Name            string          `json:"name" gorm:"size:30"`      // 头衔名称
	ShareMultiplier decimal.Decimal `json:"share_multiplier" gorm:"type:decimal(10,4);default:1"` // 利润分享权重系数
}

// TableName 返回表名
func (ProfessionalLevelConfig) TableName() string {
	return "professional_level_configs"
}
