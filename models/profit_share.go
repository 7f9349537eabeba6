package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 利润分享批次状态常量
// 状态机只能单向前进：draft -> calculated -> approved -> distributed
// 除计算外的每次状态迁移都需要管理员操作
const (
	ProfitShareStatusDraft       = "draft"       // 草稿
	ProfitShareStatusCalculated  = "calculated"  // 已计算
	ProfitShareStatusApproved    = "approved"    // 已审批
	ProfitShareStatusDistributed = "distributed" // 已分发
)

// 利润分享分配方法常量
const (
	DistributionMethodBPBased    = "bp_based"    // 按职业头衔系数×业务积分余额加权
	DistributionMethodLevelBased = "level_based" // 仅按职业头衔系数加权
	DistributionMethodEqual      = "equal"       // 平均分配
)

// QuarterlyProfitShare 季度利润分享批次模型
// 每季度一行，记录留存利润池和分配方法
// 所有会员份额之和必须与member_share_pool精确一致（分位对账）
type QuarterlyProfitShare struct {
	ID                     uint            `json:"id" gorm:"primaryKey"`                                  // 主键ID
	Period                 string          `json:"period" gorm:"size:10;uniqueIndex"`                     // 季度周期，格式2026-Q1
	TotalProfit            decimal.Decimal `json:"total_profit" gorm:"type:decimal(20,2)"`                // 项目总利润
	DistributionPercentage decimal.Decimal `json:"distribution_percentage" gorm:"type:decimal(10,6)"`     // 分配比例，如0.10表示利润的10%进入分享池
	MemberSharePool        decimal.Decimal `json:"member_share_pool" gorm:"type:decimal(20,2)"`           // 会员分享池总额
	DistributionMethod     string          `json:"distribution_method" gorm:"size:20;default:bp_based"`   // 分配方法
	Status                 string          `json:"status" gorm:"size:20;default:draft"`                   // 批次状态
	ApproverID             *uint           `json:"approver_id"`                                           // 审批管理员ID
	ApprovedAt             *time.Time      `json:"approved_at"`                                           // 审批时间
	DistributedAt          *time.Time      `json:"distributed_at"`                                        // 分发时间
	CreatedAt              time.Time       `json:"created_at" gorm:"autoCreateTime"`                      // 创建时间
	UpdatedAt              time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                      // 更新时间
}

// TableName 返回表名
func (QuarterlyProfitShare) TableName() string {
	return "quarterly_profit_shares"
}

// MemberProfitShare 会员利润份额模型
// 每批次每会员一行，记录该会员的权重和分得的金额
type MemberProfitShare struct {
	ID            uint            `json:"id" gorm:"primaryKey"`                                // 主键ID
	ProfitShareID uint            `json:"profit_share_id" gorm:"uniqueIndex:idx_member_share"` // 所属批次ID
	MemberID      uint            `json:"member_id" gorm:"uniqueIndex:idx_member_share"`       // 会员ID
	Weight        decimal.Decimal `json:"weight" gorm:"type:decimal(20,6)"`                    // 分配权重
	ShareAmount   decimal.Decimal `json:"share_amount" gorm:"type:decimal(20,2)"`              // 分得金额
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`                    // 创建时间
}

// TableName 返回表名
func (MemberProfitShare) TableName() string {
	return "member_profit_shares"
}
