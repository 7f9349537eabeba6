package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 佣金类型常量
const (
	CommissionTypeReferral    = "REFERRAL"    // 推荐佣金
	CommissionTypeTeamVolume  = "TEAM_VOLUME" // 团队业绩佣金
	CommissionTypePerformance = "PERFORMANCE" // 绩效佣金
)

// 佣金状态常量
// 佣金记录只追加不删除，状态只能单向前进：pending -> paid / cancelled / rejected
const (
	CommissionStatusPending   = "pending"   // 待发放
	CommissionStatusPaid      = "paid"      // 已发放
	CommissionStatusCancelled = "cancelled" // 已取消
	CommissionStatusRejected  = "rejected"  // 已拒绝
)

// Commission 佣金记录模型
// 每笔合格交易沿祖先链逐级产生一行佣金记录
// (transaction_ref, level)唯一索引保证重试时不会产生重复记录
type Commission struct {
	ID             uint            `json:"id" gorm:"primaryKey"`                                          // 主键ID
	TransactionRef string          `json:"transaction_ref" gorm:"size:100;uniqueIndex:idx_commission_tx"` // 触发交易引用号
	Level          int             `json:"level" gorm:"uniqueIndex:idx_commission_tx"`                    // 祖先链层级，1为直接推荐人
	PayerID        uint            `json:"payer_id" gorm:"index"`                                         // 付款方会员ID（交易发起人）
	BeneficiaryID  uint            `json:"beneficiary_id" gorm:"index"`                                   // 受益人会员ID（该层级祖先）
	Type           string          `json:"type" gorm:"size:20;default:REFERRAL"`                          // 佣金类型
	Rate           decimal.Decimal `json:"rate" gorm:"type:decimal(10,6)"`                                // 实际适用的佣金比例
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(20,2)"`                              // 佣金金额，两位小数四舍五入
	Status         string          `json:"status" gorm:"size:20;default:pending"`                         // 状态
	AuditNote      string          `json:"audit_note" gorm:"type:text"`                                   // 审计备注，封顶裁剪等异常情况的人工审核线索
	PaidAt         *time.Time      `json:"paid_at"`                                                       // 发放时间
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`                              // 创建时间
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                              // 更新时间
}

// TableName 返回表名
func (Commission) TableName() string {
	return "commissions"
}

// CommissionRate 佣金比例配置模型
// 按（等级、层级、生效日期）维度版本化，支持"当时适用什么比例"的时点审计
// 新的比例方案通过插入新的生效日期记录实现，历史记录永不修改
type CommissionRate struct {
	ID            uint            `json:"id" gorm:"primaryKey"`                                        // 主键ID
	Tier          string          `json:"tier" gorm:"size:30;uniqueIndex:idx_rate_version"`            // 受益人资格等级
	Level         int             `json:"level" gorm:"uniqueIndex:idx_rate_version"`                   // 祖先链层级
	Rate          decimal.Decimal `json:"rate" gorm:"type:decimal(10,6)"`                              // 佣金比例，如0.10表示10%
	EffectiveFrom time.Time       `json:"effective_from" gorm:"uniqueIndex:idx_rate_version"`          // 生效日期
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`                            // 创建时间
}

// TableName 返回表名
func (CommissionRate) TableName() string {
	return "commission_rates"
}
