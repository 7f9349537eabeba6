package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 回扣追回状态常量
const (
	ClawbackStatusPending   = "pending"   // 待执行
	ClawbackStatusProcessed = "processed" // 已执行
)

// 提前退出原因常量，作为追回比例策略表的键
const (
	ExitReasonPartialEarly = "partial_early_exit" // 部分提前退出
	ExitReasonFullEarly    = "full_early_exit"    // 全额提前退出
)

// ClawbackPolicy 佣金追回策略配置模型
// 按退出原因配置追回比例，比例决策永远查表而不硬编码
type ClawbackPolicy struct {
	ID         uint            `json:"id" gorm:"primaryKey"`                     // 主键ID
	Reason     string          `json:"reason" gorm:"size:50;uniqueIndex"`        // 退出原因
	Percentage decimal.Decimal `json:"percentage" gorm:"type:decimal(10,6)"`     // 追回比例，如0.25表示25%
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`         // 创建时间
}

// TableName 返回表名
func (ClawbackPolicy) TableName() string {
	return "clawback_policies"
}

// Clawback 佣金追回记录模型
// 锁定期内提前退出时，对已发放佣金按策略比例追回
// (commission_id, withdrawal_ref)唯一，同一提款对同一佣金的重复触发是无操作
// 不变量：追回金额永远不超过原佣金金额，写入时强制校验
type Clawback struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`                                       // 主键ID
	CommissionID       uint            `json:"commission_id" gorm:"uniqueIndex:idx_clawback_withdrawal"`   // 被追回的佣金记录ID
	WithdrawalRef      string          `json:"withdrawal_ref" gorm:"size:100;uniqueIndex:idx_clawback_withdrawal"` // 触发提款引用号
	MemberID           uint            `json:"member_id" gorm:"index"`                                     // 被追回佣金的受益人ID
	OriginalAmount     decimal.Decimal `json:"original_amount" gorm:"type:decimal(20,2)"`                  // 原佣金金额
	ClawbackAmount     decimal.Decimal `json:"clawback_amount" gorm:"type:decimal(20,2)"`                  // 追回金额
	ClawbackPercentage decimal.Decimal `json:"clawback_percentage" gorm:"type:decimal(10,6)"`              // 适用的追回比例
	Reason             string          `json:"reason" gorm:"size:50"`                                      // 退出原因
	Status             string          `json:"status" gorm:"size:20;default:pending"`                      // 状态
	CreatedAt          time.Time       `json:"created_at" gorm:"autoCreateTime"`                           // 创建时间
	UpdatedAt          time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                           // 更新时间
}

// TableName 返回表名
func (Clawback) TableName() string {
	return "clawbacks"
}

// WithdrawalEvent 提款审批事件记录模型
// 记录外部提款审批事件的处理状态，与Clawback写入在同一事务中完成
type WithdrawalEvent struct {
	ID             uint      `json:"id" gorm:"primaryKey"`                      // 主键ID
	WithdrawalRef  string    `json:"withdrawal_ref" gorm:"size:100;uniqueIndex"` // 提款引用号
	TransactionRef string    `json:"transaction_ref" gorm:"size:100;index"`     // 关联的原交易引用号
	Reason         string    `json:"reason" gorm:"size:50"`                     // 退出原因
	Status         string    `json:"status" gorm:"size:20;default:processed"`   // 处理状态
	RequestedAt    time.Time `json:"requested_at"`                              // 提款申请时间
	LockInEndsAt   time.Time `json:"lock_in_ends_at"`                           // 锁定期结束时间
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`          // 创建时间
}

// TableName 返回表名
func (WithdrawalEvent) TableName() string {
	return "withdrawal_events"
}
