package models

import (
	"time"
)

// 批处理任务名称常量
const (
	BatchJobTeamVolume        = "team_volume"        // 团队业绩聚合
	BatchJobTierQualification = "tier_qualification" // 资格考核
	BatchJobProfitShare       = "profit_share"       // 季度利润分享计算
)

// 批处理运行状态常量
const (
	BatchStatusRunning   = "running"   // 运行中
	BatchStatusCompleted = "completed" // 已完成
	BatchStatusFailed    = "failed"    // 失败，可从检查点续跑
)

// BatchRun 批处理运行记录模型
// (job, period)唯一实现周期级单写者锁：同一周期的重叠运行会被拒绝
// checkpoint记录最后处理完成的会员ID，长任务中断后可从检查点续跑
// 单条会员记录的失败只跳过并记入报告，不中断整批
type BatchRun struct {
	ID               uint       `json:"id" gorm:"primaryKey"`                          // 主键ID
	Job              string     `json:"job" gorm:"size:50;uniqueIndex:idx_batch_period"` // 任务名称
	Period           string     `json:"period" gorm:"size:10;uniqueIndex:idx_batch_period"` // 周期标识，如2026-01
	Status           string     `json:"status" gorm:"size:20;default:running"`         // 运行状态
	CheckpointMember uint       `json:"checkpoint_member" gorm:"default:0"`            // 检查点：最后处理完成的会员ID
	ProcessedCount   int        `json:"processed_count" gorm:"default:0"`              // 成功处理数
	SkippedCount     int        `json:"skipped_count" gorm:"default:0"`                // 跳过数
	Report           string     `json:"report" gorm:"type:text"`                       // 运行报告，被跳过的会员ID及原因，JSON字符串
	StartedAt        time.Time  `json:"started_at"`                                    // 本次启动时间
	FinishedAt       *time.Time `json:"finished_at"`                                   // 结束时间
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`              // 创建时间
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`              // 更新时间
}

// TableName 返回表名
func (BatchRun) TableName() string {
	return "batch_runs"
}
