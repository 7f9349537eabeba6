package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// ErrBatchAlreadyRunning 同一周期的批处理正在运行
var ErrBatchAlreadyRunning = errors.New("该周期的批处理任务正在运行中")

// SkippedMember 批处理中被跳过的会员及原因
// 汇总到BatchRun.Report中供人工排查，单条失败不中断整批
type SkippedMember struct {
	MemberID uint   `json:"member_id"` // 被跳过的会员ID
	Reason   string `json:"reason"`    // 跳过原因
}

// ClaimBatchRun 申请（job, period）的周期级单写者锁
// 同一周期同时只允许一个运行实例：
//   - 不存在记录时创建新的running记录
//   - 存在running记录时拒绝，防止重叠运行重复处理
//   - 存在failed记录时恢复运行，保留检查点以便续跑
//   - 存在completed记录时重置后重跑（各批处理的写入都是幂等的upsert）
func ClaimBatchRun(db *gorm.DB, job, period string) (*models.BatchRun, error) {
	var run models.BatchRun

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("job = ? AND period = ?", job, period).First(&run)

		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("查询批处理记录失败: %w", result.Error)
			}
			// 无记录，创建新的运行实例
			run = models.BatchRun{
				Job:       job,
				Period:    period,
				Status:    models.BatchStatusRunning,
				StartedAt: time.Now(),
			}
			if err := tx.Create(&run).Error; err != nil {
				return fmt.Errorf("创建批处理记录失败: %w", err)
			}
			return nil
		}

		switch run.Status {
		case models.BatchStatusRunning:
			return ErrBatchAlreadyRunning
		case models.BatchStatusFailed:
			// 保留检查点，从中断处续跑
			log.Printf("批处理 %s/%s 从检查点(会员ID=%d)恢复运行", job, period, run.CheckpointMember)
		case models.BatchStatusCompleted:
			// 重跑：重置检查点和统计
			run.CheckpointMember = 0
			run.ProcessedCount = 0
			run.SkippedCount = 0
			run.Report = ""
		}

		run.Status = models.BatchStatusRunning
		run.StartedAt = time.Now()
		run.FinishedAt = nil
		if err := tx.Save(&run).Error; err != nil {
			return fmt.Errorf("更新批处理记录失败: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateBatchCheckpoint 更新批处理检查点
// 每处理完一个会员推进一次，长任务中断后可从这里续跑
func UpdateBatchCheckpoint(db *gorm.DB, run *models.BatchRun, memberID uint) {
	run.CheckpointMember = memberID
	if err := db.Model(run).Updates(map[string]interface{}{
		"checkpoint_member": run.CheckpointMember,
		"processed_count":   run.ProcessedCount,
		"skipped_count":     run.SkippedCount,
	}).Error; err != nil {
		log.Printf("更新批处理检查点失败: %v", err)
	}
}

// CompleteBatchRun 标记批处理完成并写入运行报告
func CompleteBatchRun(db *gorm.DB, run *models.BatchRun, skipped []SkippedMember) error {
	report := ""
	if len(skipped) > 0 {
		data, err := json.Marshal(skipped)
		if err != nil {
			log.Printf("序列化运行报告失败: %v", err)
		} else {
			report = string(data)
		}
	}

	now := time.Now()
	run.Status = models.BatchStatusCompleted
	run.Report = report
	run.SkippedCount = len(skipped)
	run.FinishedAt = &now

	if err := db.Save(run).Error; err != nil {
		return fmt.Errorf("标记批处理完成失败: %w", err)
	}
	return nil
}

// FailBatchRun 标记批处理失败，检查点保留以便续跑
func FailBatchRun(db *gorm.DB, run *models.BatchRun, cause error) {
	now := time.Now()
	run.Status = models.BatchStatusFailed
	run.FinishedAt = &now
	if err := db.Save(run).Error; err != nil {
		log.Printf("标记批处理失败状态时出错: %v", err)
	}
	log.Printf("批处理 %s/%s 失败: %v", run.Job, run.Period, cause)
}
