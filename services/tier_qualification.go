package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// RunTierQualification 月度资格考核批处理
// 对每个会员每个等级执行一次状态机迭代：
//
//	not_qualified -> qualified(连续n个月) -> permanent
//
// 当月团队业绩和活跃直推人数双双达标时qualifies=true，
// 连续达标月数在上月基础上加一（无上月达标记录则从1开始）；
// 任一门槛不达标则清零。连续达标月数达到等级要求后晋升永久资格，
// permanent_status一旦为true不可逆，此后该(会员,等级)不再参与考核
func RunTierQualification(db *gorm.DB, month string) (*models.BatchRun, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("非法的考核月份 %q: %w", month, err)
	}
	prevMonth := monthStart.AddDate(0, -1, 0).Format("2006-01")

	run, err := ClaimBatchRun(db, models.BatchJobTierQualification, month)
	if err != nil {
		return nil, err
	}

	// 等级门槛配置
	var requirements []models.TierRequirement
	if err := db.Order("`rank` ASC").Find(&requirements).Error; err != nil {
		FailBatchRun(db, run, err)
		return run, fmt.Errorf("加载等级门槛失败: %w", err)
	}

	// 当月快照一次取出
	snapshots, err := loadSnapshotsForMonth(db, monthStart)
	if err != nil {
		FailBatchRun(db, run, err)
		return run, err
	}

	// 按ID升序遍历会员，配合检查点续跑
	var members []models.Member
	if err := db.Where("id > ?", run.CheckpointMember).Order("id ASC").Find(&members).Error; err != nil {
		FailBatchRun(db, run, err)
		return run, fmt.Errorf("加载会员失败: %w", err)
	}

	var skipped []SkippedMember
	for _, member := range members {
		if err := evaluateMember(db, member, requirements, snapshots[member.ID], month, prevMonth); err != nil {
			// 单个会员的考核失败只跳过并记入报告
			skipped = append(skipped, SkippedMember{MemberID: member.ID, Reason: err.Error()})
			run.SkippedCount = len(skipped)
			continue
		}
		run.ProcessedCount++
		UpdateBatchCheckpoint(db, run, member.ID)
	}

	if err := CompleteBatchRun(db, run, skipped); err != nil {
		return run, err
	}
	return run, nil
}

// evaluateMember 对单个会员执行所有等级的月度考核
func evaluateMember(db *gorm.DB, member models.Member, requirements []models.TierRequirement,
	snapshot *models.TeamVolumeSnapshot, month, prevMonth string) error {

	for _, req := range requirements {
		// 永久资格一旦达成就不再考核，永不回退
		var permanent models.TierQualification
		err := db.Where("member_id = ? AND tier = ? AND permanent_status = ?",
			member.ID, req.Tier, true).First(&permanent).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询永久资格失败: %w", err)
		}

		// 双门槛考核：团队业绩和活跃直推人数
		qualifies := snapshot != nil &&
			snapshot.TeamVolume.GreaterThanOrEqual(req.RequiredTeamVolume) &&
			snapshot.ActiveReferralsCount >= req.RequiredActiveReferrals

		// 连续达标月数：达标时接续上月，否则清零
		consecutive := 0
		if qualifies {
			consecutive = 1
			var prev models.TierQualification
			err := db.Where("member_id = ? AND tier = ? AND qualification_month = ? AND qualifies = ?",
				member.ID, req.Tier, prevMonth, true).First(&prev).Error
			if err == nil {
				consecutive = prev.ConsecutiveMonths + 1
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("查询上月考核记录失败: %w", err)
			}
		}

		record := models.TierQualification{
			MemberID:           member.ID,
			Tier:               req.Tier,
			QualificationMonth: month,
			Qualifies:          qualifies,
			ConsecutiveMonths:  consecutive,
		}

		// 连续达标月数达到要求，晋升永久资格（不可逆）
		if consecutive >= req.RequiredConsecutiveMonths && req.RequiredConsecutiveMonths > 0 {
			now := time.Now()
			record.PermanentStatus = true
			record.PermanentAchievedAt = &now
		}

		err = db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_id"}, {Name: "tier"}, {Name: "qualification_month"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"qualifies", "consecutive_months", "permanent_status", "permanent_achieved_at", "updated_at",
			}),
		}).Create(&record).Error
		if err != nil {
			return fmt.Errorf("写入考核记录失败(tier=%s): %w", req.Tier, err)
		}

		if record.PermanentStatus {
			if err := promoteMemberTier(db, member, req); err != nil {
				return err
			}
		}
	}

	return nil
}

// promoteMemberTier 永久资格达成后更新会员的等级缓存并发出通知
// 只升不降：新等级排序低于当前等级时保持不变
func promoteMemberTier(db *gorm.DB, member models.Member, req models.TierRequirement) error {
	var current models.TierRequirement
	err := db.Where("tier = ?", member.Tier).First(&current).Error
	if err == nil && current.Rank >= req.Rank {
		return nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询当前等级失败: %w", err)
	}

	if err := db.Model(&models.Member{}).Where("id = ?", member.ID).
		Update("tier", req.Tier).Error; err != nil {
		return fmt.Errorf("更新会员等级失败: %w", err)
	}

	Notify(db, member.ID, models.NotificationTierChanged, map[string]interface{}{
		"tier":      req.Tier,
		"permanent": true,
	})
	return nil
}

// loadSnapshotsForMonth 加载指定月份的全部团队业绩快照
func loadSnapshotsForMonth(db *gorm.DB, monthStart time.Time) (map[uint]*models.TeamVolumeSnapshot, error) {
	var rows []models.TeamVolumeSnapshot
	if err := db.Where("period_start = ?", monthStart).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("加载团队业绩快照失败: %w", err)
	}
	snapshots := make(map[uint]*models.TeamVolumeSnapshot, len(rows))
	for i := range rows {
		snapshots[rows[i].MemberID] = &rows[i]
	}
	return snapshots, nil
}
