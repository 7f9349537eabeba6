package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// RunTeamVolumeAggregation 月度团队业绩聚合批处理
// 为每个有下线的会员计算周期内的个人业绩和整棵下线子树的团队业绩，
// 以及活跃直推人数和子树深度，结果upsert到快照表（重跑安全）
//
// 整片森林按叶子先于祖先的逆拓扑顺序单趟计算，每棵子树的合计只算一次，
// 聚合总量与会员数成线性关系
//
// 周期级单写者锁由BatchRun承担；单个会员的写入失败只跳过并记入运行报告，
// 不中断整批；检查点逐会员推进，中断后可续跑
func RunTeamVolumeAggregation(db *gorm.DB, periodStart time.Time) (*models.BatchRun, error) {
	periodStart = time.Date(periodStart.Year(), periodStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	period := periodStart.Format("2006-01")

	run, err := ClaimBatchRun(db, models.BatchJobTeamVolume, period)
	if err != nil {
		return nil, err
	}

	// 加载整片推荐森林
	var edges []models.ReferralEdge
	if err := db.Find(&edges).Error; err != nil {
		FailBatchRun(db, run, err)
		return run, fmt.Errorf("加载推荐关系失败: %w", err)
	}

	childrenOf := make(map[uint][]uint, len(edges))
	hasParent := make(map[uint]bool, len(edges))
	for _, edge := range edges {
		childrenOf[edge.ParentID] = append(childrenOf[edge.ParentID], edge.ChildID)
		hasParent[edge.ChildID] = true
	}

	// 周期内所有会员的个人业绩一次取出
	personalVolumes, err := PersonalVolumesByMember(db, periodStart, periodEnd)
	if err != nil {
		FailBatchRun(db, run, err)
		return run, err
	}

	// 会员状态用于活跃直推统计
	memberStatus, err := loadMemberStatuses(db)
	if err != nil {
		FailBatchRun(db, run, err)
		return run, err
	}

	// 自底向上单趟计算每个节点的子树合计和深度
	teamVolumes := make(map[uint]decimal.Decimal)
	teamDepths := make(map[uint]int)
	for memberID := range childrenOf {
		if !hasParent[memberID] {
			accumulateSubtree(memberID, childrenOf, personalVolumes, teamVolumes, teamDepths)
		}
	}

	// 有下线的会员按ID升序处理，配合检查点续跑
	parents := make([]uint, 0, len(childrenOf))
	for memberID := range childrenOf {
		parents = append(parents, memberID)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	var skipped []SkippedMember
	for _, memberID := range parents {
		// 检查点之前的会员已在上次运行中处理完成
		if memberID <= run.CheckpointMember {
			continue
		}

		snapshot := models.TeamVolumeSnapshot{
			MemberID:             memberID,
			PeriodStart:          periodStart,
			PeriodEnd:            periodEnd,
			PersonalVolume:       volumeOf(personalVolumes, memberID),
			TeamVolume:           volumeOf(teamVolumes, memberID),
			TeamDepth:            teamDepths[memberID],
			ActiveReferralsCount: countActiveReferrals(childrenOf[memberID], memberStatus),
		}

		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_id"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"period_end", "personal_volume", "team_volume", "team_depth",
				"active_referrals_count", "updated_at",
			}),
		}).Create(&snapshot).Error
		if err != nil {
			// 单条失败只跳过并记入报告，继续处理后面的会员
			skipped = append(skipped, SkippedMember{MemberID: memberID, Reason: err.Error()})
			run.SkippedCount = len(skipped)
			continue
		}

		run.ProcessedCount++
		UpdateBatchCheckpoint(db, run, memberID)
	}

	if err := CompleteBatchRun(db, run, skipped); err != nil {
		return run, err
	}
	return run, nil
}

// accumulateSubtree 迭代后序遍历计算子树业绩合计和深度
// teamVolume(m) = personal(m) + Σ teamVolume(child)；深度为下线子树的最大层数
func accumulateSubtree(rootID uint, childrenOf map[uint][]uint,
	personal map[uint]decimal.Decimal, teamVolumes map[uint]decimal.Decimal, teamDepths map[uint]int) {

	type frame struct {
		memberID uint
		expanded bool
	}
	stack := []frame{{rootID, false}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expanded {
			// 先展开子节点，子节点全部算完后再回来汇总
			top.expanded = true
			for _, childID := range childrenOf[top.memberID] {
				stack = append(stack, frame{childID, false})
			}
			continue
		}

		memberID := top.memberID
		stack = stack[:len(stack)-1]

		total := volumeOf(personal, memberID)
		depth := 0
		for _, childID := range childrenOf[memberID] {
			total = total.Add(volumeOf(teamVolumes, childID))
			if childDepth := teamDepths[childID] + 1; childDepth > depth {
				depth = childDepth
			}
		}
		teamVolumes[memberID] = total
		teamDepths[memberID] = depth
	}
}

// volumeOf 从业绩映射取值，缺失视为零
func volumeOf(volumes map[uint]decimal.Decimal, memberID uint) decimal.Decimal {
	if volume, ok := volumes[memberID]; ok {
		return volume
	}
	return decimal.Zero
}

// loadMemberStatuses 加载所有会员的状态映射
func loadMemberStatuses(db *gorm.DB) (map[uint]string, error) {
	var members []models.Member
	if err := db.Select("id", "status").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("加载会员状态失败: %w", err)
	}
	statuses := make(map[uint]string, len(members))
	for _, member := range members {
		statuses[member.ID] = member.Status
	}
	return statuses, nil
}

// countActiveReferrals 统计直推下线中处于活跃状态的人数
func countActiveReferrals(children []uint, statuses map[uint]string) int {
	count := 0
	for _, childID := range children {
		if statuses[childID] == "active" {
			count++
		}
	}
	return count
}
