package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member_network/models"
)

func TestClaimBatchRunLifecycle(t *testing.T) {
	db := newTestDB(t)

	// 首次申请创建running记录
	run, err := ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, run.Status)

	// 运行中的周期拒绝重叠申请
	_, err = ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	assert.ErrorIs(t, err, ErrBatchAlreadyRunning)

	// 不同任务或不同周期互不影响
	_, err = ClaimBatchRun(db, models.BatchJobTierQualification, "2026-02")
	require.NoError(t, err)
	_, err = ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-03")
	require.NoError(t, err)
}

func TestClaimBatchRunResumeFromFailure(t *testing.T) {
	db := newTestDB(t)

	run, err := ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	require.NoError(t, err)

	run.ProcessedCount = 5
	UpdateBatchCheckpoint(db, run, 42)
	FailBatchRun(db, run, errors.New("数据库连接中断"))

	// 失败后重新申请，检查点保留以便续跑
	resumed, err := ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, resumed.Status)
	assert.EqualValues(t, 42, resumed.CheckpointMember)
	assert.Equal(t, 5, resumed.ProcessedCount)
}

func TestClaimBatchRunRerunAfterCompletion(t *testing.T) {
	db := newTestDB(t)

	run, err := ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	require.NoError(t, err)

	run.ProcessedCount = 3
	UpdateBatchCheckpoint(db, run, 7)
	require.NoError(t, CompleteBatchRun(db, run, []SkippedMember{{MemberID: 9, Reason: "测试跳过"}}))
	assert.Equal(t, 1, run.SkippedCount)
	assert.NotEmpty(t, run.Report)

	// 完成后的重跑重置检查点和统计
	rerun, err := ClaimBatchRun(db, models.BatchJobTeamVolume, "2026-02")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rerun.CheckpointMember)
	assert.Equal(t, 0, rerun.ProcessedCount)
	assert.Equal(t, 0, rerun.SkippedCount)
	assert.Empty(t, rerun.Report)

	// 全程只有一条(job, period)记录
	var count int64
	require.NoError(t, db.Model(&models.BatchRun{}).
		Where("job = ? AND period = ?", models.BatchJobTeamVolume, "2026-02").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
