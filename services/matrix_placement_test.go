package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member_network/models"
)

func TestPlaceMemberRootAndSlots(t *testing.T) {
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)

	// 树为空时第一个会员成为根位置
	rootPos, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rootPos.Level)
	assert.Zero(t, rootPos.ParentPositionID)
	assert.Equal(t, "Associate", rootPos.ProfessionalLevel)

	// 前三个下线依次占用根位置的{左,中,右}槽位
	for slot := 0; slot < 3; slot++ {
		member := createTestMember(t, db, "m"+string(rune('a'+slot)), "none", true)
		pos, err := PlaceMember(db, member.ID, root.ID)
		require.NoError(t, err)
		assert.Equal(t, slot, pos.Slot)
		assert.Equal(t, 2, pos.Level)
		assert.Equal(t, rootPos.ID, pos.ParentPositionID)
		assert.Equal(t, "Coordinator", pos.ProfessionalLevel)
	}
}

func TestPlaceMemberRootSlotUnique(t *testing.T) {
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)
	_, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)

	// 根位置的(0, 0)槽位受唯一索引保护，并发引导注册不会产生第二个根
	other := createTestMember(t, db, "other", "none", true)
	err = db.Create(&models.MatrixPosition{
		MemberID:          other.ID,
		ParentPositionID:  0,
		Slot:              0,
		Level:             1,
		ProfessionalLevel: "Associate",
		Active:            true,
		PlacedAt:          time.Now(),
	}).Error
	assert.Error(t, err)
}

func TestPlaceMemberSpillover(t *testing.T) {
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)
	_, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)

	// 填满根位置的三个槽位
	var firstChildPos *models.MatrixPosition
	for i := 0; i < 3; i++ {
		member := createTestMember(t, db, "child"+string(rune('a'+i)), "none", true)
		pos, err := PlaceMember(db, member.ID, root.ID)
		require.NoError(t, err)
		if i == 0 {
			firstChildPos = pos
		}
	}

	// 第四个下线溢出到最早安置的子位置下的第一个槽位
	overflow := createTestMember(t, db, "overflow", "none", true)
	pos, err := PlaceMember(db, overflow.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, pos.Level)
	assert.Equal(t, 0, pos.Slot)
	assert.Equal(t, firstChildPos.ID, pos.ParentPositionID)
	// 期望安置人保持为原始推荐人，实际位置是溢出的结果
	assert.Equal(t, root.ID, pos.SponsorID)
}

func TestPlaceMemberIdempotent(t *testing.T) {
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)
	first, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)

	// 重复安置返回原位置
	again, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.MatrixPosition{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPlaceMemberSaturation(t *testing.T) {
	// 最大深度压到1层，树只容得下根位置
	t.Setenv("MATRIX_MAX_DEPTH", "1")
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)
	_, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)

	member := createTestMember(t, db, "blocked", "none", true)
	_, err = PlaceMember(db, member.ID, root.ID)
	// 饱和时显式报错而不是静默截断
	assert.ErrorIs(t, err, ErrMatrixSaturated)
}

func TestPlaceMemberSponsorNotPlaced(t *testing.T) {
	db := newTestDB(t)

	root := createTestMember(t, db, "root", "none", true)
	_, err := PlaceMember(db, root.ID, 0)
	require.NoError(t, err)

	outsider := createTestMember(t, db, "outsider", "none", true)
	member := createTestMember(t, db, "member", "none", true)
	_, err = PlaceMember(db, member.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrSponsorNotPlaced)
}
