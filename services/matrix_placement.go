package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// 矩阵安置错误
var (
	ErrMatrixSaturated  = errors.New("安置树在最大深度内已饱和，无法安置")
	ErrSponsorNotPlaced = errors.New("安置人尚未进入矩阵")
)

// 每个矩阵位置的子槽位数量，固定3叉
const matrixSlotsPerPosition = 3

// PlaceMember 将新会员安置到矩阵中
// 矩阵是独立于推荐关系的3叉安置树，仅用于职业头衔评定
// 从期望安置人的位置开始广度优先搜索：先扫描当前位置的{左,中,右}槽位，
// 满了再按(placed_at, id)的先进先出顺序转向兄弟子树——这保证安置结果
// 确定且可重算。树在最大深度内饱和时显式报错，不做静默截断
// 会员已有位置时幂等返回原位置
func PlaceMember(db *gorm.DB, memberID, preferredSponsorID uint) (*models.MatrixPosition, error) {
	// 幂等：会员已在矩阵中直接返回
	var existing models.MatrixPosition
	err := db.Where("member_id = ?", memberID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询矩阵位置失败: %w", err)
	}

	maxDepth := MaxMatrixDepth()

	// 树为空时，第一个会员成为根位置
	var total int64
	if err := db.Model(&models.MatrixPosition{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计矩阵位置失败: %w", err)
	}
	if total == 0 {
		// 根位置的上级为哨兵值0，(0, 0)槽位的唯一索引挡住并发注册同时建根
		return createPosition(db, memberID, preferredSponsorID, 0, 0, 1)
	}

	// 定位安置人的位置作为搜索起点
	var sponsorPos models.MatrixPosition
	if err := db.Where("member_id = ?", preferredSponsorID).First(&sponsorPos).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSponsorNotPlaced
		}
		return nil, fmt.Errorf("查询安置人位置失败: %w", err)
	}

	// 广度优先搜索第一个有空槽的位置
	queue := []uint{sponsorPos.ID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		// 锁定候选位置，防止并发注册抢占同一槽位
		var current models.MatrixPosition
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, currentID).Error; err != nil {
			return nil, fmt.Errorf("锁定矩阵位置失败: %w", err)
		}

		// 该位置的下级已到最大深度，不能再挂子位置
		if current.Level >= maxDepth {
			continue
		}

		// 按先进先出顺序读取已占用的子槽位
		var children []models.MatrixPosition
		if err := db.Where("parent_position_id = ?", current.ID).
			Order("placed_at ASC, id ASC").Find(&children).Error; err != nil {
			return nil, fmt.Errorf("查询子槽位失败: %w", err)
		}

		if len(children) < matrixSlotsPerPosition {
			// 占用第一个空槽位；(parent_position_id, slot)唯一索引兜底并发冲突
			slot := nextFreeSlot(children)
			return createPosition(db, memberID, preferredSponsorID, current.ID, slot, current.Level+1)
		}

		// 当前位置已满，子树按安置顺序入队继续溢出搜索
		for _, child := range children {
			queue = append(queue, child.ID)
		}
	}

	return nil, ErrMatrixSaturated
}

// nextFreeSlot 返回第一个未被占用的槽位索引
func nextFreeSlot(children []models.MatrixPosition) int {
	taken := make(map[int]bool, len(children))
	for _, child := range children {
		taken[child.Slot] = true
	}
	for slot := 0; slot < matrixSlotsPerPosition; slot++ {
		if !taken[slot] {
			return slot
		}
	}
	return len(children)
}

// createPosition 创建矩阵位置并更新会员的职业头衔缓存
// parentPositionID为0表示根位置
func createPosition(db *gorm.DB, memberID, sponsorID uint, parentPositionID uint, slot, level int) (*models.MatrixPosition, error) {
	position := models.MatrixPosition{
		MemberID:          memberID,
		ParentPositionID:  parentPositionID,
		Slot:              slot,
		SponsorID:         sponsorID,
		Level:             level,
		ProfessionalLevel: ProfessionalLevelName(db, level),
		Active:            true,
		PlacedAt:          time.Now(),
	}

	if err := db.Create(&position).Error; err != nil {
		return nil, fmt.Errorf("创建矩阵位置失败: %w", err)
	}

	// 更新会员的职业头衔缓存
	if err := db.Model(&models.Member{}).Where("id = ?", memberID).
		Update("professional_level", position.ProfessionalLevel).Error; err != nil {
		return nil, fmt.Errorf("更新职业头衔失败: %w", err)
	}

	Notify(db, memberID, models.NotificationMatrixPlaced, map[string]interface{}{
		"level": level,
		"slot":  slot,
		"title": position.ProfessionalLevel,
	})

	return &position, nil
}

// ProfessionalLevelName 返回矩阵层级对应的职业头衔名称
// 映射由professional_level_configs表配置，缺失时返回通用名称
func ProfessionalLevelName(db *gorm.DB, level int) string {
	var config models.ProfessionalLevelConfig
	if err := db.Where("level = ?", level).First(&config).Error; err != nil {
		return fmt.Sprintf("Level %d", level)
	}
	return config.Name
}
