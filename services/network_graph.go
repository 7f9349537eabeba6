package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"member_network/models"
)

// MaxPathDepth 祖先链长度的防御性上限
// 单亲不变量下正常数据不会形成环，这个上限只是数据损坏时的保护
const MaxPathDepth = 64

// 网络结构错误
var (
	ErrSelfReferral      = errors.New("会员不能推荐自己")
	ErrDuplicateParent   = errors.New("会员已有推荐人，不能重复绑定")
	ErrParentNotFound    = errors.New("推荐人不存在")
	ErrMemberNotFound    = errors.New("会员不存在")
	ErrAncestryCorrupted = errors.New("祖先链数据损坏，超过最大深度")
)

// AddEdge 建立推荐关系边
// 校验单亲不变量：每个会员最多只能有一个推荐人
// 完全相同的边已存在时幂等成功；推荐人不存在或已绑定其他推荐人时失败
// 同时增量维护物化祖先路径：子路径 = 父路径 + "." + 子ID
// 推荐人行加排他锁，保证同一推荐人下的并发注册串行化
func AddEdge(db *gorm.DB, childID, parentID uint) error {
	if childID == parentID {
		return ErrSelfReferral
	}

	// 锁定推荐人记录，串行化同一推荐人下的并发写入
	var parent models.Member
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("查询推荐人失败: %w", err)
	}

	var child models.Member
	if err := db.First(&child, childID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("查询会员失败: %w", err)
	}

	// 单亲不变量：已有边时，相同边幂等成功，不同边拒绝
	var existing models.ReferralEdge
	err := db.Where("child_id = ?", childID).First(&existing).Error
	if err == nil {
		if existing.ParentID == parentID {
			return nil
		}
		return ErrDuplicateParent
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询推荐关系失败: %w", err)
	}

	edge := models.ReferralEdge{
		ChildID:  childID,
		ParentID: parentID,
	}
	if err := db.Create(&edge).Error; err != nil {
		return fmt.Errorf("创建推荐关系失败: %w", err)
	}

	// 增量维护物化路径缓存
	parentPath := parent.AncestorPath
	if parentPath == "" {
		parentPath = strconv.FormatUint(uint64(parentID), 10)
	}
	childPath := parentPath + "." + strconv.FormatUint(uint64(childID), 10)
	if err := db.Model(&models.Member{}).Where("id = ?", childID).
		Update("ancestor_path", childPath).Error; err != nil {
		return fmt.Errorf("更新祖先路径失败: %w", err)
	}

	return nil
}

// AncestorChain 返回指定会员的祖先链，从最近的推荐人开始，长度不超过maxDepth
// 物化路径新鲜时直接解析路径，否则退回到逐级查询父指针重建
func AncestorChain(db *gorm.DB, memberID uint, maxDepth int) ([]uint, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	var member models.Member
	if err := db.First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("查询会员失败: %w", err)
	}

	// 路径新鲜性检查：路径非空且末段等于自身ID才可信
	if chain, ok := parseAncestorPath(member.AncestorPath, memberID, maxDepth); ok {
		return chain, nil
	}

	return walkAncestors(db, memberID, maxDepth)
}

// parseAncestorPath 解析物化路径，返回从近到远的祖先ID
// 路径格式为从根到自身的点分ID序列；任何解析异常都视为缓存不新鲜
func parseAncestorPath(path string, memberID uint, maxDepth int) ([]uint, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	ids := make([]uint, 0, len(segments))
	for _, segment := range segments {
		parsed, err := strconv.ParseUint(segment, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, uint(parsed))
	}

	// 末段必须是自身，否则缓存已过期
	if ids[len(ids)-1] != memberID {
		return nil, false
	}

	// 去掉自身后反转，得到从近到远的祖先序列
	ancestors := ids[:len(ids)-1]
	chain := make([]uint, 0, len(ancestors))
	for i := len(ancestors) - 1; i >= 0 && len(chain) < maxDepth; i-- {
		chain = append(chain, ancestors[i])
	}
	return chain, true
}

// walkAncestors 逐级查询父指针重建祖先链
// 带防御性深度上限，数据损坏形成环时报错而不是死循环
func walkAncestors(db *gorm.DB, memberID uint, maxDepth int) ([]uint, error) {
	chain := make([]uint, 0, maxDepth)
	visited := map[uint]bool{memberID: true}
	current := memberID

	for len(chain) < maxDepth {
		var edge models.ReferralEdge
		err := db.Where("child_id = ?", current).First(&edge).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, fmt.Errorf("查询推荐关系失败: %w", err)
		}

		if visited[edge.ParentID] || len(visited) > MaxPathDepth {
			return nil, ErrAncestryCorrupted
		}
		visited[edge.ParentID] = true
		chain = append(chain, edge.ParentID)
		current = edge.ParentID
	}

	return chain, nil
}

// RebuildPaths 从推荐关系边全量重建所有会员的物化祖先路径
// 物化路径只是可重建的投影，不是事实来源；缓存异常时调用本函数修复
func RebuildPaths(db *gorm.DB) (int, error) {
	var edges []models.ReferralEdge
	if err := db.Find(&edges).Error; err != nil {
		return 0, fmt.Errorf("加载推荐关系失败: %w", err)
	}

	parentOf := make(map[uint]uint, len(edges))
	childrenOf := make(map[uint][]uint, len(edges))
	for _, edge := range edges {
		parentOf[edge.ChildID] = edge.ParentID
		childrenOf[edge.ParentID] = append(childrenOf[edge.ParentID], edge.ChildID)
	}

	// 根节点：出现在parent侧但自身没有parent的会员
	roots := make([]uint, 0)
	for parentID := range childrenOf {
		if _, hasParent := parentOf[parentID]; !hasParent {
			roots = append(roots, parentID)
		}
	}

	// 从每个根做深度优先遍历，自上而下生成路径
	updated := 0
	type frame struct {
		memberID uint
		path     string
	}
	stack := make([]frame, 0, len(roots))
	for _, rootID := range roots {
		stack = append(stack, frame{rootID, strconv.FormatUint(uint64(rootID), 10)})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := db.Model(&models.Member{}).Where("id = ?", top.memberID).
			Update("ancestor_path", top.path).Error; err != nil {
			return updated, fmt.Errorf("更新祖先路径失败(会员ID=%d): %w", top.memberID, err)
		}
		updated++

		for _, childID := range childrenOf[top.memberID] {
			stack = append(stack, frame{
				memberID: childID,
				path:     top.path + "." + strconv.FormatUint(uint64(childID), 10),
			})
		}
	}

	return updated, nil
}

// Subtree 返回指定会员的全部下线ID（不含自身），广度优先顺序
func Subtree(db *gorm.DB, memberID uint) ([]uint, error) {
	var edges []models.ReferralEdge
	if err := db.Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("加载推荐关系失败: %w", err)
	}

	childrenOf := make(map[uint][]uint, len(edges))
	for _, edge := range edges {
		childrenOf[edge.ParentID] = append(childrenOf[edge.ParentID], edge.ChildID)
	}

	descendants := make([]uint, 0)
	queue := append([]uint(nil), childrenOf[memberID]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		descendants = append(descendants, current)
		queue = append(queue, childrenOf[current]...)
	}

	return descendants, nil
}
