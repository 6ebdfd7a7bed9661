package resume

import (
	"errors"
	"fmt"
)

// Item 是可以参与同步的简历条目（五类条目的 gorm 模型指针都实现它）。
type Item interface {
	// RowID 返回数据库主键，0 表示尚未入库的新条目。
	RowID() uint
	// Bind 强制绑定父 Portfolio 并写入按数组位置推导出的 display_order，
	// 调用方提交的值一律不信任。
	Bind(portfolioID uint, displayOrder int)
}

// Plan 是一次同步的增删计划：DeleteIDs 里的行删掉，Upserts 按序落库。
type Plan[T Item] struct {
	PortfolioID uint
	DeleteIDs   []uint
	Upserts     []T
}

var (
	// ErrDuplicateItem 表示同一次提交里出现了重复的条目 ID。
	// 语义上无法区分“更新两次”还是客户端 bug，按校验错误拒绝。
	ErrDuplicateItem = errors.New("duplicate item id in desired list")
	// ErrUnknownItem 表示提交的条目 ID 不属于该 Portfolio 的现存行。
	ErrUnknownItem = errors.New("item id does not belong to portfolio")
)

// Reconcile 对比期望状态与现存行，计算删除集与 upsert 集。
//
// desired 是该分类在保存时刻的完整有序列表；storedIDs 是该 Portfolio 当前
// 存储的全部行 ID。现存行的 ID 不在 desired 中即进入删除集（desired 不含
// 任何已有 ID 时退化为整表替换）。每个期望条目的 display_order 等于它在
// desired 中的下标，与客户端提交的值无关。
//
// 纯计算，不触存储；仅在输入本身非法（重复 ID / 他人条目 ID）时报错。
func Reconcile[T Item](portfolioID uint, desired []T, storedIDs []uint) (Plan[T], error) {
	stored := make(map[uint]struct{}, len(storedIDs))
	for _, id := range storedIDs {
		stored[id] = struct{}{}
	}

	keep := make(map[uint]struct{}, len(desired))
	for i, item := range desired {
		if id := item.RowID(); id != 0 {
			if _, dup := keep[id]; dup {
				return Plan[T]{}, fmt.Errorf("%w: %d", ErrDuplicateItem, id)
			}
			if _, ok := stored[id]; !ok {
				return Plan[T]{}, fmt.Errorf("%w: %d", ErrUnknownItem, id)
			}
			keep[id] = struct{}{}
		}
		item.Bind(portfolioID, i)
	}

	var deleteIDs []uint
	for _, id := range storedIDs {
		if _, ok := keep[id]; !ok {
			deleteIDs = append(deleteIDs, id)
		}
	}

	return Plan[T]{
		PortfolioID: portfolioID,
		DeleteIDs:   deleteIDs,
		Upserts:     desired,
	}, nil
}
