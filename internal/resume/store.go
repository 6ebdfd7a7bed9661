package resume

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"phFolio/internal/database"
)

// ErrNotOwner 表示操作者并不拥有目标 Portfolio。
// 在任何写入发生之前检查，与存储错误区分上报。
var ErrNotOwner = errors.New("portfolio not owned by user")

// Store 是简历条目同步的持久化入口。
// 每个分类的删除集与 upsert 集在同一个事务里落库，失败整体回滚，
// 不会出现“旧行已删、新行未写”的窗口。
type Store struct {
	db *gorm.DB
}

// NewStore 构造 Store。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SyncWork 以 desired 为该 Portfolio 工作经历的完整期望状态执行同步。
func (s *Store) SyncWork(ctx context.Context, userID, portfolioID uint, desired []*database.WorkExperience) error {
	return syncCategory(ctx, s.db, userID, portfolioID, desired, &database.WorkExperience{})
}

// SyncEducation 同步教育经历。
func (s *Store) SyncEducation(ctx context.Context, userID, portfolioID uint, desired []*database.Education) error {
	return syncCategory(ctx, s.db, userID, portfolioID, desired, &database.Education{})
}

// SyncAwards 同步获奖记录。
func (s *Store) SyncAwards(ctx context.Context, userID, portfolioID uint, desired []*database.Award) error {
	return syncCategory(ctx, s.db, userID, portfolioID, desired, &database.Award{})
}

// SyncCertifications 同步资格证书。
func (s *Store) SyncCertifications(ctx context.Context, userID, portfolioID uint, desired []*database.Certification) error {
	return syncCategory(ctx, s.db, userID, portfolioID, desired, &database.Certification{})
}

// SyncLanguages 同步语言成绩。
func (s *Store) SyncLanguages(ctx context.Context, userID, portfolioID uint, desired []*database.LanguageCertification) error {
	return syncCategory(ctx, s.db, userID, portfolioID, desired, &database.LanguageCertification{})
}

// syncCategory 是五个分类共用的同步路径：
// 校验归属 → 读现存行 ID → 清洗 → 计算计划 → 先 upsert 后删除，单事务。
func syncCategory[T Item](ctx context.Context, db *gorm.DB, userID, portfolioID uint, desired []T, model any) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assertOwnership(tx, userID, portfolioID); err != nil {
			return err
		}

		var storedIDs []uint
		if err := tx.Model(model).
			Where("portfolio_id = ?", portfolioID).
			Pluck("id", &storedIDs).Error; err != nil {
			return fmt.Errorf("load stored item ids: %w", err)
		}

		SanitizeItems(desired)
		plan, err := Reconcile(portfolioID, desired, storedIDs)
		if err != nil {
			return err
		}

		for _, item := range plan.Upserts {
			if item.RowID() == 0 {
				if err := tx.Create(item).Error; err != nil {
					return fmt.Errorf("insert item: %w", err)
				}
				continue
			}
			// 载荷里只带 ID，created_at 是零值，全量 Save 会把它写穿。
			if err := tx.Omit("created_at").Save(item).Error; err != nil {
				return fmt.Errorf("update item: %w", err)
			}
		}
		if len(plan.DeleteIDs) > 0 {
			if err := tx.Where("portfolio_id = ?", portfolioID).
				Delete(model, plan.DeleteIDs).Error; err != nil {
				return fmt.Errorf("delete removed items: %w", err)
			}
		}
		return nil
	})
}

// ReorderProjects 按给定顺序重写项目的 display_order（下标即顺序）。
// 项目的增删由独立接口负责，这里只动排序列；传入不属于该 Portfolio
// 的项目 ID 会整体拒绝。
func (s *Store) ReorderProjects(ctx context.Context, userID, portfolioID uint, orderedIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assertOwnership(tx, userID, portfolioID); err != nil {
			return err
		}

		var ownedIDs []uint
		if err := tx.Model(&database.Project{}).
			Where("portfolio_id = ?", portfolioID).
			Pluck("id", &ownedIDs).Error; err != nil {
			return fmt.Errorf("load project ids: %w", err)
		}
		owned := make(map[uint]struct{}, len(ownedIDs))
		for _, id := range ownedIDs {
			owned[id] = struct{}{}
		}

		seen := make(map[uint]struct{}, len(orderedIDs))
		for position, id := range orderedIDs {
			if _, ok := owned[id]; !ok {
				return fmt.Errorf("%w: %d", ErrUnknownItem, id)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %d", ErrDuplicateItem, id)
			}
			seen[id] = struct{}{}

			if err := tx.Model(&database.Project{}).
				Where("id = ? AND portfolio_id = ?", id, portfolioID).
				Update("display_order", position).Error; err != nil {
				return fmt.Errorf("update project order: %w", err)
			}
		}
		return nil
	})
}

// Data 聚合一个 Portfolio 的全部简历分类，各自按 display_order 升序。
type Data struct {
	Work           []database.WorkExperience        `json:"work"`
	Education      []database.Education             `json:"education"`
	Awards         []database.Award                 `json:"awards"`
	Certifications []database.Certification         `json:"certifications"`
	Languages      []database.LanguageCertification `json:"languages"`
}

// Load 读取全部简历分类数据。公开页与编辑页共用。
func (s *Store) Load(ctx context.Context, portfolioID uint) (*Data, error) {
	data := &Data{
		Work:           []database.WorkExperience{},
		Education:      []database.Education{},
		Awards:         []database.Award{},
		Certifications: []database.Certification{},
		Languages:      []database.LanguageCertification{},
	}

	load := func(dest any, what string) error {
		if err := s.db.WithContext(ctx).
			Where("portfolio_id = ?", portfolioID).
			Order("display_order ASC").
			Find(dest).Error; err != nil {
			return fmt.Errorf("load %s: %w", what, err)
		}
		return nil
	}

	if err := load(&data.Work, "work experiences"); err != nil {
		return nil, err
	}
	if err := load(&data.Education, "educations"); err != nil {
		return nil, err
	}
	if err := load(&data.Awards, "awards"); err != nil {
		return nil, err
	}
	if err := load(&data.Certifications, "certifications"); err != nil {
		return nil, err
	}
	if err := load(&data.Languages, "language certifications"); err != nil {
		return nil, err
	}
	return data, nil
}

func assertOwnership(tx *gorm.DB, userID, portfolioID uint) error {
	var count int64
	if err := tx.Model(&database.Portfolio{}).
		Where("id = ? AND user_id = ?", portfolioID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check portfolio ownership: %w", err)
	}
	if count == 0 {
		return ErrNotOwner
	}
	return nil
}
