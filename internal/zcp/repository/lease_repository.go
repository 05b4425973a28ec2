package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// LeaseRepository IP 租约仓库接口
type LeaseRepository interface {
	Create(ctx context.Context, lease *model.Lease) error
	GetByID(ctx context.Context, id uint) (*model.Lease, error)
	GetByName(ctx context.Context, name string) (*model.Lease, error)
	// ListByNetwork 返回网络的全部租约，按 id 排序
	ListByNetwork(ctx context.Context, vnetID uint) ([]*model.Lease, error)
	// FindAvailable 返回网络中 userID 可用的租约，按 id 排序
	FindAvailable(ctx context.Context, vnetID, userID uint) ([]*model.Lease, error)
	// Assign 仅当租约未预分配或已预分配给 userID 时写入 assigned_to，返回是否命中
	Assign(ctx context.Context, id, userID uint) (bool, error)
	// Unassign 仅当租约已预分配时清除 assigned_to，返回是否命中
	Unassign(ctx context.Context, id uint) (bool, error)
	// SetUsed 批量设置 used 标记，任一租约不存在时返回 gorm.ErrRecordNotFound
	SetUsed(ctx context.Context, ids []uint, used bool) error
	CountUsed(ctx context.Context, vnetID uint) (int64, error)
	// DeleteUnused 删除网络中未使用的租约，返回是否命中
	DeleteUnused(ctx context.Context, id, vnetID uint) (bool, error)
	// DeleteUnusedByNetwork 网络没有使用中的租约时删除其全部租约
	// 返回使用中的租约数量，不为 0 时什么都不删除
	DeleteUnusedByNetwork(ctx context.Context, vnetID uint) (int64, error)
	DeleteByNetwork(ctx context.Context, vnetID uint) error
}

type leaseRepository struct {
	db *gorm.DB
}

// NewLeaseRepository 创建租约仓库
func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

func (r *leaseRepository) Create(ctx context.Context, lease *model.Lease) error {
	return r.db.WithContext(ctx).Create(lease).Error
}

func (r *leaseRepository) GetByID(ctx context.Context, id uint) (*model.Lease, error) {
	var lease model.Lease
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lease).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) GetByName(ctx context.Context, name string) (*model.Lease, error) {
	var lease model.Lease
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&lease).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) ListByNetwork(ctx context.Context, vnetID uint) ([]*model.Lease, error) {
	var leases []*model.Lease
	if err := r.db.WithContext(ctx).Where("vnet_id = ?", vnetID).Order("id").Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *leaseRepository) FindAvailable(ctx context.Context, vnetID, userID uint) ([]*model.Lease, error) {
	var leases []*model.Lease
	if err := r.db.WithContext(ctx).
		Where("vnet_id = ? AND used = ?", vnetID, false).
		Where("assigned_to < 0 OR assigned_to = ?", userID).
		Order("id").
		Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (r *leaseRepository) Assign(ctx context.Context, id, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Lease{}).
		Where("id = ? AND (assigned_to < 0 OR assigned_to = ?)", id, userID).
		Update("assigned_to", int64(userID))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *leaseRepository) Unassign(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Lease{}).
		Where("id = ? AND assigned_to >= 0", id).
		Update("assigned_to", model.Unassigned)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *leaseRepository) SetUsed(ctx context.Context, ids []uint, used bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Model(&model.Lease{}).Where("id = ?", id).Update("used", used)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *leaseRepository) CountUsed(ctx context.Context, vnetID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Lease{}).
		Where("vnet_id = ? AND used = ?", vnetID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *leaseRepository) DeleteUnused(ctx context.Context, id, vnetID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND vnet_id = ? AND used = ?", id, vnetID, false).
		Delete(&model.Lease{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *leaseRepository) DeleteUnusedByNetwork(ctx context.Context, vnetID uint) (int64, error) {
	var used int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if used, err = (&leaseRepository{db: tx}).CountUsed(ctx, vnetID); err != nil {
			return err
		}
		if used > 0 {
			return nil
		}
		return tx.Where("vnet_id = ?", vnetID).Delete(&model.Lease{}).Error
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}

func (r *leaseRepository) DeleteByNetwork(ctx context.Context, vnetID uint) error {
	return r.db.WithContext(ctx).Where("vnet_id = ?", vnetID).Delete(&model.Lease{}).Error
}
