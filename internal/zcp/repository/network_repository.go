package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// NetworkRepository 虚拟网络仓库接口
type NetworkRepository interface {
	Create(ctx context.Context, network *model.VirtualNetwork) error
	GetByID(ctx context.Context, id uint) (*model.VirtualNetwork, error)
	GetByUniqueName(ctx context.Context, uniqueName string) (*model.VirtualNetwork, error)
	ListByZone(ctx context.Context, zoneName string) ([]*model.VirtualNetwork, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*model.VirtualNetwork, error)
	Update(ctx context.Context, network *model.VirtualNetwork) error
	Delete(ctx context.Context, id uint) error
}

type networkRepository struct {
	db *gorm.DB
}

// NewNetworkRepository 创建虚拟网络仓库
func NewNetworkRepository(db *gorm.DB) NetworkRepository {
	return &networkRepository{db: db}
}

func (r *networkRepository) Create(ctx context.Context, network *model.VirtualNetwork) error {
	return r.db.WithContext(ctx).Create(network).Error
}

func (r *networkRepository) GetByID(ctx context.Context, id uint) (*model.VirtualNetwork, error) {
	var network model.VirtualNetwork
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&network).Error; err != nil {
		return nil, err
	}
	return &network, nil
}

func (r *networkRepository) GetByUniqueName(ctx context.Context, uniqueName string) (*model.VirtualNetwork, error) {
	var network model.VirtualNetwork
	if err := r.db.WithContext(ctx).Where("unique_name = ?", uniqueName).First(&network).Error; err != nil {
		return nil, err
	}
	return &network, nil
}

func (r *networkRepository) ListByZone(ctx context.Context, zoneName string) ([]*model.VirtualNetwork, error) {
	var networks []*model.VirtualNetwork
	if err := r.db.WithContext(ctx).Where("zone_name = ?", zoneName).Order("id").Find(&networks).Error; err != nil {
		return nil, err
	}
	return networks, nil
}

func (r *networkRepository) ListByIDs(ctx context.Context, ids []uint) ([]*model.VirtualNetwork, error) {
	var networks []*model.VirtualNetwork
	if len(ids) == 0 {
		return networks, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&networks).Error; err != nil {
		return nil, err
	}
	return networks, nil
}

func (r *networkRepository) Update(ctx context.Context, network *model.VirtualNetwork) error {
	return r.db.WithContext(ctx).Save(network).Error
}

func (r *networkRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.VirtualNetwork{}).Error
}
