package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// ZoneRepository Zone 仓库接口
type ZoneRepository interface {
	Create(ctx context.Context, zone *model.Zone) error
	GetByID(ctx context.Context, id uint) (*model.Zone, error)
	GetByName(ctx context.Context, name string) (*model.Zone, error)
	List(ctx context.Context) ([]*model.Zone, error)
	// Delete 删除 Zone 及其主机、网络关联
	Delete(ctx context.Context, id uint) error

	AddHost(ctx context.Context, host *model.ZoneHost) error
	RemoveHost(ctx context.Context, zoneID uint, hostOID int) error
	Hosts(ctx context.Context, zoneID uint) ([]*model.ZoneHost, error)

	AddNetwork(ctx context.Context, zoneID, networkID uint) error
	RemoveNetwork(ctx context.Context, zoneID, networkID uint) error
	NetworkIDs(ctx context.Context, zoneID uint) ([]uint, error)
}

type zoneRepository struct {
	db *gorm.DB
}

// NewZoneRepository 创建 Zone 仓库
func NewZoneRepository(db *gorm.DB) ZoneRepository {
	return &zoneRepository{db: db}
}

func (r *zoneRepository) Create(ctx context.Context, zone *model.Zone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *zoneRepository) GetByID(ctx context.Context, id uint) (*model.Zone, error) {
	var zone model.Zone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *zoneRepository) GetByName(ctx context.Context, name string) (*model.Zone, error) {
	var zone model.Zone
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *zoneRepository) List(ctx context.Context) ([]*model.Zone, error) {
	var zones []*model.Zone
	if err := r.db.WithContext(ctx).Order("id").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (r *zoneRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("zone_id = ?", id).Delete(&model.ZoneHost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("zone_id = ?", id).Delete(&model.ZoneNetwork{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Zone{}).Error
	})
}

func (r *zoneRepository) AddHost(ctx context.Context, host *model.ZoneHost) error {
	return r.db.WithContext(ctx).Create(host).Error
}

func (r *zoneRepository) RemoveHost(ctx context.Context, zoneID uint, hostOID int) error {
	return r.db.WithContext(ctx).
		Where("zone_id = ? AND host_oid = ?", zoneID, hostOID).
		Delete(&model.ZoneHost{}).Error
}

func (r *zoneRepository) Hosts(ctx context.Context, zoneID uint) ([]*model.ZoneHost, error) {
	var hosts []*model.ZoneHost
	if err := r.db.WithContext(ctx).Where("zone_id = ?", zoneID).Order("id").Find(&hosts).Error; err != nil {
		return nil, err
	}
	return hosts, nil
}

func (r *zoneRepository) AddNetwork(ctx context.Context, zoneID, networkID uint) error {
	return r.db.WithContext(ctx).Create(&model.ZoneNetwork{ZoneID: zoneID, NetworkID: networkID}).Error
}

func (r *zoneRepository) RemoveNetwork(ctx context.Context, zoneID, networkID uint) error {
	return r.db.WithContext(ctx).
		Where("zone_id = ? AND network_id = ?", zoneID, networkID).
		Delete(&model.ZoneNetwork{}).Error
}

func (r *zoneRepository) NetworkIDs(ctx context.Context, zoneID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.ZoneNetwork{}).
		Where("zone_id = ?", zoneID).Order("network_id").
		Pluck("network_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
