package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// VMRepository 虚拟机仓库接口
type VMRepository interface {
	// Create 创建虚拟机记录及其次要租约
	Create(ctx context.Context, vm *model.VirtualMachine, secondaryLeaseIDs []uint) error
	GetByID(ctx context.Context, id uint) (*model.VirtualMachine, error)
	GetByOID(ctx context.Context, oid int) (*model.VirtualMachine, error)
	List(ctx context.Context) ([]*model.VirtualMachine, error)
	ListByUser(ctx context.Context, userID uint) ([]*model.VirtualMachine, error)
	ListByUserZone(ctx context.Context, userID, zoneID uint) ([]*model.VirtualMachine, error)
	CountByZone(ctx context.Context, zoneID uint) (int64, error)
	// LeaseIDs 返回虚拟机绑定的全部租约，主租约在前
	LeaseIDs(ctx context.Context, vm *model.VirtualMachine) ([]uint, error)
	// Delete 删除虚拟机记录及其次要租约关联
	Delete(ctx context.Context, id uint) error
}

type vmRepository struct {
	db *gorm.DB
}

// NewVMRepository 创建虚拟机仓库
func NewVMRepository(db *gorm.DB) VMRepository {
	return &vmRepository{db: db}
}

func (r *vmRepository) Create(ctx context.Context, vm *model.VirtualMachine, secondaryLeaseIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vm).Error; err != nil {
			return err
		}
		for _, leaseID := range secondaryLeaseIDs {
			if err := tx.Create(&model.VMLease{VMID: vm.ID, LeaseID: leaseID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *vmRepository) GetByID(ctx context.Context, id uint) (*model.VirtualMachine, error) {
	var vm model.VirtualMachine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vm).Error; err != nil {
		return nil, err
	}
	return &vm, nil
}

func (r *vmRepository) GetByOID(ctx context.Context, oid int) (*model.VirtualMachine, error) {
	var vm model.VirtualMachine
	if err := r.db.WithContext(ctx).Where("oid = ?", oid).First(&vm).Error; err != nil {
		return nil, err
	}
	return &vm, nil
}

func (r *vmRepository) List(ctx context.Context) ([]*model.VirtualMachine, error) {
	var vms []*model.VirtualMachine
	if err := r.db.WithContext(ctx).Order("id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *vmRepository) ListByUser(ctx context.Context, userID uint) ([]*model.VirtualMachine, error) {
	var vms []*model.VirtualMachine
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *vmRepository) ListByUserZone(ctx context.Context, userID, zoneID uint) ([]*model.VirtualMachine, error) {
	var vms []*model.VirtualMachine
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND zone_id = ?", userID, zoneID).
		Order("id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *vmRepository) CountByZone(ctx context.Context, zoneID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.VirtualMachine{}).
		Where("zone_id = ?", zoneID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *vmRepository) LeaseIDs(ctx context.Context, vm *model.VirtualMachine) ([]uint, error) {
	var secondary []uint
	if err := r.db.WithContext(ctx).Model(&model.VMLease{}).
		Where("vm_id = ?", vm.ID).Order("id").
		Pluck("lease_id", &secondary).Error; err != nil {
		return nil, err
	}
	return append([]uint{vm.LeaseID}, secondary...), nil
}

func (r *vmRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vm_id = ?", id).Delete(&model.VMLease{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.VirtualMachine{}).Error
	})
}
