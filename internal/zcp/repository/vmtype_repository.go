package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// VMTypeRepository 虚拟机规格仓库接口
type VMTypeRepository interface {
	Create(ctx context.Context, vmType *model.VMType) error
	GetByID(ctx context.Context, id uint) (*model.VMType, error)
	GetByName(ctx context.Context, name string) (*model.VMType, error)
	List(ctx context.Context) ([]*model.VMType, error)
	Delete(ctx context.Context, id uint) error
}

type vmTypeRepository struct {
	db *gorm.DB
}

// NewVMTypeRepository 创建虚拟机规格仓库
func NewVMTypeRepository(db *gorm.DB) VMTypeRepository {
	return &vmTypeRepository{db: db}
}

func (r *vmTypeRepository) Create(ctx context.Context, vmType *model.VMType) error {
	return r.db.WithContext(ctx).Create(vmType).Error
}

func (r *vmTypeRepository) GetByID(ctx context.Context, id uint) (*model.VMType, error) {
	var vmType model.VMType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vmType).Error; err != nil {
		return nil, err
	}
	return &vmType, nil
}

func (r *vmTypeRepository) GetByName(ctx context.Context, name string) (*model.VMType, error) {
	var vmType model.VMType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&vmType).Error; err != nil {
		return nil, err
	}
	return &vmType, nil
}

// List 按权重排序返回所有规格
func (r *vmTypeRepository) List(ctx context.Context) ([]*model.VMType, error) {
	var vmTypes []*model.VMType
	if err := r.db.WithContext(ctx).Order("weight").Order("id").Find(&vmTypes).Error; err != nil {
		return nil, err
	}
	return vmTypes, nil
}

func (r *vmTypeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.VMType{}).Error
}
