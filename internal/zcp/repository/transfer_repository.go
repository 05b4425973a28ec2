package repository

import (
	"context"
	"time"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
)

// TransferRepository 传输会话仓库接口
type TransferRepository interface {
	Create(ctx context.Context, transfer *model.Transfer) error
	GetByName(ctx context.Context, name string) (*model.Transfer, error)
	// MarkDone 将会话标记为完成，仅在未完成时生效，返回是否发生了变更
	MarkDone(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	// ListOlderThan 返回创建时间早于 before 的会话
	ListOlderThan(ctx context.Context, before time.Time) ([]*model.Transfer, error)
}

type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository 创建传输会话仓库
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, transfer *model.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *transferRepository) GetByName(ctx context.Context, name string) (*model.Transfer, error) {
	var transfer model.Transfer
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) MarkDone(ctx context.Context, name string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Transfer{}).
		Where("name = ? AND done = ?", name, false).
		Update("done", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *transferRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Transfer{}).Error
}

func (r *transferRepository) ListOlderThan(ctx context.Context, before time.Time) ([]*model.Transfer, error) {
	var transfers []*model.Transfer
	if err := r.db.WithContext(ctx).Where("created_at < ?", before).Order("id").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}
