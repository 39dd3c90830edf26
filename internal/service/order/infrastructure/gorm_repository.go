// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"orderhub/internal/service/order/domain"
)

// NewDB 打开 MySQL 连接并迁移订单表结构。
func NewDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open mysql")
	}
	if err := db.AutoMigrate(&OrderModel{}, &OrderItemModel{}); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate order tables")
	}
	return db, nil
}

// GormOrderRepository 是 OrderRepository 的 GORM/MySQL 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例。
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 创建或更新订单。
// 创建时连同条目一并写入并回填 ID；更新时只改订单行上可变的列
// （条目创建后不可变），并用 version 列做乐观并发检查：
// 两个并发的状态变更竞争同一行时，后提交的一方拿到 ErrVersionConflict。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if order.ID == 0 {
		model := toModel(order)
		model.Version = 1
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return pkgerrors.Wrap(err, "create order")
		}
		order.ID = model.ID
		order.Version = model.Version
		return nil
	}

	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":            string(order.Status),
			"payment_intent_id": order.PaymentIntentID,
			"version":           order.Version + 1,
			"updated_at":        order.UpdatedAt,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	order.Version++
	return nil
}

// FindByID 根据 ID 查找订单聚合。
func (r *GormOrderRepository) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var model OrderModel
	err := r.itemScope(ctx).First(&model, "orders.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "find order by id")
	}
	return toDomain(&model)
}

// FindByUserID 返回某个用户的订单，按创建时间倒序。
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.itemScope(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find orders by user")
	}
	return toDomainList(models)
}

// FindAll 返回全部订单。
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	if err := r.itemScope(ctx).Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "find all orders")
	}
	return toDomainList(models)
}

// FindByStatus 返回处于指定状态的订单。
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.itemScope(ctx).Where("status = ?", string(status)).Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find orders by status")
	}
	return toDomainList(models)
}

// FindByPaymentIntentID 根据支付引用查找订单。
func (r *GormOrderRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	var model OrderModel
	err := r.itemScope(ctx).First(&model, "orders.payment_intent_id = ?", intentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "find order by payment intent")
	}
	return toDomain(&model)
}

// FindBetween 返回创建时间落在 [start, end] 闭区间内的订单。
func (r *GormOrderRepository) FindBetween(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.itemScope(ctx).
		Where("created_at BETWEEN ? AND ?", start, end).
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find orders between dates")
	}
	return toDomainList(models)
}

// CountByStatus 统计处于指定状态的订单数。
func (r *GormOrderRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count orders by status")
	}
	return count, nil
}

// itemScope 预加载订单条目，并保持条目的插入顺序。
func (r *GormOrderRepository) itemScope(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func toDomainList(models []OrderModel) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		order, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
