// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
// 列表查询在无匹配时返回空切片，计数返回 0，都不会报错。
type OrderRepository interface {
	// Save 保存一个订单聚合。ID 为零时执行创建并回填 ID；
	// 否则执行带乐观版本检查的更新，版本竞争失败返回 ErrVersionConflict。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id uint64) (*Order, error)

	// FindByUserID 返回某个用户的所有订单，按创建时间倒序。
	FindByUserID(ctx context.Context, userID string) ([]*Order, error)

	// FindAll 返回全部订单。
	FindAll(ctx context.Context) ([]*Order, error)

	// FindByStatus 返回处于指定状态的订单。
	FindByStatus(ctx context.Context, status Status) ([]*Order, error)

	// FindByPaymentIntentID 根据支付引用查找订单，不存在时返回 ErrOrderNotFound。
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)

	// FindBetween 返回创建时间落在 [start, end] 闭区间内的订单。
	FindBetween(ctx context.Context, start, end time.Time) ([]*Order, error)

	// CountByStatus 统计处于指定状态的订单数。
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
