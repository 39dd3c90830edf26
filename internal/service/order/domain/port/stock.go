// internal/service/order/domain/port/stock.go
package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product 是库存存储中的商品视图。核心只关心 id、名称、单价和库存量。
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// StockStore 是商品库存的出站端口。
// Decrease 必须由实现方保证原子性（例如条件更新或脚本化的读改写），
// 库存永不为负是存储侧的约束，核心不重复实现。
type StockStore interface {
	// GetProduct 解析商品快照，不存在时返回 domain.ErrProductNotFound。
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// Decrease 原子地扣减库存。库存不足返回 domain.ErrInsufficientStock，
	// 商品不存在返回 domain.ErrProductNotFound。
	Decrease(ctx context.Context, productID string, quantity int) error

	// Increase 归还库存，是 Decrease 的补偿操作。
	Increase(ctx context.Context, productID string, quantity int) error
}
