// internal/service/order/infrastructure/adapter/stock_redis_adapter.go
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"
)

// decreaseScript 原子地完成"查库存-扣库存"。
// KEYS[1]: 商品 hash, 例如 product:{sku-123}
// ARGV[1]: 扣减数量
// 返回: 1 扣减成功 / 0 库存不足 / -1 商品不存在
var decreaseScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 then
    return -1
end
local stock = tonumber(redis.call('hget', KEYS[1], 'stock'))
local want = tonumber(ARGV[1])
if not stock or stock < want then
    return 0
end
redis.call('hincrby', KEYS[1], 'stock', -want)
return 1
`)

// StockRedisAdapter 是 port.StockStore 的 Redis 实现。
// 商品以 hash 存储（name/price/stock），扣减走 Lua 脚本保证原子性，
// 库存永不为负由脚本侧守住。
type StockRedisAdapter struct {
	client *redis.Client
}

// NewStockRedisAdapter 创建库存存储适配器。
func NewStockRedisAdapter(client *redis.Client) *StockRedisAdapter {
	return &StockRedisAdapter{client: client}
}

func productKey(productID string) string {
	return fmt.Sprintf("product:{%s}", productID)
}

// GetProduct 解析商品快照。
func (a *StockRedisAdapter) GetProduct(ctx context.Context, productID string) (*port.Product, error) {
	fields, err := a.client.HGetAll(ctx, productKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("stock adapter failed to load product %s: %w", productID, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrProductNotFound
	}

	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return nil, fmt.Errorf("corrupt price for product %s: %w", productID, err)
	}
	stock, err := strconv.Atoi(fields["stock"])
	if err != nil {
		return nil, fmt.Errorf("corrupt stock for product %s: %w", productID, err)
	}

	return &port.Product{
		ID:    productID,
		Name:  fields["name"],
		Price: price,
		Stock: stock,
	}, nil
}

// Decrease 原子扣减库存。
func (a *StockRedisAdapter) Decrease(ctx context.Context, productID string, quantity int) error {
	result, err := decreaseScript.Run(ctx, a.client, []string{productKey(productID)}, quantity).Int()
	if err != nil {
		return fmt.Errorf("stock adapter failed to run decrease script: %w", err)
	}
	switch result {
	case 1:
		return nil
	case 0:
		return domain.ErrInsufficientStock
	case -1:
		return domain.ErrProductNotFound
	default:
		return fmt.Errorf("unknown result code from decrease script: %d", result)
	}
}

// Increase 归还库存，是 Decrease 的补偿操作。
func (a *StockRedisAdapter) Increase(ctx context.Context, productID string, quantity int) error {
	exists, err := a.client.Exists(ctx, productKey(productID)).Result()
	if err != nil {
		return fmt.Errorf("stock adapter failed to check product %s: %w", productID, err)
	}
	if exists == 0 {
		return domain.ErrProductNotFound
	}
	if err := a.client.HIncrBy(ctx, productKey(productID), "stock", int64(quantity)).Err(); err != nil {
		return fmt.Errorf("stock adapter failed to restore stock for %s: %w", productID, err)
	}
	return nil
}

// PrepareProduct (初始化和测试用) 写入一个商品的完整快照。
func (a *StockRedisAdapter) PrepareProduct(ctx context.Context, product port.Product) error {
	pipe := a.client.Pipeline()
	pipe.HSet(ctx, productKey(product.ID),
		"name", product.Name,
		"price", product.Price.String(),
		"stock", product.Stock,
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to prepare product %s: %w", product.ID, err)
	}
	return nil
}
