// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 哨兵错误。查询类调用方用 errors.Is 来分支，而不是匹配错误文案。
var (
	// ErrOrderNotFound 表示订单不存在。对调用方来说这是一个"缺失信号"，
	// 查询和更新路径都不把它当作异常处理。
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound 表示商品无法在库存存储中解析。
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock 表示库存不足，扣减被库存存储原子地拒绝。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVersionConflict 表示乐观并发检查失败：
	// 两个并发的状态变更竞争同一行，后写的一方输掉。
	ErrVersionConflict = errors.New("order version conflict")
)

// ValidationError 表示订单数据不合法：空条目、非法数量、商品不存在、
// 库存不足、总额非正。这类错误直接返回给调用方，从不自动重试。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError 构造一个带格式化原因的 ValidationError。
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation 判断 err 是否是（或包装了）ValidationError。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GatewayError 表示支付网关调用失败。它只反馈给支付操作的调用方，
// 不会触发任何订单状态的变更。
type GatewayError struct {
	Op  string // create / confirm / retrieve / cancel
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
