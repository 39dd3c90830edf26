// internal/service/order/application/dto.go
package application

// CreateOrderRequest 是创建订单用例的输入数据。
// 商品快照（名称、单价）在创建时由库存存储解析，这里只携带引用和数量。
type CreateOrderRequest struct {
	UserID string            `json:"userId"`
	Items  []CreateOrderItem `json:"items"`
}

// CreateOrderItem 是创建请求中的一个条目。
type CreateOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
