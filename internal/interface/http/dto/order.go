package dto

// PlaceOrderItem 下单明细
// quantity不在这里做范围校验,数量非法由领域层返回40903
type PlaceOrderItem struct {
	BookID   uint   `json:"book_id" binding:"required" example:"1"`
	Quantity int    `json:"quantity" example:"2"`
	Status   string `json:"status" binding:"omitempty,max=20" example:"pending"` // 可选:pending/processing
}

// PlaceOrderRequest HTTP下单请求
// 幂等键通过请求头Idempotency-Key传递
type PlaceOrderRequest struct {
	Items []PlaceOrderItem `json:"items" binding:"required,min=1,max=100,dive"`
}

// PlaceOrderResponse HTTP下单响应
type PlaceOrderResponse struct {
	OrderID     uint   `json:"order_id" example:"1001"`
	OrderNo     string `json:"order_no" example:"ORD1715673600123456"`
	Total       int64  `json:"total" example:"5000"`           // 总金额(分)
	TotalAmount string `json:"total_amount" example:"50.00"` // 总金额(元)
	Status      string `json:"status" example:"pending"`
	CreatedAt   string `json:"created_at" example:"2024-05-14 10:30:00"`
	Replayed    bool   `json:"replayed" example:"false"` // 幂等重放时为true
}
