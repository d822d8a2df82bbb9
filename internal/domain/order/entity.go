package order

import (
	"strings"
	"time"
)

// Status 订单状态
// 取值与订单履约系统共用,下单时由请求声明,缺省为pending
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// ParseStatus 解析声明的状态,空串视为pending
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusPending, nil
	}
	if !st.Valid() {
		return "", NewInvalidStatusError(s)
	}
	return st, nil
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Order 订单实体(聚合根)
// 与明细在同一事务中创建,下单核心不再修改
type Order struct {
	ID        uint
	OrderNo   string // 订单号(业务主键,全局唯一)
	UserID    uint   // 买家用户ID
	Total     int64  // 订单总金额(分),等于明细金额之和
	Status    Status
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem 订单明细项
// UnitPrice是下单时的价格快照,之后图书改价不影响历史订单
type OrderItem struct {
	ID        uint
	OrderID   uint
	BookID    uint
	AuthorID  uint
	Quantity  int
	UnitPrice int64 // 下单时单价(分)
	LineTotal int64 // Quantity × UnitPrice
}

// NewOrder 由校验通过的下单计划生成订单
func NewOrder(orderNo string, plan *Plan, now time.Time) *Order {
	items := make([]OrderItem, len(plan.Lines))
	for i, l := range plan.Lines {
		items[i] = OrderItem{
			BookID:    l.BookID,
			AuthorID:  l.AuthorID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return &Order{
		OrderNo:   orderNo,
		UserID:    plan.BuyerID,
		Total:     plan.Total,
		Status:    plan.Status,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CalculateTotal 按明细重新计算总金额
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotal
	}
	return total
}
