package receipt

import (
	"context"
	"time"

	"github.com/xiebiao/bookorder/internal/domain/order"
)

// Line 回执中的一行
type Line struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// Receipt 下单回执
// 在事务提交之后构造,字段全部来自已落库的订单,可以安全地序列化后交给消息队列
type Receipt struct {
	OrderID  uint      `json:"order_id"`
	OrderNo  string    `json:"order_no"`
	Contact  string    `json:"contact"` // 买家邮箱
	Lines    []Line    `json:"lines"`
	Total    int64     `json:"total"`
	PlacedAt time.Time `json:"placed_at"`
}

// FromOrder 由订单和下单计划生成回执
// 书名取自计划中的目录快照,订单明细本身不保存书名
func FromOrder(o *order.Order, plan *order.Plan, contact string) Receipt {
	titles := make(map[uint]string, len(plan.Lines))
	for _, l := range plan.Lines {
		titles[l.BookID] = l.Title
	}

	lines := make([]Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = Line{
			BookID:    item.BookID,
			Title:     titles[item.BookID],
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	return Receipt{
		OrderID:  o.ID,
		OrderNo:  o.OrderNo,
		Contact:  contact,
		Lines:    lines,
		Total:    o.Total,
		PlacedAt: o.CreatedAt,
	}
}

// Scheduler 回执投递调度器
// Schedule必须立即返回,投递失败只记录日志,不影响下单结果
type Scheduler interface {
	Schedule(ctx context.Context, r Receipt)
}

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer 邮件发送接口
//
//go:generate mockgen -destination=mocks/mailer_mock.go -package=mocks . Mailer
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
