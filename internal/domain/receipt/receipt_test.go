package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookorder/internal/domain/order"
)

func sampleOrder() (*order.Order, *order.Plan) {
	plan := &order.Plan{
		BuyerID: 1,
		Status:  order.StatusPending,
		Total:   5300,
		Lines: []order.PlanLine{
			{BookID: 11, AuthorID: 1, Title: "Go语言圣经", Quantity: 2, UnitPrice: 2500, LineTotal: 5000},
			{BookID: 12, AuthorID: 2, Title: "数据密集型应用", Quantity: 1, UnitPrice: 300, LineTotal: 300},
		},
	}
	o := order.NewOrder("ORD1700000000000001", plan, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC))
	o.ID = 42
	return o, plan
}

func TestFromOrder(t *testing.T) {
	o, plan := sampleOrder()

	r := FromOrder(o, plan, "buyer@example.com")
	assert.Equal(t, uint(42), r.OrderID)
	assert.Equal(t, "ORD1700000000000001", r.OrderNo)
	assert.Equal(t, int64(5300), r.Total)
	require.Len(t, r.Lines, 2)
	assert.Equal(t, Line{BookID: 11, Title: "Go语言圣经", Quantity: 2, UnitPrice: 2500, LineTotal: 5000}, r.Lines[0])
	assert.Equal(t, o.CreatedAt, r.PlacedAt)
}

func TestRender(t *testing.T) {
	o, plan := sampleOrder()

	t.Run("正常渲染", func(t *testing.T) {
		msg, err := Render(FromOrder(o, plan, "buyer@example.com"))
		require.NoError(t, err)

		assert.Equal(t, "buyer@example.com", msg.To)
		assert.Equal(t, Subject, msg.Subject)
		assert.Contains(t, msg.Body, "ORD1700000000000001")
		assert.Contains(t, msg.Body, "Book ID")
		assert.Contains(t, msg.Body, "Unit Price")
		assert.Contains(t, msg.Body, "25.00")
		assert.Contains(t, msg.Body, "50.00")
		assert.Contains(t, msg.Body, "53.00")
		assert.Contains(t, msg.Body, "2024-05-01 08:30:00")
	})

	t.Run("缺少邮箱", func(t *testing.T) {
		_, err := Render(FromOrder(o, plan, ""))
		assert.ErrorIs(t, err, ErrNoContact)
	})
}
