package sqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/order"
)

// orderRepository 订单仓储实现
// 1. Order和OrderItem是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 事务通过context传递
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM会自动保存关联的Items(通过foreignKey);订单号冲突按写冲突返回,由用例重新生成订单号重试
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return classify(err, "order", 0, "创建订单失败")
	}

	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

// FindByID 根据ID查找订单
// Preload("Items")会执行:
// 1. SELECT * FROM orders WHERE id = ?
// 2. SELECT * FROM order_items WHERE order_id IN (?)
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := dbFromContext(ctx, r.db).Preload("Items").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, classify(err, "order", id, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// FindByOrderNo 根据订单号查找订单
func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := dbFromContext(ctx, r.db).Preload("Items").Where("order_no = ?", orderNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, classify(err, "order", 0, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			BookID:    item.BookID,
			AuthorID:  item.AuthorID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	return &OrderModel{
		OrderNo:   o.OrderNo,
		UserID:    o.UserID,
		Total:     o.Total,
		Status:    string(o.Status),
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.OrderItem{
			ID:        item.ID,
			OrderID:   item.OrderID,
			BookID:    item.BookID,
			AuthorID:  item.AuthorID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	return &order.Order{
		ID:        model.ID,
		OrderNo:   model.OrderNo,
		UserID:    model.UserID,
		Total:     model.Total,
		Status:    order.Status(model.Status),
		Items:     items,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
