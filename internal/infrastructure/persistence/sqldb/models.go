package sqldb

import (
	"time"
)

// 以下是infrastructure层的数据模型，包含GORM tag
// domain下的实体不依赖GORM，Repository负责两者之间的转换

// UserModel GORM用户模型
// 余额以"分"存储,CHECK约束是条件扣款之外的最后一道防线
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;size:100;not null;comment:邮箱(回执收件地址)"`
	Nickname  string    `gorm:"size:50;not null;comment:昵称"`
	Balance   int64     `gorm:"not null;default:0;check:chk_users_balance,balance >= 0;comment:余额(分)"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// AuthorModel GORM作者模型
type AuthorModel struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"size:100;not null;comment:作者名"`
	Email      string    `gorm:"size:100;comment:邮箱"`
	TotalSales int64     `gorm:"not null;default:0;comment:累计销售额(分)"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (AuthorModel) TableName() string {
	return "authors"
}

// BookModel GORM图书模型
// 价格使用int64存储"分"为单位(避免浮点数精度问题)
type BookModel struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"size:200;not null;comment:书名"`
	Price     int64     `gorm:"not null;comment:价格(分)"`
	Stock     int       `gorm:"not null;default:0;check:chk_books_stock,stock >= 0;comment:库存数量"`
	AuthorID  uint      `gorm:"index;not null;comment:作者ID"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// OrderModel GORM订单模型
// 1. 与OrderItemModel是一对多关系
// 2. OrderNo有唯一索引(业务主键)
type OrderModel struct {
	ID        uint             `gorm:"primaryKey"`
	OrderNo   string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID    uint             `gorm:"index;not null;comment:买家用户ID"`
	Total     int64            `gorm:"not null;comment:订单总金额(分)"`
	Status    string           `gorm:"index;size:20;not null;default:pending;comment:订单状态"`
	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time        `gorm:"index;comment:创建时间"`
	UpdatedAt time.Time        `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
// UnitPrice是下单时的价格快照,写入后不再修改
type OrderItemModel struct {
	ID        uint  `gorm:"primaryKey"`
	OrderID   uint  `gorm:"index;not null;comment:订单ID"`
	BookID    uint  `gorm:"index;not null;comment:图书ID"`
	AuthorID  uint  `gorm:"index;not null;comment:作者ID"`
	Quantity  int   `gorm:"not null;comment:购买数量"`
	UnitPrice int64 `gorm:"not null;comment:下单时单价(分)"`
	LineTotal int64 `gorm:"not null;comment:明细金额(分)"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}
