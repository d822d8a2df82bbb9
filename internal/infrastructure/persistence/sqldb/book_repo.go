package sqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/book"
	"github.com/xiebiao/bookorder/internal/domain/order"
)

// bookRepository 图书仓储实现
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 驱动错误统一经classify转换为应用错误
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := &BookModel{
		Title:    b.Title,
		Price:    b.Price,
		Stock:    b.Stock,
		AuthorID: b.AuthorID,
	}

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return classify(err, "book", 0, "创建图书失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := dbFromContext(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, classify(err, "book", id, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// LookupBooks 批量查询目录快照
// SELECT id, title, price, stock, author_id FROM books WHERE id IN (...)
func (r *bookRepository) LookupBooks(ctx context.Context, ids []uint) (map[uint]book.Snapshot, error) {
	result := make(map[uint]book.Snapshot, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var models []BookModel
	err := dbFromContext(ctx, r.db).
		Select("id", "title", "price", "stock", "author_id").
		Where("id IN ?", unique).
		Find(&models).Error
	if err != nil {
		return nil, classify(err, "book", 0, "查询图书目录失败")
	}

	for _, m := range models {
		result[m.ID] = book.Snapshot{
			ID:       m.ID,
			Title:    m.Title,
			Price:    m.Price,
			Stock:    m.Stock,
			AuthorID: m.AuthorID,
		}
	}
	return result, nil
}

// DecrementStock 条件扣减库存(原子操作)
// UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?
// WHERE条件在行锁之下对当前行重新求值,并发扣减不会把库存扣成负数
func (r *bookRepository) DecrementStock(ctx context.Context, id uint, quantity int) error {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&BookModel{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": db.NowFunc(),
		})
	if result.Error != nil {
		return classify(result.Error, "book", id, "扣减库存失败")
	}

	if result.RowsAffected == 0 {
		// 可能是库存不足,或者图书已被删除;再查一次确定原因
		var model BookModel
		err := db.Select("id", "stock").First(&model, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return order.NewWriteConflictError("book", id, nil)
			}
			return classify(err, "book", id, "查询图书失败")
		}
		return order.NewInsufficientStockError(id, model.Stock, quantity)
	}

	return nil
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:        model.ID,
		Title:     model.Title,
		Price:     model.Price,
		Stock:     model.Stock,
		AuthorID:  model.AuthorID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
