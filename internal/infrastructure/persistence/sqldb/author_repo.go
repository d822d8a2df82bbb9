package sqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/author"
	"github.com/xiebiao/bookorder/internal/domain/order"
)

type authorRepository struct {
	db *gorm.DB
}

// NewAuthorRepository 创建作者仓储
func NewAuthorRepository(db *gorm.DB) author.Repository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(ctx context.Context, a *author.Author) error {
	model := &AuthorModel{
		Name:       a.Name,
		Email:      a.Email,
		TotalSales: a.TotalSales,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return classify(err, "author", 0, "创建作者失败")
	}

	a.ID = model.ID
	a.CreatedAt = model.CreatedAt
	a.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *authorRepository) FindByID(ctx context.Context, id uint) (*author.Author, error) {
	var model AuthorModel
	err := dbFromContext(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, classify(err, "author", id, "查询作者失败")
	}

	return &author.Author{
		ID:         model.ID,
		Name:       model.Name,
		Email:      model.Email,
		TotalSales: model.TotalSales,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}

// AddRevenue 累加销售额
// UPDATE authors SET total_sales = total_sales + ? WHERE id = ?
func (r *authorRepository) AddRevenue(ctx context.Context, id uint, amount int64) error {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&AuthorModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_sales": gorm.Expr("total_sales + ?", amount),
			"updated_at":  db.NowFunc(),
		})
	if result.Error != nil {
		return classify(result.Error, "author", id, "累加作者销售额失败")
	}
	if result.RowsAffected == 0 {
		return order.NewWriteConflictError("author", id, nil)
	}
	return nil
}
