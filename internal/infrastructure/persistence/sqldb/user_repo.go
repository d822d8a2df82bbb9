package sqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/order"
	"github.com/xiebiao/bookorder/internal/domain/user"
)

// userRepository 用户仓储实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
// 注意：返回的是domain层的接口类型，不是具体类型（依赖倒置）
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

// Create 创建用户
// 邮箱唯一性由数据库UNIQUE索引保证（而非应用层SELECT再INSERT）
func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	model := &UserModel{
		Email:    u.Email,
		Nickname: u.Nickname,
		Balance:  u.Balance,
	}

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return user.ErrEmailDuplicate
		}
		return classify(err, "user", 0, "创建用户失败")
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找用户
func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var model UserModel
	err := dbFromContext(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, classify(err, "user", id, "查询用户失败")
	}
	return toUserEntity(&model), nil
}

// DecrementBalance 条件扣款
// UPDATE users SET balance = balance - ? WHERE id = ? AND balance >= ?
func (r *userRepository) DecrementBalance(ctx context.Context, id uint, amount int64) error {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&UserModel{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": db.NowFunc(),
		})
	if result.Error != nil {
		return classify(result.Error, "user", id, "扣减余额失败")
	}

	// 校验阶段余额是够的,这里扣不动说明中间被并发修改过;重试时重新校验会给出准确的余额不足
	if result.RowsAffected == 0 {
		return order.NewWriteConflictError("user", id, nil)
	}
	return nil
}

// toUserEntity GORM模型 → 领域实体
func toUserEntity(model *UserModel) *user.User {
	return &user.User{
		ID:        model.ID,
		Email:     model.Email,
		Nickname:  model.Nickname,
		Balance:   model.Balance,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
