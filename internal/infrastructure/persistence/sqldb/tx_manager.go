package sqldb

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager 事务管理器
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 嵌套调用时GORM自动使用Savepoint
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// fn内的所有Repository操作都在同一事务中执行:fn返回error时ROLLBACK,返回nil时COMMIT
// 提交失败(死锁、序列化失败、ctx超时)同样按驱动错误分类返回
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    if err := bookRepo.DecrementStock(ctx, bookID, qty); err != nil {
//	        return err // 回滚
//	    }
//	    return orderRepo.Create(ctx, o) // nil则提交
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.dbFor(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return classify(err, "transaction", 0, "执行事务失败")
}

func (m *TxManager) dbFor(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, m.db)
}

// dbFromContext 从context获取事务DB,如果没有则使用默认DB
// 事务内的查询必须走这里,否则在单连接的SQLite上会等待自己持有的连接
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
