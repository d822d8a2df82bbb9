package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateOrderNo 生成订单号
// 格式:ORD + 时间戳(秒) + 6位随机数,如 ORD1699248000123456
// 唯一性最终由orders.order_no唯一索引保证,冲突时整单回滚并按写冲突重试
func GenerateOrderNo() string {
	return fmt.Sprintf("ORD%d%06d", time.Now().Unix(), rand.IntN(1000000))
}
