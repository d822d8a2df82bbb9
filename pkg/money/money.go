// Package money 金额换算
//
// 系统内部一律用int64的"分"存储和计算，只有在展示（错误信息、响应、回执）
// 和解析外部输入时才转换为两位小数。
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale 小数位数
const Scale = 2

// Format 分 → "25.00"
func Format(cents int64) string {
	return decimal.New(cents, -Scale).StringFixed(Scale)
}

// Parse "25.00" → 2500
// 超过两位小数的输入直接拒绝，不做四舍五入
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("金额格式错误 %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal decimal → 分
func FromDecimal(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("金额最多两位小数: %s", d.String())
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("金额超出范围: %s", d.String())
	}
	return shifted.IntPart(), nil
}

// MulQuantity 单价 × 数量，溢出时返回false
func MulQuantity(unitPrice int64, quantity int) (int64, bool) {
	if quantity == 0 || unitPrice == 0 {
		return 0, true
	}
	q := int64(quantity)
	if unitPrice > math.MaxInt64/q {
		return 0, false
	}
	return unitPrice * q, true
}

// Add 加法，溢出时返回false
func Add(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
