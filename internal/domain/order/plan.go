package order

import (
	"math"
	"sort"

	"github.com/xiebiao/bookorder/internal/domain/book"
	"github.com/xiebiao/bookorder/pkg/money"
)

// LineRequest 下单请求中的一行
type LineRequest struct {
	BookID   uint
	Quantity int
	Status   string // 声明的订单状态,可为空
}

// Line 规整后的明细:每本书只出现一次
type Line struct {
	BookID   uint
	Quantity int
}

// NormalizeLines 校验并规整下单明细
//  1. 明细不能为空,数量必须为正
//  2. 声明的状态必须合法且各行一致,全部为空时为pending
//  3. 同一本书出现多次时合并数量,保持首次出现的顺序,库存校验才能看到真实需求量;合并后溢出int时整单拒绝
func NormalizeLines(reqs []LineRequest) ([]Line, Status, error) {
	if len(reqs) == 0 {
		return nil, "", ErrEmptyOrder
	}

	var (
		status   Status
		declared bool
		lines    = make([]Line, 0, len(reqs))
		index    = make(map[uint]int, len(reqs))
	)
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, "", NewInvalidQuantityError(r.BookID, r.Quantity)
		}

		if r.Status != "" {
			st, err := ParseStatus(r.Status)
			if err != nil {
				return nil, "", err
			}
			if declared && st != status {
				return nil, "", NewConflictingStatusError(status, st)
			}
			status, declared = st, true
		}

		if i, ok := index[r.BookID]; ok {
			if lines[i].Quantity > math.MaxInt-r.Quantity {
				return nil, "", NewQuantityOverflowError(r.BookID)
			}
			lines[i].Quantity += r.Quantity
			continue
		}
		index[r.BookID] = len(lines)
		lines = append(lines, Line{BookID: r.BookID, Quantity: r.Quantity})
	}

	if !declared {
		status = StatusPending
	}
	return lines, status, nil
}

// BookIDs 明细涉及的图书ID(去重、升序)
func BookIDs(lines []Line) []uint {
	ids := make([]uint, 0, len(lines))
	seen := make(map[uint]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.BookID]; ok {
			continue
		}
		seen[l.BookID] = struct{}{}
		ids = append(ids, l.BookID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PlanLine 定价后的明细
type PlanLine struct {
	BookID    uint
	AuthorID  uint
	Title     string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// Plan 校验通过的下单计划,提交阶段据此记账
type Plan struct {
	BuyerID uint
	Status  Status
	Lines   []PlanLine
	Total   int64
}

// AuthorRevenue 某作者在本单中应得的销售额
type AuthorRevenue struct {
	AuthorID uint
	Amount   int64
}

// BuildPlan 定价与校验,不做任何I/O
//
// 顺序:
//  1. 任何一本书不在目录中 → UnknownBook,整单拒绝
//  2. 逐行计算 LineTotal = Quantity × UnitPrice,并校验库存
//  3. Total = Σ LineTotal
//  4. 余额 < Total → InsufficientFunds
func BuildPlan(buyerID uint, status Status, lines []Line, catalog map[uint]book.Snapshot, balance int64) (*Plan, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	for _, l := range lines {
		if _, ok := catalog[l.BookID]; !ok {
			return nil, NewUnknownBookError(l.BookID)
		}
	}

	plan := &Plan{
		BuyerID: buyerID,
		Status:  status,
		Lines:   make([]PlanLine, 0, len(lines)),
	}
	for _, l := range lines {
		snap := catalog[l.BookID]

		lineTotal, ok := money.MulQuantity(snap.Price, l.Quantity)
		if !ok {
			return nil, ErrAmountOverflow
		}
		if l.Quantity > snap.Stock {
			return nil, NewInsufficientStockError(l.BookID, snap.Stock, l.Quantity)
		}

		total, ok := money.Add(plan.Total, lineTotal)
		if !ok {
			return nil, ErrAmountOverflow
		}
		plan.Total = total
		plan.Lines = append(plan.Lines, PlanLine{
			BookID:    l.BookID,
			AuthorID:  snap.AuthorID,
			Title:     snap.Title,
			Quantity:  l.Quantity,
			UnitPrice: snap.Price,
			LineTotal: lineTotal,
		})
	}

	if balance < plan.Total {
		return nil, NewInsufficientFundsError(balance, plan.Total)
	}
	return plan, nil
}

// LinesByBookID 按图书ID升序返回明细副本
// 提交阶段按固定顺序加行锁,并发订单之间不会互相死锁
func (p *Plan) LinesByBookID() []PlanLine {
	out := make([]PlanLine, len(p.Lines))
	copy(out, p.Lines)
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out
}

// RevenueByAuthor 按作者汇总明细金额,作者ID升序
// 各作者金额之和恒等于Total
func (p *Plan) RevenueByAuthor() []AuthorRevenue {
	sums := make(map[uint]int64)
	for _, l := range p.Lines {
		sums[l.AuthorID] += l.LineTotal
	}

	out := make([]AuthorRevenue, 0, len(sums))
	for id, amount := range sums {
		out = append(out, AuthorRevenue{AuthorID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthorID < out[j].AuthorID })
	return out
}
