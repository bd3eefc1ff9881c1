package market

import (
	"fmt"
	"sort"
)

// Match 是一次最近时间查找的结果。
type Match struct {
	Index  int
	Candle Candle
}

// TimeIndex 是单个图表面板当前数据集的只读时间索引。
// 构建后不再变化；数据集整体替换时重建。
type TimeIndex struct {
	candles []Candle
}

// NewTimeIndex 构建时间索引。输入通常已按 OpenTime 升序（数据源保证），
// 乱序时会先排序。出现重复 OpenTime 属于调用方契约错误，直接 panic，
// 否则二分查找结果不可信。
func NewTimeIndex(candles []Candle) *TimeIndex {
	owned := make([]Candle, len(candles))
	copy(owned, candles)
	if !sort.SliceIsSorted(owned, func(i, j int) bool {
		return owned[i].OpenTime < owned[j].OpenTime
	}) {
		sort.Slice(owned, func(i, j int) bool {
			return owned[i].OpenTime < owned[j].OpenTime
		})
	}
	for i := 1; i < len(owned); i++ {
		if owned[i].OpenTime == owned[i-1].OpenTime {
			panic(fmt.Sprintf("market: time index requires strictly increasing open times, duplicate at %d", owned[i].OpenTime))
		}
	}
	return &TimeIndex{candles: owned}
}

// Len 返回索引内的K线数量。
func (ix *TimeIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.candles)
}

// At 返回第 i 根K线。越界属于调用方错误，依赖底层 slice 的 panic。
func (ix *TimeIndex) At(i int) Candle {
	return ix.candles[i]
}

// Candles 返回索引内的全部K线（只读约定，调用方不得修改）。
func (ix *TimeIndex) Candles() []Candle {
	if ix == nil {
		return nil
	}
	return ix.candles
}

// Nearest 返回 OpenTime 距 ts 最近的K线。超出边界时收敛到首/尾元素，
// 等距时取更早的一根。索引为空时返回 false。
func (ix *TimeIndex) Nearest(ts int64) (Match, bool) {
	if ix == nil || len(ix.candles) == 0 {
		return Match{}, false
	}
	n := len(ix.candles)
	pos := sort.Search(n, func(i int) bool {
		return ix.candles[i].OpenTime >= ts
	})
	switch {
	case pos == 0:
		return Match{Index: 0, Candle: ix.candles[0]}, true
	case pos == n:
		return Match{Index: n - 1, Candle: ix.candles[n-1]}, true
	}
	before := ix.candles[pos-1]
	after := ix.candles[pos]
	if ts-before.OpenTime <= after.OpenTime-ts {
		return Match{Index: pos - 1, Candle: before}, true
	}
	return Match{Index: pos, Candle: after}, true
}

// First 返回最早一根K线。
func (ix *TimeIndex) First() (Candle, bool) {
	if ix.Len() == 0 {
		return Candle{}, false
	}
	return ix.candles[0], true
}

// Last 返回最新一根K线。
func (ix *TimeIndex) Last() (Candle, bool) {
	if ix.Len() == 0 {
		return Candle{}, false
	}
	return ix.candles[len(ix.candles)-1], true
}
