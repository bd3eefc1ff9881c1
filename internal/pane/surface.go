package pane

import "chartlink/internal/market"

// HoverEvent 是十字光标移动通知。Cleared=true 表示指针离开了数据区。
type HoverEvent struct {
	Time    int64
	Cleared bool
}

// VisibleRange 是面板当前可见的时间窗口（domain 级，毫秒时间戳）。
type VisibleRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// DomainPoint 是一个图表坐标点（时间 + 价格 + 数据集内索引）。
type DomainPoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
	Index int     `json:"index"`
}

// ScreenPoint 是像素坐标点。
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface 是外部渲染面的契约。渲染面由宿主应用注入并负责生命周期，
// 同步子系统只持有引用。
//
// 注意：渲染面无法区分“用户驱动”和“程序驱动”的变更，程序调用
// ShowCrosshair/ShowIndexRange 同样可能触发 OnHover/OnVisibleRange
// 通知，环路防护由上层（link.Hub）负责。
type Surface interface {
	// ApplyData 在数据集整体替换时接收新K线（升序）。
	ApplyData(candles []market.Candle)

	// ShowCrosshair 在第 index 根K线上显示十字光标。
	ShowCrosshair(index int)
	// HideCrosshair 隐藏十字光标。
	HideCrosshair()

	// ShowIndexRange 显示 [from, to] 索引窗口。
	ShowIndexRange(from, to int)

	// DomainFromScreen 把像素坐标转为 (时间, 价格)。坐标落在绘图区外
	// 或尚未绑定数据时返回 ok=false。
	DomainFromScreen(x, y float64) (ts int64, price float64, ok bool)
	// ScreenFromDomain 是逆向映射。点当前滚出可见区时返回 ok=false。
	ScreenFromDomain(ts int64, price float64) (x, y float64, ok bool)

	// OnHover / OnVisibleRange 注册通知回调，返回注销函数。
	// 注册与注销都必须幂等，且在面板销毁过程中调用也安全。
	OnHover(fn func(HoverEvent)) (cancel func())
	OnVisibleRange(fn func(VisibleRange)) (cancel func())
}
