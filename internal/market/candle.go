package market

import "time"

// Candle 是一根K线。OpenTime 为毫秒时间戳，在单个数据集内严格递增且唯一。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// OpenAt 返回开盘时间。
func (c Candle) OpenAt() time.Time {
	return time.UnixMilli(c.OpenTime)
}

// IsZero 判断是否为零值K线。
func (c Candle) IsZero() bool {
	return c.OpenTime == 0 && c.Open == 0 && c.Close == 0 && c.Volume == 0
}
