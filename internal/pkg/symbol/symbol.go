package symbol

import (
	"strings"
)

// Symbol 是拆分后的交易对。
type Symbol struct {
	Base  string
	Quote string
}

// Internal 返回规范形式 BASE/QUOTE。
func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance 返回币安风格的紧凑形式 BASEQUOTE。
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Parse 接受 BTC/USDT、btcusdt、BTC/USDT:USDT 等写法，拆出 base/quote。
// 无法识别的输入返回零值。
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}

	// 冒号后缀是交易所的合约标记，先截掉
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}

	quoteCurrencies := []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}

	return Symbol{}
}

// Normalize 把任意写法归一成 BASE/QUOTE，无法识别返回空串。
func Normalize(s string) string {
	return Parse(s).Internal()
}

// BinanceConverter 把规范形式转成币安 REST/WS 接口期望的写法。
type BinanceConverter struct{}

func (BinanceConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	return strings.ReplaceAll(s, "/", "")
}

var Binance = BinanceConverter{}
