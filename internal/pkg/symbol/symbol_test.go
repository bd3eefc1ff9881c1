package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Symbol{Base: "BTC", Quote: "USDT"}, Parse("BTC/USDT"))
	assert.Equal(t, Symbol{Base: "BTC", Quote: "USDT"}, Parse("btcusdt"))
	assert.Equal(t, Symbol{Base: "ETH", Quote: "BTC"}, Parse("ETHBTC"))
	// 合约标记在冒号处截断
	assert.Equal(t, Symbol{Base: "BTC", Quote: "USDT"}, Parse("BTC/USDT:USDT"))
	assert.Equal(t, Symbol{}, Parse(""))
	assert.Equal(t, Symbol{}, Parse("USDT"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "BTC/USDT", Normalize("btcusdt"))
	assert.Equal(t, "ETH/USDT", Normalize("ETH/usdt"))
	assert.Equal(t, "", Normalize("bogus"))
}

func TestSymbolForms(t *testing.T) {
	s := Symbol{Base: "BTC", Quote: "USDT"}
	assert.Equal(t, "BTC/USDT", s.Internal())
	assert.Equal(t, "BTCUSDT", s.Binance())
	assert.Equal(t, "", Symbol{Base: "BTC"}.Internal())
}

func TestBinanceConverter(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Binance.ToExchange("btc/usdt"))
	assert.Equal(t, "BTCUSDT", Binance.ToExchange(" BTCUSDT "))
}
