package gateway

import (
	"fmt"
	"strings"

	clcfg "chartlink/internal/config"
	"chartlink/internal/gateway/binance"
	"chartlink/internal/market"
)

func NewSourceFromConfig(cfg *clcfg.Config) (market.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	active := cfg.Market.ResolveActiveSource()
	name := strings.ToLower(active.Name)
	switch name {
	case "", "binance", "binance-futures":
		return binance.New(binance.Config{
			RESTBaseURL:  active.RESTBaseURL,
			ProxyEnabled: active.Proxy.Enabled,
			RESTProxyURL: active.Proxy.RESTURL,
			WSProxyURL:   active.Proxy.WSURL,
		})
	default:
		return nil, fmt.Errorf("unsupported market source: %s", active.Name)
	}
}
