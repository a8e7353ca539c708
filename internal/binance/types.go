package binance

import (
	"fmt"
	"strconv"
)

// Kline represents a candlestick
type Kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// OrderFill is one execution reported in a FULL spot order response
type OrderFill struct {
	Price           float64 `json:"price,string"`
	Qty             float64 `json:"qty,string"`
	Commission      float64 `json:"commission,string"`
	CommissionAsset string  `json:"commissionAsset"`
}

// OrderResponse represents a response from placing a spot order
type OrderResponse struct {
	Symbol              string      `json:"symbol"`
	OrderId             int64       `json:"orderId"`
	ClientOrderId       string      `json:"clientOrderId"`
	TransactTime        int64       `json:"transactTime"`
	Price               float64     `json:"price,string"`
	OrigQty             float64     `json:"origQty,string"`
	ExecutedQty         float64     `json:"executedQty,string"`
	CummulativeQuoteQty float64     `json:"cummulativeQuoteQty,string"`
	Status              string      `json:"status"`
	Type                string      `json:"type"`
	Side                string      `json:"side"`
	Fills               []OrderFill `json:"fills"`
}

// FuturesOrderResponse represents a response from placing a USDⓈ-M futures order
type FuturesOrderResponse struct {
	Symbol        string  `json:"symbol"`
	OrderId       int64   `json:"orderId"`
	ClientOrderId string  `json:"clientOrderId"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Side          string  `json:"side"`
	AvgPrice      float64 `json:"avgPrice,string"`
	OrigQty       float64 `json:"origQty,string"`
	ExecutedQty   float64 `json:"executedQty,string"`
	CumQuote      float64 `json:"cumQuote,string"`
	UpdateTime    int64   `json:"updateTime"`
}

// SymbolFilter is one entry of a symbol's exchange filters.
// Spot reports minNotional, futures MIN_NOTIONAL reports notional.
type SymbolFilter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize,omitempty"`
	MinQty      string `json:"minQty,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
	Notional    string `json:"notional,omitempty"`
}

// SymbolInfo represents trading rules for a symbol
type SymbolInfo struct {
	Symbol  string         `json:"symbol"`
	Status  string         `json:"status"`
	Filters []SymbolFilter `json:"filters"`
}

// ExchangeInfo represents exchange trading rules
type ExchangeInfo struct {
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// APIError is an error payload returned by the exchange
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error (http %d, code %d): %s", e.StatusCode, e.Code, e.Msg)
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}

func parseKlines(raw [][]interface{}) ([]Kline, error) {
	klines := make([]Kline, 0, len(raw))
	for i, r := range raw {
		if len(r) < 7 {
			return nil, fmt.Errorf("kline %d: expected at least 7 fields, got %d", i, len(r))
		}
		openTime, _ := r[0].(float64)
		closeTime, _ := r[6].(float64)
		klines = append(klines, Kline{
			OpenTime:  int64(openTime),
			Open:      parseFloat(r[1]),
			High:      parseFloat(r[2]),
			Low:       parseFloat(r[3]),
			Close:     parseFloat(r[4]),
			Volume:    parseFloat(r[5]),
			CloseTime: int64(closeTime),
		})
	}
	return klines, nil
}
