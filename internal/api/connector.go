package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"crypto-movers/internal/model"
	"crypto-movers/internal/service"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	exchangeInfoPath = "/fapi/v1/exchangeInfo"
	klinesPath       = "/fapi/v1/klines"

	statusTrading = "TRADING"
)

// exchangeInfo 只解析 /exchangeInfo 中需要的字段
type exchangeInfo struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"`
	QuoteAsset   string `json:"quoteAsset"`
	ContractType string `json:"contractType"`
}

// Connector 交易所公共 REST 行情接口 (Binance USDT-M futures 格式)
type Connector struct {
	client *resty.Client
	logger *zap.Logger
}

// NewConnector 创建连接器，timeout 作用于每个请求
func NewConnector(restURL string, timeout time.Duration, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(restURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	logger.Debug("Connector initialized", zap.String("URL", restURL), zap.Duration("timeout", timeout))

	return &Connector{
		client: client,
		logger: logger,
	}
}

// TradingSymbols 返回计价资产为 quote 且处于交易状态的合约，按名称排序
func (c *Connector) TradingSymbols(ctx context.Context, quote string) ([]model.Symbol, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(exchangeInfoPath)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch exchange info: status %d: %s", resp.StatusCode(), resp.String())
	}

	var info exchangeInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}

	symbols := make([]model.Symbol, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != statusTrading || !strings.EqualFold(s.QuoteAsset, quote) {
			continue
		}
		symbols = append(symbols, model.Symbol(s.Symbol))
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	c.logger.Info("Trading symbols loaded",
		zap.String("quote", quote),
		zap.Int("total", len(info.Symbols)),
		zap.Int("selected", len(symbols)))
	return symbols, nil
}

// Klines 拉取最近 limit 根 K 线，按开盘时间升序返回
func (c *Connector) Klines(ctx context.Context, symbol model.Symbol, interval string, limit int) ([]model.KLine, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol.String(),
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		Get(klinesPath)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch klines %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}

	// [ openTime, "open", "high", "low", "close", "volume", closeTime, ... ]
	var rows [][]json.Number
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("decode klines %s: %w", symbol, err)
	}

	klines := make([]model.KLine, 0, len(rows))
	for i, row := range rows {
		k, err := parseKLineRow(symbol, interval, row)
		if err != nil {
			// 任一行无法解析，整个交易对本轮不可用
			return nil, fmt.Errorf("decode klines %s: row %d: %w", symbol, i, err)
		}
		klines = append(klines, k)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("fetch klines %s: no kline data", symbol)
	}

	sort.Slice(klines, func(i, j int) bool { return klines[i].StartTime.Before(klines[j].StartTime) })
	return klines, nil
}

func parseKLineRow(symbol model.Symbol, interval string, row []json.Number) (model.KLine, error) {
	if len(row) < 7 {
		return model.KLine{}, fmt.Errorf("short row: %d fields", len(row))
	}

	openTime, err := service.StringToInt64(row[0].String())
	if err != nil {
		return model.KLine{}, fmt.Errorf("open time: %w", err)
	}
	closeTime, err := service.StringToInt64(row[6].String())
	if err != nil {
		return model.KLine{}, fmt.Errorf("close time: %w", err)
	}

	var ohlcv [5]float64
	for i := range ohlcv {
		// 交易所以字符串给出价格，decimal 解析避免丢失精度
		d, err := decimal.NewFromString(row[i+1].String())
		if err != nil {
			return model.KLine{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		ohlcv[i] = d.InexactFloat64()
	}

	return model.KLine{
		Symbol:    symbol,
		Interval:  interval,
		Open:      ohlcv[0],
		High:      ohlcv[1],
		Low:       ohlcv[2],
		Close:     ohlcv[3],
		Volume:    ohlcv[4],
		StartTime: time.UnixMilli(openTime).UTC(),
		EndTime:   time.UnixMilli(closeTime).UTC(),
	}, nil
}
