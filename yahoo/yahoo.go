// Package yahoo fetches quotes and daily history from the Yahoo Finance
// chart endpoint.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	portfolio "github.com/smoky96/portfolio"
)

// Provider implements portfolio.QuoteProvider against the chart API.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New returns a provider for the given chart endpoint, for example
// "https://query1.finance.yahoo.com/v8/finance/chart". An empty baseURL
// falls back to that default.
func New(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), client: dailyClient()}
}

// NewWithClient is New with a caller-supplied http client. Tests use it to
// point at a local server without the disk cache.
func NewWithClient(baseURL string, client *http.Client) *Provider {
	p := New(baseURL)
	p.client = client
	return p
}

func (p *Provider) Name() string { return "yahoo" }

// inferCurrency guesses the trading currency from the symbol suffix, for
// responses whose metadata lacks one.
func inferCurrency(symbol string) string {
	upper := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(upper, ".SS"), strings.HasSuffix(upper, ".SZ"):
		return "CNY"
	case strings.HasSuffix(upper, ".HK"):
		return "HKD"
	case strings.HasSuffix(upper, ".T"):
		return "JPY"
	case strings.HasSuffix(upper, ".L"):
		return "GBP"
	}
	return "USD"
}

// jpath evaluates a jsonpath expression, unwrapping single-element lists.
func jpath(doc any, path string) (any, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil || v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, true
}

func (p *Provider) chartURL(symbol, rng string) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", rng)
	return fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())
}

// fetchChart retrieves one symbol's chart document. A dead status or an
// error marker in the payload both come back as errNoData.
func (p *Provider) fetchChart(ctx context.Context, symbol, rng string) (any, error) {
	var doc any
	if err := jwget(ctx, p.client, p.chartURL(symbol, rng), &doc); err != nil {
		return nil, err
	}
	if v, ok := jpath(doc, "$.chart.error"); ok && v != nil {
		return nil, errNoData
	}
	if _, ok := jpath(doc, "$.chart.result[0]"); !ok {
		return nil, errNoData
	}
	return doc, nil
}

// FetchQuotes resolves the latest price per symbol. Symbols the endpoint
// knows nothing about are absent from the result; only transport failures
// abort the batch.
func (p *Provider) FetchQuotes(ctx context.Context, symbols []string) (map[string]portfolio.ProviderQuote, error) {
	out := make(map[string]portfolio.ProviderQuote, len(symbols))
	for _, symbol := range symbols {
		pq, err := p.fetchQuote(ctx, symbol)
		if errors.Is(err, errNoData) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot fetch quote for %q: %w", symbol, err)
		}
		out[symbol] = pq
	}
	return out, nil
}

func (p *Provider) fetchQuote(ctx context.Context, symbol string) (portfolio.ProviderQuote, error) {
	doc, err := p.fetchChart(ctx, symbol, "5d")
	if err != nil {
		return portfolio.ProviderQuote{}, err
	}

	price, ok := jpath(doc, "$.chart.result[0].meta.regularMarketPrice")
	if !ok {
		// No live price in the metadata: fall back to the newest close.
		closes, cok := closesOf(doc)
		for i := len(closes) - 1; i >= 0 && cok; i-- {
			if closes[i] != nil {
				price, ok = closes[i], true
				break
			}
		}
	}
	raw, isNum := price.(float64)
	if !ok || !isNum {
		return portfolio.ProviderQuote{}, errNoData
	}

	currency := inferCurrency(symbol)
	if c, ok := jpath(doc, "$.chart.result[0].meta.currency"); ok {
		if s, ok := c.(string); ok && s != "" {
			currency = strings.ToUpper(s)
		}
	}
	quotedAt := time.Now().UTC()
	if ts, ok := jpath(doc, "$.chart.result[0].meta.regularMarketTime"); ok {
		if epoch, ok := ts.(float64); ok {
			quotedAt = time.Unix(int64(epoch), 0).UTC()
		}
	}

	return portfolio.ProviderQuote{
		Price:    decimal.NewFromFloat(raw),
		Currency: currency,
		QuotedAt: quotedAt,
	}, nil
}

// FetchDailyHistory returns one close per trading day covering up to
// lookbackDays back.
func (p *Provider) FetchDailyHistory(ctx context.Context, symbol string, lookbackDays int) ([]portfolio.ProviderQuote, error) {
	doc, err := p.fetchChart(ctx, symbol, historyRange(lookbackDays))
	if err != nil {
		if errors.Is(err, errNoData) {
			return nil, fmt.Errorf("no history for %q: %w", symbol, err)
		}
		return nil, fmt.Errorf("cannot fetch history for %q: %w", symbol, err)
	}

	tsRaw, err := jsonpath.Get("$.chart.result[0].timestamp", doc)
	if err != nil {
		return nil, fmt.Errorf("no timestamps for %q: %w", symbol, errNoData)
	}
	timestamps, _ := tsRaw.([]any)
	closes, ok := closesOf(doc)
	if !ok || len(closes) == 0 {
		return nil, fmt.Errorf("no closes for %q: %w", symbol, errNoData)
	}

	currency := inferCurrency(symbol)
	if c, ok := jpath(doc, "$.chart.result[0].meta.currency"); ok {
		if s, ok := c.(string); ok && s != "" {
			currency = strings.ToUpper(s)
		}
	}

	var out []portfolio.ProviderQuote
	for i, c := range closes {
		if c == nil || i >= len(timestamps) {
			continue
		}
		price, pok := c.(float64)
		epoch, eok := timestamps[i].(float64)
		if !pok || !eok {
			continue
		}
		out = append(out, portfolio.ProviderQuote{
			Price:    decimal.NewFromFloat(price),
			Currency: currency,
			QuotedAt: time.Unix(int64(epoch), 0).UTC(),
		})
	}
	return out, nil
}

func closesOf(doc any) ([]any, bool) {
	v, err := jsonpath.Get("$.chart.result[0].indicators.quote[0].close", doc)
	if err != nil {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// historyRange maps a day count onto the ranges the endpoint accepts.
func historyRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 92:
		return "3mo"
	case days <= 183:
		return "6mo"
	default:
		return "1y"
	}
}
