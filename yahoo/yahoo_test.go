package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {"currency": "EUR", "regularMarketPrice": 621.5, "regularMarketTime": 1748774400},
      "timestamp": [1748601600, 1748688000, 1748774400],
      "indicators": {"quote": [{"close": [610.0, null, 621.5]}]}
    }],
    "error": null
  }
}`

func chartServer(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithClient(srv.URL, srv.Client())
}

func TestFetchQuotes(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval: %q", r.URL.Query().Get("interval"))
		}
		fmt.Fprint(w, chartPayload)
	})

	quotes, err := p.FetchQuotes(context.Background(), []string{"ASML.AS"})
	if err != nil {
		t.Fatal(err)
	}
	q, ok := quotes["ASML.AS"]
	if !ok {
		t.Fatal("symbol missing from result")
	}
	if q.Price.String() != "621.5" || q.Currency != "EUR" {
		t.Errorf("quote: %+v", q)
	}
	if q.QuotedAt.Unix() != 1748774400 {
		t.Errorf("quoted at %v", q.QuotedAt)
	}
}

func TestFetchQuotesUnknownSymbolAbsent(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	quotes, err := p.FetchQuotes(context.Background(), []string{"NOPE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 0 {
		t.Errorf("got %v", quotes)
	}
}

func TestFetchQuotesChartError(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found"}}}`)
	})
	quotes, err := p.FetchQuotes(context.Background(), []string{"NOPE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 0 {
		t.Errorf("got %v", quotes)
	}
}

func TestFetchQuotesFallsBackToLastClose(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
  "chart": {
    "result": [{
      "meta": {"currency": "EUR"},
      "timestamp": [1748601600, 1748688000],
      "indicators": {"quote": [{"close": [610.0, null]}]}
    }],
    "error": null
  }
}`)
	})
	quotes, err := p.FetchQuotes(context.Background(), []string{"ASML.AS"})
	if err != nil {
		t.Fatal(err)
	}
	if q := quotes["ASML.AS"]; q.Price.String() != "610" {
		t.Errorf("quote: %+v", q)
	}
}

func TestFetchDailyHistory(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("range"); got != "1mo" {
			t.Errorf("range: %q, want 1mo", got)
		}
		fmt.Fprint(w, chartPayload)
	})

	rows, err := p.FetchDailyHistory(context.Background(), "ASML.AS", 30)
	if err != nil {
		t.Fatal(err)
	}
	// The null close is skipped.
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Price.String() != "610" || rows[1].Price.String() != "621.5" {
		t.Errorf("rows: %+v", rows)
	}
}

func TestFetchDailyHistoryNoData(t *testing.T) {
	p := chartServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := p.FetchDailyHistory(context.Background(), "NOPE", 30); err == nil {
		t.Error("no error for throttled history")
	}
}

func TestInferCurrency(t *testing.T) {
	cases := map[string]string{
		"600519.SS": "CNY",
		"0700.HK":   "HKD",
		"7203.T":    "JPY",
		"VOD.L":     "GBP",
		"AAPL":      "USD",
	}
	for symbol, want := range cases {
		if got := inferCurrency(symbol); got != want {
			t.Errorf("%s: got %s, want %s", symbol, got, want)
		}
	}
}

func TestHistoryRange(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{{3, "5d"}, {30, "1mo"}, {90, "3mo"}, {180, "6mo"}, {365, "1y"}}
	for _, c := range cases {
		if got := historyRange(c.days); got != c.want {
			t.Errorf("%d days: got %s, want %s", c.days, got, c.want)
		}
	}
}
