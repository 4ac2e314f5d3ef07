package news

import (
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

func TestFromAlpaca(t *testing.T) {
	created := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	items := []marketdata.News{
		{
			Headline:  "Apple ships new chip",
			Summary:   "Quick take",
			Author:    "Wire Desk",
			URL:       "https://example.com/a",
			CreatedAt: created,
			Symbols:   []string{"AAPL"},
		},
	}

	articles := fromAlpaca(items)
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	a := articles[0]
	if a.Headline != "Apple ships new chip" || a.Summary != "Quick take" || a.URL != "https://example.com/a" {
		t.Errorf("article = %+v", a)
	}
	if a.Source != "alpaca" {
		t.Errorf("source = %q, want alpaca", a.Source)
	}
	if !a.CreatedAt.Equal(created) {
		t.Errorf("created at = %v, want %v", a.CreatedAt, created)
	}
}

func TestFromAlpacaEmpty(t *testing.T) {
	if got := fromAlpaca(nil); len(got) != 0 {
		t.Errorf("got %d articles, want 0", len(got))
	}
}
