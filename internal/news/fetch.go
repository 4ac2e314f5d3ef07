// Package news fetches recent articles for a symbol from the Alpaca
// marketdata API.
package news

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Article is a single news article.
type Article struct {
	Headline  string
	Summary   string
	Source    string
	URL       string
	CreatedAt time.Time
}

// AlpacaFetcher fetches articles through an Alpaca marketdata client.
type AlpacaFetcher struct {
	client *marketdata.Client
}

// NewAlpacaFetcher wraps an Alpaca marketdata client.
func NewAlpacaFetcher(client *marketdata.Client) *AlpacaFetcher {
	return &AlpacaFetcher{client: client}
}

// Fetch returns up to limit articles mentioning symbol within [start, end],
// oldest first.
func (f *AlpacaFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := f.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      start,
		End:        end,
		TotalLimit: limit,
		Sort:       marketdata.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching news for %s: %w", symbol, err)
	}
	return fromAlpaca(items), nil
}

// fromAlpaca converts Alpaca news items. The API carries no source field, so
// articles are tagged with the provider name.
func fromAlpaca(items []marketdata.News) []Article {
	articles := make([]Article, 0, len(items))
	for _, a := range items {
		articles = append(articles, Article{
			Headline:  a.Headline,
			Summary:   a.Summary,
			Source:    "alpaca",
			URL:       a.URL,
			CreatedAt: a.CreatedAt,
		})
	}
	return articles
}
