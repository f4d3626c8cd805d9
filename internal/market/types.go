package market

import (
	"encoding/json"
	"fmt"
	"time"
)

// Article is one news item as served by the news API.
type Article struct {
	Title       string        `json:"title"`
	Source      ArticleSource `json:"source"`
	PublishedAt time.Time     `json:"publishedAt"`
	Description string        `json:"description"`
}

type ArticleSource struct {
	Name string `json:"name"`
}

// PricePoint is one sample of a token's price history. On the wire it is a
// [timestampMs, price] pair, which is also the shape the dashboard consumes,
// so it round-trips as a pair rather than a keyed object.
type PricePoint struct {
	TimestampMs int64
	Price       float64
}

func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("price point is not a [timestamp, price] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("price point has %d elements, want 2", len(pair))
	}
	p.TimestampMs = int64(pair[0])
	p.Price = pair[1]
	return nil
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.TimestampMs), p.Price})
}

// Coin is one entry of the top-markets listing.
type Coin struct {
	ID                 string  `json:"id"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	CurrentPrice       float64 `json:"current_price"`
	PriceChange24hPerc float64 `json:"price_change_percentage_24h"`
}
