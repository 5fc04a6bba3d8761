// market-fantasy-league/services/oracle_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// symbolToProviderID maps draftable ticker symbols to the oracle's token ids.
// Unmapped symbols are served as ghost records, never as errors.
var symbolToProviderID = map[string]string{
	"BTC":    "bitcoin",
	"ETH":    "ethereum",
	"USDT":   "tether",
	"BNB":    "binancecoin",
	"SOL":    "solana",
	"XRP":    "ripple",
	"USDC":   "usd-coin",
	"ADA":    "cardano",
	"DOGE":   "dogecoin",
	"TRX":    "tron",
	"AVAX":   "avalanche-2",
	"LINK":   "chainlink",
	"TON":    "the-open-network",
	"SHIB":   "shiba-inu",
	"DOT":    "polkadot",
	"SUI":    "sui",
	"BCH":    "bitcoin-cash",
	"NEAR":   "near",
	"LTC":    "litecoin",
	"PEPE":   "pepe",
	"UNI":    "uniswap",
	"APT":    "aptos",
	"ICP":    "internet-computer",
	"ETC":    "ethereum-classic",
	"RENDER": "render-token",
	"XLM":    "stellar",
	"POL":    "matic-network",
	"FET":    "fetch-ai",
	"ARB":    "arbitrum",
	"OP":     "optimism",
	"ATOM":   "cosmos",
	"FIL":    "filecoin",
	"IMX":    "immutable-x",
	"INJ":    "injective-protocol",
	"HBAR":   "hedera-hashgraph",
	"VET":    "vechain",
	"WIF":    "dogwifcoin",
	"BONK":   "bonk",
	"JUP":    "jupiter-exchange-solana",
	"AAVE":   "aave",
	"ALGO":   "algorand",
	"SEI":    "sei-network",
	"TIA":    "celestia",
	"PYTH":   "pyth-network",
	"GRT":    "the-graph",
}

// MarketData is one oracle quote. Ghost records carry zeroed prices, a nil
// rank and Ghost=true so a delisted token contributes exactly 0% to a score
// instead of crashing the scorer or dropping a roster slot.
type MarketData struct {
	TokenID       string  `json:"token_id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	ImageURL      string  `json:"image_url"`
	CurrentPrice  float64 `json:"current_price"`
	Change24hPct  float64 `json:"change_24h_pct"`
	Change7dPct   float64 `json:"change_7d_pct"`
	MarketCap     float64 `json:"market_cap"`
	Volume24h     float64 `json:"volume_24h"`
	MarketCapRank *int    `json:"market_cap_rank"`
	Ghost         bool    `json:"ghost,omitempty"`
}

// marketsRow mirrors the oracle's /coins/markets response shape.
type marketsRow struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Image          string   `json:"image"`
	CurrentPrice   float64  `json:"current_price"`
	PriceChange24h *float64 `json:"price_change_percentage_24h"`
	PriceChange7d  *float64 `json:"price_change_percentage_7d_in_currency"`
	MarketCap      float64  `json:"market_cap"`
	TotalVolume    float64  `json:"total_volume"`
	MarketCapRank  *int     `json:"market_cap_rank"`
}

type PriceOracleClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewPriceOracleClient(baseURL, apiKey string) *PriceOracleClient {
	return &PriceOracleClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ProviderID resolves a ticker symbol to the oracle id, if mapped.
func ProviderID(symbol string) (string, bool) {
	id, ok := symbolToProviderID[strings.ToUpper(symbol)]
	return id, ok
}

// GhostRecord builds the placeholder quote for a symbol the oracle cannot
// serve. Exactly one record per requested symbol is the contract, never fewer.
func GhostRecord(symbol string) MarketData {
	id, _ := ProviderID(symbol)
	if id == "" {
		id = strings.ToLower(symbol)
	}
	return MarketData{
		TokenID: id,
		Symbol:  strings.ToUpper(symbol),
		Name:    "Token not found",
		Ghost:   true,
	}
}

func (c *PriceOracleClient) fetchMarkets(ctx context.Context, query url.Values) ([]marketsRow, error) {
	u, err := url.Parse(c.BaseURL + "/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse oracle URL: %w", err)
	}
	query.Set("vs_currency", "usd")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call price oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("price oracle returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []marketsRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode oracle response: %w", err)
	}
	return rows, nil
}

func rowToMarketData(r marketsRow) MarketData {
	md := MarketData{
		TokenID:       r.ID,
		Symbol:        strings.ToUpper(r.Symbol),
		Name:          r.Name,
		ImageURL:      r.Image,
		CurrentPrice:  r.CurrentPrice,
		MarketCap:     r.MarketCap,
		Volume24h:     r.TotalVolume,
		MarketCapRank: r.MarketCapRank,
	}
	if r.PriceChange24h != nil {
		md.Change24hPct = *r.PriceChange24h
	}
	if r.PriceChange7d != nil {
		md.Change7dPct = *r.PriceChange7d
	}
	return md
}

// TopTokens fetches the top n tokens by market cap. Used only by the admin
// reset / roster-refresh path; upstream failure propagates to the caller so
// the whole operation aborts with no partial roster.
func (c *PriceOracleClient) TopTokens(ctx context.Context, n int) ([]MarketData, error) {
	if n <= 0 || n > 250 {
		n = 100
	}
	q := url.Values{}
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(n))
	q.Set("page", "1")
	q.Set("price_change_percentage", "24h,7d")

	rows, err := c.fetchMarkets(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]MarketData, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToMarketData(r))
	}
	return out, nil
}

// MarketDataByIDs fetches quotes for the given provider ids and returns
// exactly one record per requested id, ghosting the ones the oracle omits.
func (c *PriceOracleClient) MarketDataByIDs(ctx context.Context, ids []string) (map[string]MarketData, error) {
	if len(ids) == 0 {
		return map[string]MarketData{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("per_page", strconv.Itoa(len(ids)))
	q.Set("price_change_percentage", "24h,7d")

	rows, err := c.fetchMarkets(ctx, q)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]MarketData, len(ids))
	for _, r := range rows {
		byID[r.ID] = rowToMarketData(r)
	}
	return byID, nil
}

// MarketDataBySymbols resolves symbols through the static lookup table and
// returns one record per requested symbol: ghosts for unmapped symbols and
// for mapped symbols the oracle did not return. On transport failure the
// whole result set degrades to ghosts rather than propagating, so a single
// user's read never hard-fails on a transient oracle outage.
func (c *PriceOracleClient) MarketDataBySymbols(ctx context.Context, symbols []string) []MarketData {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if id, ok := ProviderID(s); ok {
			ids = append(ids, id)
		}
	}

	var byID map[string]MarketData
	if len(ids) > 0 {
		var err error
		byID, err = c.MarketDataByIDs(ctx, ids)
		if err != nil {
			log.Printf("[Oracle] degraded to ghost records for %d symbol(s): %v", len(symbols), err)
			byID = nil
		}
	}

	out := make([]MarketData, 0, len(symbols))
	for _, s := range symbols {
		id, mapped := ProviderID(s)
		if !mapped {
			out = append(out, GhostRecord(s))
			continue
		}
		md, ok := byID[id]
		if !ok {
			out = append(out, GhostRecord(s))
			continue
		}
		md.Symbol = strings.ToUpper(s)
		out = append(out, md)
	}
	return out
}
