// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type MarketSymbolRequest struct {
	Class  string `path:"class"`
	Symbol string `path:"symbol"`
	Demo   bool   `form:"demo,optional"`
}

type OverviewRequest struct {
	Class  string `path:"class"`
	Symbol string `path:"symbol"`
	Period string `form:"period,optional"`
	Demo   bool   `form:"demo,optional"`
}

type HistoryRequest struct {
	Class  string `path:"class"`
	Symbol string `path:"symbol"`
	Period string `form:"period,optional"`
	Demo   bool   `form:"demo,optional"`
}

type AssetsRequest struct {
	Class string `path:"class"`
	Limit int    `form:"limit,default=10"`
	Demo  bool   `form:"demo,optional"`
}

type AccountRequest struct {
	Account string `path:"account"`
}

type OrderRequest struct {
	Account  string `path:"account"`
	Class    string `json:"class"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity string `json:"quantity"`
}

type Quote struct {
	Symbol           string   `json:"symbol"`
	Id               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Class            string   `json:"class"`
	Currency         string   `json:"currency"`
	Price            float64  `json:"price"`
	Change24h        float64  `json:"change24h"`
	ChangePercent24h float64  `json:"changePercent24h"`
	Volume24h        *float64 `json:"volume24h,omitempty"`
	MarketCap        *float64 `json:"marketCap,omitempty"`
	MarketCapRank    *int     `json:"marketCapRank,omitempty"`
	High24h          *float64 `json:"high24h,omitempty"`
	Low24h           *float64 `json:"low24h,omitempty"`
	High52w          *float64 `json:"high52w,omitempty"`
	Low52w           *float64 `json:"low52w,omitempty"`
	Sentiment        string   `json:"sentiment"`
	ConfidenceScore  float64  `json:"confidenceScore"`
	Provider         string   `json:"provider"`
	FetchedAt        int64    `json:"fetchedAt"`
	Synthetic        bool     `json:"synthetic"`
}

type PricePoint struct {
	Timestamp int64    `json:"timestamp"`
	Price     float64  `json:"price"`
	Volume    *float64 `json:"volume,omitempty"`
}

type Series struct {
	Symbol    string       `json:"symbol"`
	Class     string       `json:"class"`
	Period    string       `json:"period"`
	Currency  string       `json:"currency"`
	Provider  string       `json:"provider"`
	Points    []PricePoint `json:"points"`
	Synthetic bool         `json:"synthetic"`
}

type Indicators struct {
	Rsi        *float64 `json:"rsi"`
	SmaShort   float64  `json:"smaShort"`
	SmaLong    float64  `json:"smaLong"`
	Support    float64  `json:"support"`
	Resistance float64  `json:"resistance"`
	Current    float64  `json:"current"`
	Trend      string   `json:"trend"`
	Signals    []string `json:"signals"`
	Samples    int      `json:"samples"`
}

type OverviewResponse struct {
	Quote      Quote      `json:"quote"`
	Series     Series     `json:"series"`
	Indicators Indicators `json:"indicators"`
	Synthetic  bool       `json:"synthetic"`
}

type Asset struct {
	Symbol string  `json:"symbol"`
	Id     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Class  string  `json:"class"`
	Price  float64 `json:"price,omitempty"`
}

type AssetsResponse struct {
	Class  string  `json:"class"`
	Assets []Asset `json:"assets"`
}

type Trade struct {
	Id          string `json:"id"`
	Symbol      string `json:"symbol"`
	Class       string `json:"class"`
	Side        string `json:"side"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	RealizedPnl string `json:"realizedPnl"`
	Currency    string `json:"currency"`
	ExecutedAt  int64  `json:"executedAt"`
}

type Holding struct {
	Symbol      string `json:"symbol"`
	Class       string `json:"class"`
	Quantity    string `json:"quantity"`
	AvgCost     string `json:"avgCost"`
	Price       string `json:"price"`
	MarketValue string `json:"marketValue"`
	Unrealized  string `json:"unrealized"`
	Stale       bool   `json:"stale"`
}

type PortfolioResponse struct {
	Account     string    `json:"account"`
	Currency    string    `json:"currency"`
	InitialCash string    `json:"initialCash"`
	Cash        string    `json:"cash"`
	Realized    string    `json:"realized"`
	MarketValue string    `json:"marketValue"`
	Unrealized  string    `json:"unrealized"`
	Equity      string    `json:"equity"`
	ReturnPct   string    `json:"returnPct"`
	Holdings    []Holding `json:"holdings"`
	Trades      []Trade   `json:"trades"`
}

type ProfileStats struct {
	TotalTrades      int      `json:"totalTrades"`
	SuccessfulTrades int      `json:"successfulTrades"`
	SuccessRate      string   `json:"successRate"`
	FavoriteAssets   []string `json:"favoriteAssets"`
}

type ProfilePortfolio struct {
	TotalInvested string `json:"totalInvested"`
	Performance   string `json:"performance"`
	Currency      string `json:"currency"`
}

type ProfileResponse struct {
	Account     string           `json:"account"`
	Level       int              `json:"level"`
	Experience  int              `json:"experience"`
	NextLevelXp int              `json:"nextLevelXp"`
	Badges      []string         `json:"badges"`
	Stats       ProfileStats     `json:"stats"`
	Portfolio   ProfilePortfolio `json:"portfolio"`
}

type OrderResponse struct {
	Trade Trade  `json:"trade"`
	Cash  string `json:"cash"`
}

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
