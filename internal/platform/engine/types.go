package engine

import (
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// apiMarket is the engine's wire representation of a market.
type apiMarket struct {
	ID            string    `json:"id"`
	ConditionID   string    `json:"conditionId"`
	Question      string    `json:"question"`
	Creator       string    `json:"creator"`
	YesPositionID string    `json:"yesPositionId"`
	NoPositionID  string    `json:"noPositionId"`
	YesPrice      float64   `json:"yesPrice"`
	NoPrice       float64   `json:"noPrice"`
	Volume24h     float64   `json:"volume24h"`
	Resolved      bool      `json:"resolved"`
	Outcome       *int      `json:"outcome,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (m apiMarket) toDomain() domain.Market {
	return domain.Market{
		ID:            m.ID,
		ConditionID:   m.ConditionID,
		Question:      m.Question,
		Creator:       m.Creator,
		YesPositionID: m.YesPositionID,
		NoPositionID:  m.NoPositionID,
		YesPrice:      m.YesPrice,
		NoPrice:       m.NoPrice,
		Volume24h:     m.Volume24h,
		Resolved:      m.Resolved,
		Outcome:       m.Outcome,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// apiStats is the engine's wire representation of market statistics.
type apiStats struct {
	MarketID   string    `json:"marketId"`
	LastPrice  float64   `json:"lastPrice"`
	BestBid    float64   `json:"bestBid"`
	BestAsk    float64   `json:"bestAsk"`
	Volume24h  float64   `json:"volume24h"`
	TradeCount int64     `json:"tradeCount"`
	OpenOrders int64     `json:"openOrders"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s apiStats) toDomain() domain.MarketStats {
	return domain.MarketStats(s)
}

// apiPricePoint is one price-history sample.
type apiPricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	YesPrice  float64   `json:"yesPrice"`
	Volume    float64   `json:"volume"`
}

// apiBookLevel is one aggregated orderbook level. Sizes and prices are in
// atomic micro units on the wire.
type apiBookLevel struct {
	Price      int64 `json:"price"`
	Size       int64 `json:"size"`
	OrderCount int   `json:"orderCount"`
}

// apiOrderbook is a full snapshot for one market.
type apiOrderbook struct {
	MarketID  string         `json:"marketId"`
	Bids      []apiBookLevel `json:"bids"`
	Asks      []apiBookLevel `json:"asks"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (b apiOrderbook) toDomain() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		MarketID:  b.MarketID,
		Bids:      make([]domain.BookLevel, 0, len(b.Bids)),
		Asks:      make([]domain.BookLevel, 0, len(b.Asks)),
		UpdatedAt: b.UpdatedAt,
	}
	for _, l := range b.Bids {
		snap.Bids = append(snap.Bids, domain.BookLevel{PriceMicro: l.Price, SizeMicro: l.Size, OrderCount: l.OrderCount})
	}
	for _, l := range b.Asks {
		snap.Asks = append(snap.Asks, domain.BookLevel{PriceMicro: l.Price, SizeMicro: l.Size, OrderCount: l.OrderCount})
	}
	return snap.WithCumulative()
}

// apiTrade is the engine's wire representation of a trade.
type apiTrade struct {
	ID           string    `json:"id"`
	MarketID     string    `json:"marketId"`
	ConditionID  string    `json:"conditionId"`
	PositionID   string    `json:"positionId"`
	Maker        string    `json:"maker"`
	Taker        string    `json:"taker"`
	MakerOrderID string    `json:"makerOrderId"`
	TakerOrderID string    `json:"takerOrderId"`
	Side         string    `json:"side"`
	Price        int64     `json:"price"`
	Size         int64     `json:"size"`
	TxID         string    `json:"txId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (t apiTrade) toDomain() domain.Trade {
	return domain.Trade{
		ID:           t.ID,
		MarketID:     t.MarketID,
		ConditionID:  t.ConditionID,
		PositionID:   t.PositionID,
		Maker:        t.Maker,
		Taker:        t.Taker,
		MakerOrderID: t.MakerOrderID,
		TakerOrderID: t.TakerOrderID,
		Side:         domain.OrderSide(t.Side),
		PriceMicro:   t.Price,
		SizeMicro:    t.Size,
		TxID:         t.TxID,
		Timestamp:    t.Timestamp,
	}
}

// orderPayload is the signed-order submission body. All seven signed fields
// travel exactly as they were hashed; the engine re-derives the digest and
// verifies the signature against the public key.
type orderPayload struct {
	MarketID       string `json:"marketId"`
	Maker          string `json:"maker"`
	Side           string `json:"side"`
	Outcome        string `json:"outcome"`
	GivePositionID string `json:"givePositionId"`
	TakePositionID string `json:"takePositionId"`
	GiveAmount     uint64 `json:"giveAmount"`
	TakeAmount     uint64 `json:"takeAmount"`
	Price          int64  `json:"price"`
	Size           int64  `json:"size"`
	Salt           string `json:"salt"`
	Expiration     uint64 `json:"expiration"`
	Signature      string `json:"signature"`
	PublicKey      string `json:"publicKey"`
}

// apiOrderResult is the engine's response to an order submission.
type apiOrderResult struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"orderId"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Filled       int64  `json:"filled"`
	Resting      int64  `json:"resting"`
	RestingPrice int64  `json:"restingPrice"`
}

func (r apiOrderResult) toDomain() domain.OrderResult {
	return domain.OrderResult{
		Success:           r.Success,
		OrderID:           r.OrderID,
		Status:            domain.OrderStatus(r.Status),
		Message:           r.Message,
		FilledMicro:       r.Filled,
		RestingMicro:      r.Resting,
		RestingPriceMicro: r.RestingPrice,
	}
}

// apiPlanLevel and apiPlan mirror the engine's smart-order preview response.
type apiPlanLevel struct {
	Price int64 `json:"price"`
	Size  int64 `json:"size"`
	Cost  int64 `json:"cost"`
}

type apiPlan struct {
	MarketID     string         `json:"marketId"`
	Side         string         `json:"side"`
	Outcome      string         `json:"outcome"`
	Feasible     bool           `json:"feasible"`
	Reason       string         `json:"reason,omitempty"`
	Levels       []apiPlanLevel `json:"levels"`
	TotalSize    int64          `json:"totalSize"`
	TotalCost    int64          `json:"totalCost"`
	Resting      int64          `json:"resting"`
	RestingPrice int64          `json:"restingPrice"`
}

func (p apiPlan) toDomain() domain.ExecutionPlan {
	plan := domain.ExecutionPlan{
		MarketID:          p.MarketID,
		Side:              domain.OrderSide(p.Side),
		Outcome:           domain.Outcome(p.Outcome),
		Feasible:          p.Feasible,
		Reason:            p.Reason,
		Levels:            make([]domain.PlanLevel, 0, len(p.Levels)),
		TotalSizeMicro:    p.TotalSize,
		TotalCostMicro:    p.TotalCost,
		RestingMicro:      p.Resting,
		RestingPriceMicro: p.RestingPrice,
	}
	for _, l := range p.Levels {
		plan.Levels = append(plan.Levels, domain.PlanLevel{PriceMicro: l.Price, SizeMicro: l.Size, CostMicro: l.Cost})
	}
	return plan
}

// apiDispute mirrors an oracle dispute record.
type apiDispute struct {
	QuestionID      string     `json:"questionId"`
	MarketID        string     `json:"marketId"`
	Disputer        string     `json:"disputer"`
	ProposedOutcome int        `json:"proposedOutcome"`
	Bond            int64      `json:"bond"`
	Status          string     `json:"status"`
	RaisedAt        time.Time  `json:"raisedAt"`
	VotingEndsAt    *time.Time `json:"votingEndsAt,omitempty"`
}

func (d apiDispute) toDomain() domain.Dispute {
	return domain.Dispute{
		QuestionID:      d.QuestionID,
		MarketID:        d.MarketID,
		Disputer:        d.Disputer,
		ProposedOutcome: d.ProposedOutcome,
		BondMicro:       d.Bond,
		Status:          domain.DisputeStatus(d.Status),
		RaisedAt:        d.RaisedAt,
		VotingEndsAt:    d.VotingEndsAt,
	}
}

// apiVote mirrors a recorded dispute vote.
type apiVote struct {
	QuestionID string    `json:"questionId"`
	Voter      string    `json:"voter"`
	Choice     int       `json:"choice"`
	Weight     int64     `json:"weight"`
	CastAt     time.Time `json:"castAt"`
}

func (v apiVote) toDomain() domain.Vote {
	return domain.Vote(v)
}
