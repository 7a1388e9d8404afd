package logic

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

type GetPortfolioLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetPortfolioLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetPortfolioLogic {
	return &GetPortfolioLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetPortfolioLogic) GetPortfolio(req *types.AccountRequest) (resp *types.PortfolioResponse, err error) {
	account, err := accountID(req.Account)
	if err != nil {
		return nil, err
	}
	v, err := l.svcCtx.Trader.Value(l.ctx, account)
	if err != nil {
		return nil, err
	}
	resp = &types.PortfolioResponse{
		Account:     v.ID,
		Currency:    v.Currency,
		InitialCash: v.InitialCash.StringFixed(2),
		Cash:        v.Cash.StringFixed(2),
		Realized:    v.Realized.StringFixed(2),
		MarketValue: v.MarketValue.StringFixed(2),
		Unrealized:  v.Unrealized.StringFixed(2),
		Equity:      v.Equity.StringFixed(2),
		ReturnPct:   v.ReturnPct.String(),
		Holdings:    make([]types.Holding, 0, len(v.Holdings)),
		Trades:      make([]types.Trade, 0, len(v.Trades)),
	}
	for _, h := range v.Holdings {
		resp.Holdings = append(resp.Holdings, types.Holding{
			Symbol:      h.Symbol,
			Class:       string(h.Class),
			Quantity:    h.Quantity.String(),
			AvgCost:     h.AvgCost.StringFixed(2),
			Price:       h.Price.StringFixed(2),
			MarketValue: h.MarketValue.StringFixed(2),
			Unrealized:  h.Unrealized.StringFixed(2),
			Stale:       h.Stale,
		})
	}
	for i := range v.Trades {
		resp.Trades = append(resp.Trades, toTrade(&v.Trades[i]))
	}
	return resp, nil
}

func accountID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > 64 {
		return "", errorx.BadRequest(fmt.Errorf("account must be 1-64 characters"))
	}
	return id, nil
}
