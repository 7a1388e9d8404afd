package logic

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
	"tradequest-api/pkg/portfolio"
)

type PlaceOrderLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPlaceOrderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PlaceOrderLogic {
	return &PlaceOrderLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *PlaceOrderLogic) PlaceOrder(req *types.OrderRequest) (resp *types.OrderResponse, err error) {
	account, err := accountID(req.Account)
	if err != nil {
		return nil, err
	}
	class, symbol, err := parseTarget(req.Class, req.Symbol)
	if err != nil {
		return nil, err
	}
	side, err := portfolio.ParseSide(req.Side)
	if err != nil {
		return nil, errorx.BadRequest(err)
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, errorx.BadRequest(fmt.Errorf("invalid quantity %q", req.Quantity))
	}

	trade, err := l.svcCtx.Trader.Place(l.ctx, account, portfolio.Order{
		Symbol:   symbol,
		Class:    class,
		Side:     side,
		Quantity: qty,
	})
	if err != nil {
		return nil, err
	}
	l.Infof("order filled account=%s %s %s %s @ %s", account, trade.Side, trade.Quantity, trade.Symbol, trade.Price)
	acc := l.svcCtx.Trader.Book().Account(account)
	return &types.OrderResponse{Trade: toTrade(trade), Cash: acc.Cash.StringFixed(2)}, nil
}
