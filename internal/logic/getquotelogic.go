package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

type GetQuoteLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetQuoteLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetQuoteLogic {
	return &GetQuoteLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetQuoteLogic) GetQuote(req *types.MarketSymbolRequest) (resp *types.Quote, err error) {
	class, symbol, err := parseTarget(req.Class, req.Symbol)
	if err != nil {
		return nil, err
	}
	q, err := l.svcCtx.Market.Quote(l.ctx, class, symbol, requestOptions(req.Demo)...)
	if err != nil {
		return nil, err
	}
	out := toQuote(q)
	return &out, nil
}
