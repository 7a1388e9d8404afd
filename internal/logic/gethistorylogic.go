package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

type GetHistoryLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetHistoryLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetHistoryLogic {
	return &GetHistoryLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetHistoryLogic) GetHistory(req *types.HistoryRequest) (resp *types.Series, err error) {
	class, symbol, err := parseTarget(req.Class, req.Symbol)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	series, err := l.svcCtx.Market.History(l.ctx, class, symbol, period, requestOptions(req.Demo)...)
	if err != nil {
		return nil, err
	}
	out := toSeries(series)
	return &out, nil
}
