package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

type GetOverviewLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetOverviewLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetOverviewLogic {
	return &GetOverviewLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetOverviewLogic) GetOverview(req *types.OverviewRequest) (resp *types.OverviewResponse, err error) {
	class, symbol, err := parseTarget(req.Class, req.Symbol)
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	ov, err := l.svcCtx.Market.Overview(l.ctx, class, symbol, period, requestOptions(req.Demo)...)
	if err != nil {
		return nil, err
	}
	return &types.OverviewResponse{
		Quote:      toQuote(ov.Quote),
		Series:     toSeries(ov.Series),
		Indicators: toIndicators(ov.Indicators),
		Synthetic:  ov.Synthetic,
	}, nil
}
