package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

type GetProfileLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetProfileLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetProfileLogic {
	return &GetProfileLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetProfileLogic) GetProfile(req *types.AccountRequest) (resp *types.ProfileResponse, err error) {
	account, err := accountID(req.Account)
	if err != nil {
		return nil, err
	}
	p, err := l.svcCtx.Trader.Profile(l.ctx, account)
	if err != nil {
		return nil, err
	}
	return &types.ProfileResponse{
		Account:     p.Account,
		Level:       p.Level,
		Experience:  p.Experience,
		NextLevelXp: p.NextLevelXP,
		Badges:      p.Badges,
		Stats: types.ProfileStats{
			TotalTrades:      p.Stats.TotalTrades,
			SuccessfulTrades: p.Stats.SuccessfulTrades,
			SuccessRate:      p.Stats.SuccessRate.StringFixed(2),
			FavoriteAssets:   p.Stats.FavoriteAssets,
		},
		Portfolio: types.ProfilePortfolio{
			TotalInvested: p.TotalInvested.StringFixed(2),
			Performance:   p.Performance.StringFixed(2),
			Currency:      l.svcCtx.Trader.Book().Currency(),
		},
	}, nil
}
