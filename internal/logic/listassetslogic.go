package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
	"tradequest-api/pkg/market"
)

const maxAssetsLimit = 250

type ListAssetsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListAssetsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListAssetsLogic {
	return &ListAssetsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListAssetsLogic) ListAssets(req *types.AssetsRequest) (resp *types.AssetsResponse, err error) {
	class, err := market.ParseAssetClass(req.Class)
	if err != nil {
		return nil, errorx.BadRequest(err)
	}
	if req.Limit < 0 || req.Limit > maxAssetsLimit {
		return nil, errorx.BadRequest(fmt.Errorf("limit must be between 0 and %d", maxAssetsLimit))
	}
	assets, err := l.svcCtx.Market.ListAssets(l.ctx, class, req.Limit, requestOptions(req.Demo)...)
	if err != nil {
		return nil, err
	}
	resp = &types.AssetsResponse{Class: string(class), Assets: make([]types.Asset, 0, len(assets))}
	for _, a := range assets {
		resp.Assets = append(resp.Assets, types.Asset{
			Symbol: a.Symbol,
			Id:     a.ID,
			Name:   a.Name,
			Class:  string(a.Class),
			Price:  a.Price,
		})
	}
	return resp, nil
}
