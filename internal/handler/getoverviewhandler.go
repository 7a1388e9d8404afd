package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/logic"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

func GetOverviewHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OverviewRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err))
			return
		}

		l := logic.NewGetOverviewLogic(r.Context(), svcCtx)
		resp, err := l.GetOverview(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
