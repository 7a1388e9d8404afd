package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/logic"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

func GetProfileHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AccountRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err))
			return
		}

		l := logic.NewGetProfileLogic(r.Context(), svcCtx)
		resp, err := l.GetProfile(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
