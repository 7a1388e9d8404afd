package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/logic"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/types"
)

func GetQuoteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MarketSymbolRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err))
			return
		}

		l := logic.NewGetQuoteLogic(r.Context(), svcCtx)
		resp, err := l.GetQuote(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
