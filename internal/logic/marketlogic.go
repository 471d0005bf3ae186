package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"algoforge-api/internal/svc"
	"algoforge-api/pkg/market"
)

// staleWarnAge is purely diagnostic: stale data is still served (that is the
// contract), but an old snapshot usually means the upstream has been failing.
const staleWarnAge = 2 * time.Minute

type MarketLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMarketLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarketLogic {
	return &MarketLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Market returns the latest captured snapshot regardless of age, or
// market.ErrNoSnapshot when no poll has ever succeeded. It never blocks on an
// in-flight poll.
func (l *MarketLogic) Market() (*market.Snapshot, error) {
	snapshot, age, err := l.svcCtx.Store.Read()
	if err != nil {
		return nil, err
	}
	if age > staleWarnAge {
		l.Infof("serving stale market snapshot age=%s", age)
	}
	return snapshot, nil
}
