package svc

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "algoforge-api/internal/cache"
	"algoforge-api/internal/config"
	"algoforge-api/internal/hub"
	"algoforge-api/internal/model"
	marketpersist "algoforge-api/internal/persistence/market"
	"algoforge-api/pkg/journal"
	marketpkg "algoforge-api/pkg/market"
	_ "algoforge-api/pkg/market/providers/yahoo"
)

// errCacheMiss is the not-found sentinel handed to the go-zero cache node.
var errCacheMiss = errors.New("cache: key not found")

type ServiceContext struct {
	Config config.Config

	Store        *marketpkg.Store
	Hub          *hub.Hub
	Provider     marketpkg.Provider
	ProviderName string
	Poller       *marketpkg.Poller
	Persistence  *marketpersist.Service
	Journal      *journal.Writer

	// Optional infrastructure, nil/zero when not configured.
	DBConn               sqlx.SqlConn
	MarketQuotesModel    model.MarketQuotesModel
	MarketSnapshotsModel model.MarketSnapshotsModel
	Cache                gocache.Cache
	TTL                  cachekeys.TTLSet
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		Store:  marketpkg.NewStore(),
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}
	svc.Hub = hub.New(svc.Store)

	marketCfg := c.Market.Value
	if marketCfg == nil {
		marketCfg = config.MustLoadMarket()
	}
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build market providers: %v", err)
	}
	providerName := marketCfg.Default
	if providerName == "" {
		for name := range providers {
			providerName = name
			break
		}
	}
	provider, ok := providers[providerName]
	if !ok {
		log.Fatalf("default market provider %q not found", providerName)
	}
	svc.Provider = provider
	svc.ProviderName = providerName

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.MarketQuotesModel = model.NewMarketQuotesModel(conn)
		svc.MarketSnapshotsModel = model.NewMarketSnapshotsModel(conn)
	}

	if strings.TrimSpace(c.Redis.Host) != "" {
		svc.Cache = gocache.NewNode(
			redis.MustNewRedis(c.Redis),
			syncx.NewSingleFlight(),
			gocache.NewStat(cachekeys.Namespace),
			errCacheMiss,
		)
	}

	svc.Persistence = marketpersist.NewService(marketpersist.Config{
		QuotesModel:    svc.MarketQuotesModel,
		SnapshotsModel: svc.MarketSnapshotsModel,
		Cache:          svc.Cache,
		TTL:            svc.TTL,
	})

	if c.JournalDir != "" {
		svc.Journal = journal.NewWriter(c.JournalDir)
	}

	pollerCfg := marketpkg.PollerConfig{
		Provider:     svc.Provider,
		ProviderName: svc.ProviderName,
		Store:        svc.Store,
		Indices:      marketCfg.Indices,
		Stocks:       marketCfg.Stocks,
		Interval:     time.Duration(c.Poll.IntervalSec) * time.Second,
		FetchTimeout: time.Duration(c.Poll.TimeoutSec) * time.Second,
		Broadcaster:  svc.Hub,
	}
	if svc.Persistence != nil {
		pollerCfg.Persistence = svc.Persistence
	}
	if svc.Journal != nil {
		pollerCfg.Journal = svc.Journal
	}
	poller, err := marketpkg.NewPoller(pollerCfg)
	if err != nil {
		log.Fatalf("failed to build market poller: %v", err)
	}
	svc.Poller = poller

	svc.warmStart()
	return svc
}

// warmStart seeds the store from the Redis snapshot payload so a restarted
// process can answer /api/market before its first poll lands. Best effort: a
// cold or unreachable Redis just leaves the store empty.
func (s *ServiceContext) warmStart() {
	if s.Persistence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snapshot, err := s.Persistence.LoadCachedSnapshot(ctx, s.ProviderName)
	if err != nil || snapshot == nil {
		return
	}
	s.Store.Write(snapshot)
	log.Printf("warm start: restored snapshot captured at %s", snapshot.CapturedAt.UTC().Format(time.RFC3339))
}
