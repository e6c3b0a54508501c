package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/cache"
	"github.com/radieske/game-rounds-poc/internal/round-service/crash"
	"github.com/radieske/game-rounds-poc/internal/round-service/engine"
	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	httpapi "github.com/radieske/game-rounds-poc/internal/round-service/http"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	kproducer "github.com/radieske/game-rounds-poc/internal/round-service/producer"
	"github.com/radieske/game-rounds-poc/internal/round-service/pubsub"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/internal/round-service/wallet"
	"github.com/radieske/game-rounds-poc/internal/round-service/ws"
	scache "github.com/radieske/game-rounds-poc/internal/shared/cache"
	"github.com/radieske/game-rounds-poc/internal/shared/config"
	"github.com/radieske/game-rounds-poc/internal/shared/db"
	"github.com/radieske/game-rounds-poc/internal/shared/logger"
	"github.com/radieske/game-rounds-poc/internal/shared/metrics"
)

var (
	betsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rounds_bets_accepted_total",
		Help: "Apostas aceitas por jogo",
	}, []string{"game"})
	betsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rounds_bets_rejected_total",
		Help: "Apostas rejeitadas por jogo e motivo",
	}, []string{"game", "reason"})
	roundsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rounds_closed_total",
		Help: "Rodadas fechadas por jogo",
	}, []string{"game"})
	cashouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rounds_cashouts_total",
		Help: "Cash-outs efetivados no crash",
	})
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache de histórico + Pub/Sub do feed)
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic round_closed)
	writer := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		Topic:    cfg.TopicRoundClosed,
		Balancer: &kafkago.LeastBytes{},
	})
	defer writer.Close()

	// deps
	store := repo.NewPostgres(pg)
	wcli := wallet.New(cfg.WalletURL)
	publ := kproducer.NewKafkaPublisher(writer)
	bcast := pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)
	pol := policy.NewStore(game.FamilyWingo, game.FamilyLuckyPair, game.FamilyCrash)
	calc := crash.New(time.Now().UnixNano())

	wingo := engine.NewDiscreteScheduler(log, engine.DiscreteConfig{
		Family:        game.FamilyWingo,
		RoundDuration: time.Duration(cfg.WingoRoundSeconds) * time.Second,
		BettingWindow: time.Duration(cfg.WingoWindowSeconds) * time.Second,
		MinStakeCents: cfg.MinStakeCents,
		Validate:      outcome.ValidWingoSelection,
		ValidOutcome:  outcome.ValidWingoOutcome,
		Select: func(bets []outcome.Stake, profitTarget string, rng *rand.Rand) string {
			return strconv.Itoa(outcome.SelectWingo(bets, profitTarget, rng))
		},
	}, store, wcli, publ, bcast, pol, time.Now().UnixNano())
	hookDiscrete(wingo, game.FamilyWingo)

	pair := engine.NewDiscreteScheduler(log, engine.DiscreteConfig{
		Family:        game.FamilyLuckyPair,
		RoundDuration: time.Duration(cfg.PairRoundSeconds) * time.Second,
		BettingWindow: time.Duration(cfg.PairWindowSeconds) * time.Second,
		MinStakeCents: cfg.MinStakeCents,
		Validate:      outcome.ValidPairSelection,
		ValidOutcome:  outcome.ValidPairOutcome,
		Select: func(bets []outcome.Stake, _ string, rng *rand.Rand) string {
			return outcome.SelectPair(bets, rng)
		},
	}, store, wcli, publ, bcast, pol, time.Now().UnixNano()+1)
	hookDiscrete(pair, game.FamilyLuckyPair)

	crashEng := engine.NewCrashEngine(log, engine.CrashConfig{
		Waiting:       time.Duration(cfg.CrashWaitingSeconds) * time.Second,
		Grace:         time.Duration(cfg.CrashGraceSeconds) * time.Second,
		Tick:          time.Duration(cfg.CrashTickMillis) * time.Millisecond,
		GrowthRate:    cfg.CrashGrowthRate,
		MaxPoint:      cfg.CrashMaxPoint,
		MinStakeCents: cfg.MinStakeCents,
	}, store, wcli, publ, bcast, pol, calc)
	crashEng.OnBetAccepted = func() { betsAccepted.WithLabelValues(string(game.FamilyCrash)).Inc() }
	crashEng.OnBetRejected = func(reason string) {
		betsRejected.WithLabelValues(string(game.FamilyCrash), reason).Inc()
	}
	crashEng.OnRoundClosed = func() { roundsClosed.WithLabelValues(string(game.FamilyCrash)).Inc() }
	crashEng.OnCashout = func() { cashouts.Inc() }

	// loops donos das famílias
	go func() {
		if err := wingo.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("wingo engine", zap.Error(err))
		}
	}()
	go func() {
		if err := pair.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("pair engine", zap.Error(err))
		}
	}()
	go func() {
		if err := crashEng.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("crash engine", zap.Error(err))
		}
	}()

	// feed em tempo real: Redis Pub/Sub -> hub WebSocket
	hub := ws.NewHub(func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	// metrics/health
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		if err := pg.PingContext(hctx); err != nil {
			return err
		}
		return rdb.Ping(hctx).Err()
	})
	defer msrv.Close()

	// HTTP público
	api := httpapi.NewServer(log, wingo, pair, crashEng, store, cache.New(rdb), pol, hub,
		cfg.OperatorToken, cfg.CrashMaxPoint)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shCtx)
	}()

	log.Info("round-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

func hookDiscrete(s *engine.DiscreteScheduler, f game.Family) {
	s.OnBetAccepted = func() { betsAccepted.WithLabelValues(string(f)).Inc() }
	s.OnBetRejected = func(reason string) { betsRejected.WithLabelValues(string(f), reason).Inc() }
	s.OnRoundClosed = func() { roundsClosed.WithLabelValues(string(f)).Inc() }
}
