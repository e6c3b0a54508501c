package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/internal/round-service/wallet"
	"github.com/radieske/game-rounds-poc/internal/settlement"
	"github.com/radieske/game-rounds-poc/internal/shared/config"
	"github.com/radieske/game-rounds-poc/internal/shared/db"
	"github.com/radieske/game-rounds-poc/internal/shared/kafka"
	"github.com/radieske/game-rounds-poc/internal/shared/logger"
	"github.com/radieske/game-rounds-poc/internal/shared/metrics"
	ev "github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

var (
	roundsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_rounds_total",
		Help: "Rodadas liquidadas por jogo",
	}, []string{"game"})
	settleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_failures_total",
		Help: "Tentativas de liquidação que falharam",
	})
	dlqMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_dlq_total",
		Help: "Eventos round_closed enviados para a DLQ",
	})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres: transição das apostas e fechamento das rodadas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: eventos round_closed disparam a liquidação
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRoundClosed, "settlement")
	defer reader.Close()

	// Kafka producer: publica round_settled e, opcionalmente, envia para DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRoundClosedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundClosedDLQ)
		defer dlqWriter.Close()
	}

	// metrics/health
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return pg.PingContext(hctx)
	})
	defer msrv.Close()

	store := repo.NewPostgres(pg)
	wcli := wallet.New(cfg.WalletURL)
	eng := settlement.NewEngine(log, store, wcli)

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicRoundClosed),
		zap.String("publish", cfg.TopicRoundSettled),
	)

	// Loop principal: consome round_closed, liquida e publica o resumo
	for {
		_, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var closed ev.RoundClosed
		if jerr := json.Unmarshal(value, &closed); jerr != nil {
			log.Error("unmarshal round_closed", zap.Error(jerr))
			continue
		}

		if err := processOne(ctx, log, eng, settledWriter, dlqWriter, &closed); err != nil {
			log.Error("settle round",
				zap.String("game", closed.Family),
				zap.Int64("period", closed.RoundID),
				zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne executa a liquidação de uma rodada fechada:
// 1. Resolve as apostas pendentes contra o resultado (idempotente)
// 2. Em falha, re-tenta; persistindo, envia o evento para a DLQ
// 3. Publica round_settled com o resumo
func processOne(
	ctx context.Context,
	log *zap.Logger,
	eng *settlement.Engine,
	settledWriter *kafkago.Writer,
	dlqWriter *kafkago.Writer,
	closed *ev.RoundClosed,
) error {
	sum, err := eng.Resolve(ctx, *closed)
	if err != nil {
		settleFailures.Inc()
		const retries = 3
		for i := 0; i < retries; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			if sum, err = eng.Resolve(ctx, *closed); err == nil {
				break
			}
			settleFailures.Inc()
		}
		if err != nil {
			if dlqWriter != nil {
				dlqMessages.Inc()
				_ = kafka.WriteJSON(ctx, dlqWriter, eventKey(closed), mustJSON(closed))
			}
			return err
		}
	}

	roundsSettled.WithLabelValues(closed.Family).Inc()
	return kafka.WriteJSON(ctx, settledWriter, eventKey(closed), mustJSON(sum))
}

func eventKey(e *ev.RoundClosed) string {
	return e.Family + ":" + strconv.FormatInt(e.RoundID, 10)
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
