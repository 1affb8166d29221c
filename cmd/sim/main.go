package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/auth"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/sim"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $TILEWORLD_CONFIG)")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logOpts, err := cfg.Logging.Options()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации логирования: %v", err)
	}
	logging.Configure(logOpts)

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("sim"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🌍 Запуск симуляции tileworld (seed=%d, %d тиков/с)", cfg.Sim.Seed, cfg.Sim.GetTickRate())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРЕЙСИНГ ===
	if cfg.Tracing.Enabled {
		shutdownTracing, err := observability.InitTelemetry(ctx, "tileworld-sim", observability.Options{
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logging.Warn("Трейсинг недоступен: %v", err)
		} else {
			logging.Info("🔭 Трейсы OTLP -> %s", cfg.Tracing.Endpoint)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(shutdownCtx); err != nil {
					logging.Error("❌ Ошибка остановки трейсинга: %v", err)
				}
			}()
		}
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	var opts []sim.Option

	// Метрики
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		opts = append(opts, sim.WithMetrics(m))

		if cfg.Metrics.ProcessEvery > 0 {
			sampler, err := metrics.NewProcessSampler(prometheus.DefaultRegisterer)
			if err != nil {
				logging.Warn("Сэмплер процесса недоступен: %v", err)
			} else {
				opts = append(opts, sim.WithProcessSampler(sampler))
			}
		}
	}

	// Шина событий
	logging.Debug("Подключение шины событий (%s)...", cfg.Events.Backend)
	bus, err := eventbus.New(cfg.Events.Backend, cfg.Events.URL, cfg.Events.Stream)
	if err != nil {
		logging.Error("❌ Ошибка создания шины событий: %v", err)
		log.Fatalf("❌ Ошибка создания шины событий: %v", err)
	}
	if cfg.Metrics.Enabled {
		if err := eventbus.RegisterMetrics(prometheus.DefaultRegisterer, bus); err != nil {
			logging.Warn("Метрики шины событий не зарегистрированы: %v", err)
		}
	}
	if cfg.Events.Log {
		if _, err := eventbus.StartLoggingListener(bus); err != nil {
			logging.Warn("Логирование событий недоступно: %v", err)
		}
	}
	opts = append(opts, sim.WithEventBus(bus))

	// Хранилище чанков
	if cfg.Storage.Enabled {
		logging.Debug("Открытие хранилища чанков %s...", cfg.Storage.Dir)
		store, err := storage.OpenChunkStore(filepath.Join(cfg.Storage.Dir, "chunks"),
			storage.WithCompression(cfg.Storage.Compression),
			storage.WithStoreMetrics(m))
		if err != nil {
			logging.Error("❌ Ошибка открытия хранилища: %v", err)
			log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
		}
		opts = append(opts, sim.WithChunkStore(store))
	}

	// Репозиторий позиций
	positions, err := storage.NewPositionRepo(cfg.Storage.PositionsBackend, cfg.Storage.PositionsDSN)
	if err != nil {
		logging.Error("❌ Ошибка подключения репозитория позиций: %v", err)
		log.Fatalf("❌ Ошибка подключения репозитория позиций: %v", err)
	}
	opts = append(opts, sim.WithPositions(positions))
	logging.Info("📦 Позиции сущностей: %s", cfg.Storage.PositionsBackend)

	simulation, err := sim.New(cfg, opts...)
	if err != nil {
		log.Fatalf("❌ Ошибка создания симуляции: %v", err)
	}
	defer func() {
		if err := simulation.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия ресурсов: %v", err)
		}
	}()

	if err := simulation.Populate(ctx); err != nil {
		logging.Error("❌ Ошибка заселения мира: %v", err)
		return
	}

	logging.Info("✅ Мир %s готов", simulation.World().ID())

	// === HTTP: REST API и /metrics ===
	var restServer *api.RestServer
	if cfg.HTTPEnabled() {
		var signer *auth.Signer
		if cfg.API.Enabled {
			signer = newSigner(cfg.API)
		}
		restServer = api.NewRestServer(api.Config{
			Addr:    cfg.Metrics.Addr(),
			Service: simulation,
			Signer:  signer,
		})
		restServer.Start()
		logging.Info("   📈 Метрики: http://%s/metrics", cfg.Metrics.Addr())
		logging.Info("   🌐 Мир: http://%s/api/world", cfg.Metrics.Addr())
	}

	// Run возвращается после сигнала, сохранив мир
	if err := simulation.Run(ctx); err != nil {
		logging.Error("❌ Ошибка финального сохранения: %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	if restServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := restServer.Stop(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки REST API: %v", err)
		}
	}

	logging.Info("👋 Симуляция остановлена")
}

// newSigner создаёт подписчик токенов админки. Если задан оператор, сразу выпускает ему токен.
func newSigner(cfg config.APIConfig) *auth.Signer {
	if cfg.JWTSecret == "" {
		logging.Warn("⚠️ api.jwt_secret не задан: токены будут недействительны после перезапуска")
	}
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.TTL())
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации JWT: %v", err)
	}

	if cfg.Operator != "" {
		token, err := signer.Issue(cfg.Operator, true)
		if err != nil {
			log.Fatalf("❌ Ошибка выпуска токена: %v", err)
		}
		logging.Info("🔑 Токен администратора %s: %s", cfg.Operator, token)
	}
	return signer
}
