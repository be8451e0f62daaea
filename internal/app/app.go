package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"

	config "github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	v1Http "github.com/jayyoonakajaeha/MUSEED/internal/delivery/v1/http"
	"github.com/jayyoonakajaeha/MUSEED/internal/infrastructure/embedder"
	"github.com/jayyoonakajaeha/MUSEED/internal/infrastructure/kafka"
	minioInfra "github.com/jayyoonakajaeha/MUSEED/internal/infrastructure/minio"
	"github.com/jayyoonakajaeha/MUSEED/internal/infrastructure/scheduler"
	"github.com/jayyoonakajaeha/MUSEED/internal/ml"
	s3Repo "github.com/jayyoonakajaeha/MUSEED/internal/repository/minio"
	"github.com/jayyoonakajaeha/MUSEED/internal/repository/pgdb"
	pgdbConv "github.com/jayyoonakajaeha/MUSEED/internal/repository/pgdb/converter"
	"github.com/jayyoonakajaeha/MUSEED/internal/repository/redis"
	redisConv "github.com/jayyoonakajaeha/MUSEED/internal/repository/redis/converter"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/clients"
	"github.com/jayyoonakajaeha/MUSEED/pkg/closer"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
	"github.com/jayyoonakajaeha/MUSEED/pkg/postgres"
)

const shutdownTimeout = 10 * time.Second

// App связывает все слои сервиса и управляет их жизненным циклом.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	httpSrv *v1Http.Server
	closer  *closer.Closer
}

// NewApp поднимает зависимости снизу вверх: хранилища, индексы, фоновые
// воркеры, usecase-слой и HTTP-доставку. Порядок закрытия обратный порядку
// создания, за это отвечает closer.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	cl := closer.NewCloser(shutdownTimeout)

	// контекст времени жизни фоновых воркеров
	rootCtx, rootCancel := context.WithCancel(context.Background())

	db, err := initPGDB(log, cfg)
	if err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		db.Close()
		return nil
	})

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer minioCancel()
	for _, bucket := range []string{cfg.Minio.EmbeddingsBucket, cfg.Minio.UploadsBucket} {
		if err := clients.EnsureBucket(minioCtx, minioClient, bucket); err != nil {
			rootCancel()
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return redisClient.Client.Close()
	})

	// репозитории
	trackRepo := pgdb.NewTrackRepo(db.Pool)
	historyRepo := pgdb.NewHistoryRepo(db.Pool)
	userRepo := pgdb.NewUserRepo(db.Pool)
	playlistRepo := pgdb.NewPlaylistRepo(db.Pool, pgdbConv.PlaylistConverter{})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})
	embeddingRepo := s3Repo.NewEmbeddingRepo(minioClient, cfg.Minio, cfg.Index.Dim)
	uploadRepo := s3Repo.NewUploadRepo(minioClient, cfg.Minio)
	taskRepo := redis.NewTaskRepo(redisClient, redisConv.TaskConverter{}, cfg.Redis, log)

	// векторное ядро
	trackIndex := ml.NewVectorIndex(cfg.Index.Dim)
	userIndex := ml.NewVectorIndex(cfg.Index.Dim)
	profiles := ml.NewProfileBuilder(embeddingRepo, cfg.Recs.ClusterCount, cfg.Recs.KMeansInits, log)

	// инфраструктура
	embedderInfra := embedder.NewEmbedder(cfg.Embedder, cfg.Index.Dim, log)
	uploadsInfra := minioInfra.NewUploadsInfrastructure(uploadRepo, log, rootCtx)

	sched := scheduler.NewScheduler(taskRepo, cfg.Scheduler, log)
	sched.Start(rootCtx)

	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		log.Warnf("kafka topic is not ready, outbox delivery may stall: %v", err)
	}
	cl.Add(func(ctx context.Context) error {
		return producer.Close()
	})

	outboxWorker := kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn)
	outboxWorker.Start(rootCtx)
	cl.Add(func(ctx context.Context) error {
		outboxWorker.Stop()
		return nil
	})

	// usecase-слой
	playlistUC := usecase.NewPlaylistUC(
		trackRepo,
		playlistRepo,
		outboxRepo,
		embeddingRepo,
		embedderInfra,
		uploadsInfra,
		sched,
		taskRepo,
		trackIndex,
		db.Pool,
		cfg.Recs,
		log,
	)
	recommendUC := usecase.NewRecommendUC(historyRepo, userRepo, embeddingRepo, profiles, userIndex, cfg.Recs, log)
	indexUC := usecase.NewIndexUC(historyRepo, userRepo, embeddingRepo, profiles, trackIndex, userIndex, cfg.Index, log)

	// поисковые структуры должны быть готовы до первого запроса
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer startupCancel()

	if err := indexUC.LoadTrackIndex(startupCtx); err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if _, err := indexUC.RebuildUserIndex(startupCtx); err != nil {
		rootCancel()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(playlistUC, recommendUC, indexUC)

	httpSrv := v1Http.NewServer(r, cfg.Http)

	// фоновые воркеры останавливаются после планировщика, но до закрытия
	// хранилищ: недоудалённые временные объекты дочищаются здесь
	cl.Add(func(ctx context.Context) error {
		rootCancel()
		return uploadsInfra.WaitForCleanup(ctx)
	})

	// воркер добивает уже принятые задачи, пока rootCtx ещё жив:
	// отмена контекста до Stop оборвала бы текущий пайплайн посередине
	cl.Add(func(ctx context.Context) error {
		sched.Stop()
		return nil
	})

	cl.Add(func(ctx context.Context) error {
		return httpSrv.Stop(ctx)
	})

	return &App{
		cfg:     cfg,
		logger:  log,
		httpSrv: httpSrv,
		closer:  cl,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до сигнала завершения или
// фатальной ошибки, после чего закрывает зависимости в обратном порядке.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("graceful shutdown finished with errors: %v", err)
	}

	a.logger.Infof("Application shutdown complete")

	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
