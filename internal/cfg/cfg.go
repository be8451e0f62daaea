package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Http      *HTTPConfig
	Db        *PGDBCfg
	Redis     *RedisCfg
	Minio     *MinIOCfg
	Kafka     *KafkaCfg
	Embedder  *EmbedderCfg
	Index     *IndexCfg
	Recs      *RecsCfg
	Scheduler *SchedulerCfg
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	TaskTTL     time.Duration // срок хранения результата задачи
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	EmbeddingsBucket  string // Бакет с предрассчитанными эмбеддингами треков
	UploadsBucket     string // Бакет для временных загрузок seed-аудио
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

// EmbedderCfg описывает внешний inference-сервис эмбеддинг-модели.
type EmbedderCfg struct {
	Addr       string
	MaxRetries int
	Timeout    time.Duration
	SampleRate int // частота дискретизации, ожидаемая моделью
	CropSec    int // длительность одного фрагмента в секундах
}

// IndexCfg описывает векторные индексы и их артефакты.
type IndexCfg struct {
	Dim            int    // размерность эмбеддингов, фиксированная глобально
	TrackIndexPath string // бинарный артефакт индекса треков
}

// RecsCfg — параметры рекомендательного ядра.
type RecsCfg struct {
	ClusterCount       int // K центроидов на пользователя
	KMeansInits        int // число инициализаций k-means
	CandidatesPerQuery int // кандидатов на один центроид при retrieval
	NumRecommendations int // длина генерируемого плейлиста
}

type SchedulerCfg struct {
	QueueSize     int
	TaskTimeLimit time.Duration // жёсткий лимит на одну задачу
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	index, err := loadIndexCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	recs, err := loadRecsCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	scheduler, err := loadSchedulerCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:      http,
		Db:        db,
		Redis:     redis,
		Minio:     minio,
		Kafka:     kafka,
		Embedder:  loadEmbedderCfg(),
		Index:     index,
		Recs:      recs,
		Scheduler: scheduler,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 10 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultTaskTTL      = 24 * time.Hour
	)

	addr := getEnvOrDefault("REDIS_ADDR", defaultAddr)
	password := getEnv("REDIS_PASSWORD")
	user := getEnv("REDIS_USER")

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	taskTTL, err := parseDurationEnv("TASK_TTL", defaultTaskTTL)
	if err != nil {
		log.Errorf(err, "invalid TASK_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        addr,
		Password:    password,
		User:        user,
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		TaskTTL:     taskTTL,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL           = false
		defaultEndpoint         = "minio:9000"
		defaultEmbeddingsBucket = "track-embeddings"
		defaultUploadsBucket    = "seed-uploads"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		EmbeddingsBucket:  getEnvOrDefault("EMBEDDINGS_BUCKET", defaultEmbeddingsBucket),
		UploadsBucket:     getEnvOrDefault("UPLOADS_BUCKET", defaultUploadsBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := strings.Split(brokerStr, ",")

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             topic,
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadEmbedderCfg() *EmbedderCfg {
	const (
		defaultHost       = "embedder"
		defaultPort       = "9000"
		defaultMaxRetries = 3
		defaultTimeout    = 60 * time.Second
		defaultSampleRate = 16000
		defaultCropSec    = 10
	)

	host := getEnvOrDefault("EMBEDDER_HOST", defaultHost)
	port := getEnvOrDefault("EMBEDDER_PORT", defaultPort)

	return &EmbedderCfg{
		Addr:       "http://" + host + ":" + port,
		MaxRetries: defaultMaxRetries,
		Timeout:    defaultTimeout,
		SampleRate: defaultSampleRate,
		CropSec:    defaultCropSec,
	}
}

func loadIndexCfg() (*IndexCfg, error) {
	const (
		defaultDim            = 1024
		defaultTrackIndexPath = "models/track_index.bin"
	)

	dim, err := parseIntEnv("VECTOR_SIZE", defaultDim)
	if err != nil {
		return nil, e.Wrap("VECTOR_SIZE", err)
	}

	return &IndexCfg{
		Dim:            dim,
		TrackIndexPath: getEnvOrDefault("TRACK_INDEX_PATH", defaultTrackIndexPath),
	}, nil
}

func loadRecsCfg() (*RecsCfg, error) {
	const (
		defaultClusterCount       = 3
		defaultKMeansInits        = 10
		defaultCandidatesPerQuery = 20
		defaultNumRecommendations = 15
	)

	clusterCount, err := parseIntEnv("CLUSTER_COUNT", defaultClusterCount)
	if err != nil {
		return nil, e.Wrap("CLUSTER_COUNT", err)
	}

	numRecs, err := parseIntEnv("NUM_RECOMMENDATIONS", defaultNumRecommendations)
	if err != nil {
		return nil, e.Wrap("NUM_RECOMMENDATIONS", err)
	}

	return &RecsCfg{
		ClusterCount:       clusterCount,
		KMeansInits:        defaultKMeansInits,
		CandidatesPerQuery: defaultCandidatesPerQuery,
		NumRecommendations: numRecs,
	}, nil
}

func loadSchedulerCfg() (*SchedulerCfg, error) {
	const (
		defaultQueueSize     = 64
		defaultTaskTimeLimit = 5 * time.Minute
	)

	queueSize, err := parseIntEnv("TASK_QUEUE_SIZE", defaultQueueSize)
	if err != nil {
		return nil, e.Wrap("TASK_QUEUE_SIZE", err)
	}

	timeLimit, err := parseDurationEnv("TASK_TIME_LIMIT", defaultTaskTimeLimit)
	if err != nil {
		return nil, e.Wrap("TASK_TIME_LIMIT", err)
	}

	return &SchedulerCfg{
		QueueSize:     queueSize,
		TaskTimeLimit: timeLimit,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
