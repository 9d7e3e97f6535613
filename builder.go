package cloudhatch

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/IulianH/CloudHatch-sub000/cookie"
	"github.com/IulianH/CloudHatch-sub000/jwt"
	"github.com/IulianH/CloudHatch-sub000/password"
	"github.com/IulianH/CloudHatch-sub000/refresh"
)

// Builder assembles an Engine. Configure it during initialization and call
// Build exactly once; a builder is not safe for concurrent use.
type Builder struct {
	config Config

	redis        redis.UniversalClient
	redisPrefix  string
	refreshStore refresh.Store

	userProvider UserProvider
	auditSink    AuditSink
	logger       Logger

	built bool
}

// New returns a builder seeded with defaults. Signing and cookie keys have
// no defaults and must be supplied via WithConfig.
func New() *Builder {
	return &Builder{
		config:      defaultConfig(),
		redisPrefix: "ch:rt",
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the refresh-token store with Redis under the given key
// prefix. An empty prefix keeps the default.
func (b *Builder) WithRedis(client redis.UniversalClient, prefix string) *Builder {
	b.redis = client
	if prefix != "" {
		b.redisPrefix = prefix
	}
	return b
}

// WithRefreshStore supplies a custom store, such as the Postgres adapter.
// It takes precedence over WithRedis.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the warning logger used for non-fatal anomalies such
// as reuse detections and origin rejections. Nil disables logging.
func (b *Builder) WithLogger(l Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the dependency graph, and
// returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	var store refresh.Store
	switch {
	case b.refreshStore != nil:
		store = b.refreshStore
	case b.redis != nil:
		store = refresh.NewRedisStore(b.redis, b.redisPrefix)
	default:
		store = refresh.NewMemoryStore()
	}

	rotator, err := refresh.NewRotator(store, refresh.Config{
		TTL:           cfg.Refresh.TTL,
		SessionMaxAge: cfg.Refresh.SessionMaxAge,
		DetectReuse:   cfg.Refresh.DetectReuse,
	})
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.NewHasher(password.Config{
		Iterations: cfg.Password.Iterations,
		SaltLength: cfg.Password.SaltLength,
		KeyLength:  cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		rotator:      rotator,
		jwtManager:   jm,
		passwordHash: ph,
		origin:       NewOriginGuard(cfg.Origin.TrustedHost),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       b.logger,
	}

	if len(cfg.Cookie.Key) > 0 {
		codec, err := cookie.NewCodec(cookie.Config{
			Key:    cfg.Cookie.Key,
			Name:   cfg.Cookie.Name,
			Path:   cfg.Cookie.Path,
			MaxAge: cfg.Cookie.MaxAge,
		})
		if err != nil {
			return nil, err
		}
		engine.cookies = codec
	}

	b.built = true

	return engine, nil
}
