package router

import (
	"context"
	"fmt"

	"github.com/anonto42/chirpline/backend/internal/cache"
	"github.com/anonto42/chirpline/backend/internal/handlers"
	"github.com/anonto42/chirpline/backend/internal/middleware"
	"github.com/anonto42/chirpline/backend/internal/repositories"
	"github.com/anonto42/chirpline/backend/internal/services"
	"github.com/anonto42/chirpline/backend/pkg/config"
	"github.com/anonto42/chirpline/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Deps are the process-wide resources the routes are built from.
// Redis and Firebase are optional.
type Deps struct {
	Config   *config.Config
	DB       *config.DB
	Redis    *redis.Client
	Firebase *firebase.App
	Logger   *zap.Logger
}

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Follow       *handlers.FollowHandler
	Post         *handlers.PostHandler
	Comment      *handlers.CommentHandler
	Notification *handlers.NotificationHandler
	Search       *handlers.SearchHandler
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) error {
	cfg, logger := deps.Config, deps.Logger

	auth, err := authMiddleware(deps)
	if err != nil {
		return err
	}

	// --- Initialize Repositories ---
	mongoDB := deps.DB.Mongo.Database(cfg.MongoDatabase)
	userRepo := repositories.NewPostgresUserRepository(deps.DB.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(deps.DB.Postgres)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	commentRepo := repositories.NewMongoCommentRepository(mongoDB)
	notificationRepo := repositories.NewMongoNotificationRepository(mongoDB)
	tx := repositories.NewMongoTransactor(deps.DB.Mongo, cfg.MongoTransactions, logger)

	var unread cache.UnreadCache = cache.Noop{}
	if deps.Redis != nil {
		unread = cache.NewRedisUnreadCache(deps.Redis, cfg.UnreadCacheTTL)
	}

	// --- Initialize Services ---
	notifyPolicy, deletePolicy := services.PoliciesFromConfig(cfg)
	notificationSvc := services.NewNotificationService(notificationRepo, userRepo, postRepo, commentRepo, unread, notifyPolicy, logger)
	var identity services.IdentityProvider
	var verifier middleware.TokenVerifier
	if deps.Firebase != nil {
		identity = firebase.NewIdentityProvider(deps.Firebase.AuthClient)
		verifier = deps.Firebase.AuthClient
	}
	userSvc := services.NewUserService(userRepo, followRepo, identity, notificationSvc, logger)
	postSvc := services.NewPostService(postRepo, commentRepo, userRepo, notificationSvc, deletePolicy, logger)
	commentSvc := services.NewCommentService(commentRepo, postRepo, userRepo, notificationSvc, tx, deletePolicy, logger)
	searchSvc := services.NewSearchService(userRepo, postRepo, postSvc)

	h := Handlers{
		Health:       handlers.NewHealthHandler(healthChecks(deps)),
		Auth:         handlers.NewAuthHandler(verifier, userSvc, cfg.JWTSecret, cfg.JWTTTL),
		User:         handlers.NewUserHandler(userSvc),
		Follow:       handlers.NewFollowHandler(userSvc),
		Post:         handlers.NewPostHandler(postSvc),
		Comment:      handlers.NewCommentHandler(commentSvc),
		Notification: handlers.NewNotificationHandler(notificationSvc),
		Search:       handlers.NewSearchHandler(searchSvc),
	}

	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(logger)
	RegisterRoutes(e, h, auth)
	logger.Info("routes configured",
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("mongo_transactions", cfg.MongoTransactions),
		zap.Bool("unread_cache", deps.Redis != nil),
	)
	return nil
}

// RegisterRoutes mounts h under /api. Routes that need a caller take auth
// as route middleware; the rest stay public.
func RegisterRoutes(e *echo.Echo, h Handlers, auth echo.MiddlewareFunc) {
	e.GET("/health", h.Health.HealthCheck)

	api := e.Group("/api")
	h.Auth.RegisterAuthRoutes(api)
	h.User.RegisterUserRoutes(api, auth)
	h.Follow.RegisterFollowRoutes(api, auth)
	h.Post.RegisterPostRoutes(api, auth)
	h.Comment.RegisterCommentRoutes(api, auth)
	h.Notification.RegisterNotificationRoutes(api, auth)
	h.Search.RegisterSearchRoutes(api)
}

func authMiddleware(deps Deps) (echo.MiddlewareFunc, error) {
	switch deps.Config.AuthMode {
	case "firebase":
		if deps.Firebase == nil {
			return nil, fmt.Errorf("AUTH_MODE=firebase requires FIREBASE_CREDENTIALS_PATH")
		}
		return middleware.FirebaseAuthMiddleware(deps.Firebase.AuthClient), nil
	case "jwt", "":
		if deps.Config.JWTSecret == "" {
			return nil, fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET")
		}
		return middleware.JWTAuthMiddleware(deps.Config.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", deps.Config.AuthMode)
	}
}

func healthChecks(deps Deps) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := deps.DB.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"mongo": func(ctx context.Context) error {
			return deps.DB.Mongo.Ping(ctx, readpref.Primary())
		},
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
