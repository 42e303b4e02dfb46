package container

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/message-ratelimiter/internal/decisionlog"
	"github.com/serroba/message-ratelimiter/internal/events"
	"github.com/serroba/message-ratelimiter/internal/handlers"
	"github.com/serroba/message-ratelimiter/internal/health"
	"github.com/serroba/message-ratelimiter/internal/liveupdate"
	"github.com/serroba/message-ratelimiter/internal/messaging"
	"github.com/serroba/message-ratelimiter/internal/metrics"
	"github.com/serroba/message-ratelimiter/internal/middleware"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
	"go.uber.org/zap"
)

// EventIDLength is the length of generated decision event IDs.
const EventIDLength = 21

// CORSMaxAge is how many seconds browsers may cache a preflight response.
const CORSMaxAge = 300

// SplitOrigins parses a comma separated origin list, dropping blanks.
func SplitOrigins(list string) []string {
	var origins []string

	for _, origin := range strings.Split(list, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}

// CORSOptions allows browser calls with credentials from origins.
// A "*" entry allows every origin and echoes it back, since browsers refuse
// a wildcard origin on credentialed requests.
func CORSOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           CORSMaxAge,
	}

	if slices.Contains(origins, "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}

	return opts
}

// LiveUpdatePackage provides the websocket hub and the consumer group that
// feeds it from the decisions topic.
func LiveUpdatePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*liveupdate.Hub, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return liveupdate.NewHub(liveupdate.DefaultSubscriberBuffer, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		hub := do.MustInvoke[*liveupdate.Hub](i)

		broker, err := do.Invoke[*Broker](i)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(broker.Subscriber, logger)
		group.Add(messaging.NewConsumer[events.DecisionEvent](
			broker.Subscriber,
			events.TopicDecisions,
			hub.HandleDecision,
			logger,
		))

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		hub := do.MustInvoke[*liveupdate.Hub](i)

		m, err := do.Invoke[*metrics.Metrics](i)
		if err != nil {
			return nil, err
		}

		router := chi.NewMux()
		router.Use(chimiddleware.RequestID, chimiddleware.Recoverer)

		// No origins disables CORS entirely.
		if origins := SplitOrigins(opts.AllowedOrigins); len(origins) > 0 {
			router.Use(cors.Handler(CORSOptions(origins)))
		}

		router.Handle("/metrics", m.Handler())
		router.Handle("/liveupdate", liveupdate.NewHandler(hub, logger))

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		limiter, err := do.Invoke[ratelimit.Limiter](i)
		if err != nil {
			return nil, err
		}

		publishers, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return nil, err
		}

		newID, err := nanoid.Standard(EventIDLength)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("Message Rate Limiter", "1.0.0"))
		api.UseMiddleware(middleware.RequestLog(logger))

		messageLimitHandler := handlers.NewMessageLimitHandler(
			limiter,
			messaging.NewPublishFunc[events.DecisionEvent](publishers.Publisher(), events.TopicDecisions),
			newID,
			logger,
		)
		handlers.RegisterRoutes(api, messageLimitHandler)

		checkers := map[string]health.Checker{}
		if opts.Broker == messaging.BrokerRedis {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
		}

		if opts.DatabaseURL != "" {
			pg, err := do.Invoke[*Postgres](i)
			if err != nil {
				return nil, err
			}

			history := decisionlog.NewPostgresStore(pg.Pool)
			if err := history.EnsureSchema(context.Background()); err != nil {
				return nil, err
			}

			handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(history, logger))
			checkers["postgres"] = pg.Pool
		}

		health.RegisterRoutes(api, health.NewHandler(checkers))

		return api, nil
	})
}
