// README: Entry point; loads config, wires backends, runs the HTTP server and the offer ticker.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"partner/internal/config"
	httptransport "partner/internal/http"
	"partner/internal/infra"
	"partner/internal/logger"
	"partner/internal/maps"
	"partner/internal/modules/notify"
	"partner/internal/modules/offer"
	"partner/internal/modules/persistence"
	"partner/internal/modules/worker"
	"partner/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New("partner-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PARTNER_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.Fatalf("firebase auth: %v", err)
	}

	var rdb *redis.Client
	if cfg.Store.Backend == "redis" || cfg.Offer.Pool == "redis" {
		rdb, err = infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
	}

	store, closeStore, err := buildStore(ctx, cfg, rdb)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	pool, dispatch, err := buildPool(cfg, rdb, lg)
	if err != nil {
		log.Fatal(err)
	}

	trigger, closeTrigger, err := buildTrigger(ctx, cfg, app, lg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeTrigger()

	manager := worker.NewManager(worker.Options{
		Store:        store,
		Pool:         pool,
		Trigger:      trigger,
		Location:     cfg.Dues.Location(),
		PerDayCharge: cfg.Dues.PerDayCharge,
		Tick:         time.Duration(cfg.Offer.TickSeconds) * time.Second,
		Log:          lg,
	})

	deps := httptransport.ServerDeps{Sessions: manager, Verifier: verifier, Log: lg}
	if dispatch != nil {
		deps.Dispatch = dispatch
	}
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: httptransport.NewServer(deps).Routes()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server_started", map[string]any{"addr": cfg.HTTP.Addr, "store": cfg.Store.Backend, "pool": cfg.Offer.Pool, "notify": cfg.Notify.Backend})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		manager.RunOfferTicker(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("server_stopped", err, nil)
		os.Exit(1)
	}
	lg.Info("server_stopped", nil)
}

func buildStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (persistence.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		s := persistence.NewPostgresStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case "redis":
		return persistence.NewRedisStore(rdb), func() {}, nil
	default:
		return persistence.NewMemoryStore(), func() {}, nil
	}
}

func buildPool(cfg config.Config, rdb *redis.Client, lg *logger.Logger) (offer.Pool, *offer.RedisPool, error) {
	if cfg.Offer.Pool == "redis" {
		p := offer.NewRedisPool(rdb, "", lg)
		return p, p, nil
	}
	var quoter offer.Quoter = maps.HaversineQuoter{}
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return nil, nil, err
		}
		quoter = rs
	}
	center := types.Point{Lat: cfg.Offer.CenterLat, Lng: cfg.Offer.CenterLng}
	return offer.NewGenerator(center, cfg.Offer.RadiusKm, quoter, uint64(time.Now().UnixNano()), lg), nil, nil
}

func buildTrigger(ctx context.Context, cfg config.Config, app *firebase.App, lg *logger.Logger) (notify.Trigger, func(), error) {
	switch cfg.Notify.Backend {
	case "amqp":
		client, err := infra.DialAMQP(cfg.AMQP.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.DeclareFanout(cfg.AMQP.Exchange, "offer_alerts.q"); err != nil {
			client.Close()
			return nil, nil, err
		}
		return notify.NewAMQPTrigger(client, cfg.AMQP.Exchange), client.Close, nil
	case "fcm":
		msg, err := infra.NewMessaging(ctx, app)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewFCMTrigger(msg, lg), func() {}, nil
	default:
		return notify.LogTrigger{Log: lg}, func() {}, nil
	}
}
