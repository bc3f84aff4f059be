package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/roombox/internal/dresscode"
	"github.com/Seednode/roombox/internal/pubsub"
	"github.com/Seednode/roombox/internal/rooms"
	"github.com/Seednode/roombox/internal/scoring"
	"github.com/Seednode/roombox/internal/spy"
	"github.com/Seednode/roombox/internal/store"
)

const timeout time.Duration = 10 * time.Second

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), magnetometer=(), gyroscope=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		started := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("roombox v" + releaseVersion + "\n"))
		if err != nil {
			return
		}

		log.Debug().
			Str("size", humanReadableSize(int64(written))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(started).Round(time.Microsecond)).
			Msg("SERVE: Version page")
	}
}

// serveIdentity issues a fresh device id for first-time clients. The
// client persists it locally and passes it explicitly on every call;
// the server never infers identity from anything ambient.
func serveIdentity(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, map[string]string{
			"deviceId": rooms.NewDeviceID(),
		})
	}
}

// services bundles the per-variant engines behind the HTTP surface.
type services struct {
	clock     clockwork.Clock
	scoring   *scoring.Service
	dresscode *dresscode.Service
	spy       *spy.Service
}

func newServices(cfg *Config, st store.Store, clock clockwork.Clock) *services {
	kernel := rooms.NewKernel(st, clock, cfg.roomTTL)

	return &services{
		clock:     clock,
		scoring:   scoring.NewService(kernel),
		dresscode: dresscode.NewService(kernel),
		spy:       spy.NewService(kernel),
	}
}

// newRouter wires every route. Split out from ServePage so handler
// tests can drive the full mux without a listener.
func newRouter(cfg *Config, svcs *services) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error().Any("panic", i).Str("path", r.URL.Path).Msg("SERVE: Recovered from panic")
		securityHeaders(cfg, w)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again"})
	}

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))
	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg))
	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg))
	mux.GET(cfg.prefix+"/version", serveVersion(cfg))
	mux.POST(cfg.prefix+"/identity", serveIdentity(cfg))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerScoring(cfg, svcs, mux)
	registerDressCode(cfg, svcs, mux)
	registerSpy(cfg, svcs, mux)

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", releaseVersion).Msg("START: roombox")

	var bus pubsub.Bus
	if cfg.natsURL != "" {
		nats, err := pubsub.NewNATS(cfg.natsURL)
		if err != nil {
			return err
		}
		bus = nats
		log.Info().Str("url", cfg.natsURL).Msg("START: Using NATS change bus")
	} else {
		bus = pubsub.NewProcess()
	}
	defer bus.Close()

	var st store.Store
	if cfg.databaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.databaseURL, bus)
		if err != nil {
			return err
		}
		st = pg
		log.Info().Msg("START: Using postgres room store")
	} else {
		st = store.NewMemory()
		log.Info().Msg("START: Using in-memory room store")
	}
	defer st.Close()

	mux := newRouter(cfg, newServices(cfg, st, clockwork.NewRealClock()))

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           handler,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		// Websocket subscriptions outlive any sane write timeout.
		WriteTimeout: 0,
	}

	go func() {
		var err error
		log.Info().Str("addr", fmt.Sprintf("%s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)).Msg("SERVE: Listening")
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("SERVE: Listener failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
