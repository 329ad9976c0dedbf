package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chronicle.ai/internal/config"
	"chronicle.ai/internal/feedback"
	"chronicle.ai/internal/generator"
	turnlog "chronicle.ai/internal/persistence/log"
	"chronicle.ai/internal/persistence/offsite"
	"chronicle.ai/internal/persistence/save"
	"chronicle.ai/internal/persistence/store"
	"chronicle.ai/internal/session"
	"chronicle.ai/internal/sim/catalogs"
	"chronicle.ai/internal/sim/registry"
	"chronicle.ai/internal/sim/tuning"
	"chronicle.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "", "config directory (default: $CHRONICLE_CONFIG_DIR)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		offline    = flag.Bool("offline", false, "narrate with the built-in offline generator even if a generator url is set")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	env, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	dir := strings.TrimSpace(*configDir)
	if dir == "" {
		dir = env.ConfigDir
	}

	// Missing catalog files fall back to the built-in timeline.
	cats, err := catalogs.Load(dir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(dir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	reg := registry.New()
	reg.RegisterAll(registry.TypeNPC, cats.Entities.NPCs...)
	reg.RegisterAll(registry.TypeRegion, cats.Entities.Regions...)
	reg.RegisterAll(registry.TypeItem, cats.Entities.Items...)

	st, err := store.Open(env.Store, env.StorePath)
	if err != nil {
		logger.Fatalf("open %s store: %v", env.Store, err)
	}
	defer store.Close(st)

	saves, err := save.New(st, save.Config{
		MaxHistory:     tune.MaxDialogueHistory,
		MaxRecordBytes: tune.MaxRecordBytes,
		Logger:         log.New(os.Stdout, "[save] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		logger.Fatalf("save manager: %v", err)
	}

	blocklist, err := feedback.LoadBlocklist(filepath.Join(dir, "blocklist.txt"))
	if err != nil {
		logger.Fatalf("load blocklist: %v", err)
	}
	var moderator feedback.Moderator
	if env.ModerationURL != "" {
		moderator = feedback.NewHTTPModerator(env.ModerationURL, env.ModerationToken, nil)
	}
	screener := feedback.NewScreener(blocklist, moderator, logger)

	var gen session.Adjudicator
	if *offline || env.Offline() {
		logger.Printf("generator: offline")
		gen = generator.Offline{}
	} else {
		gen = generator.New(generator.Config{
			URL:      env.GeneratorURL,
			Token:    env.GeneratorToken,
			Attempts: env.GeneratorAttempts,
			Delay:    env.GeneratorDelay,
			Timeout:  env.GeneratorTimeout,
			Logger:   log.New(os.Stdout, "[generator] ", log.LstdFlags|log.Lmicroseconds),
		})
	}

	var mirror *offsite.Mirror
	if env.Offsite() {
		bucket, err := offsite.NewBucket(offsite.BucketConfig{
			Endpoint:        env.OffsiteEndpoint,
			Bucket:          env.OffsiteBucket,
			Region:          env.OffsiteRegion,
			AccessKeyID:     env.OffsiteAccessKeyID,
			SecretAccessKey: env.OffsiteSecretAccessKey,
		})
		if err != nil {
			logger.Fatalf("offsite: %v", err)
		}
		mirror = offsite.NewMirror(offsite.MirrorConfig{
			Uploader: bucket,
			Prefix:   env.OffsitePrefix,
			Workers:  env.OffsiteWorkers,
			Logger:   log.New(os.Stdout, "[offsite] ", log.LstdFlags|log.Lmicroseconds),
		})
		// Runs after turns.Close so the last hour file is queued.
		defer mirror.Close()
		logger.Printf("offsite mirror: bucket=%s prefix=%q", env.OffsiteBucket, env.OffsitePrefix)
	}

	turns := turnlog.NewTurnLogger(env.TurnLogDir)
	if mirror != nil {
		turns.OnClosed(func(path string) {
			mirror.Enqueue("turns/"+filepath.Base(path), path)
		})
	}
	defer turns.Close()

	deps := session.Deps{
		Registry:   reg,
		Saves:      saves,
		Tuning:     tune,
		Timeline:   cats.Timeline,
		Screener:   screener,
		Generator:  gen,
		TurnLog:    turns,
		Slots:      session.NewSlots(),
		ArchiveDir: env.ArchiveDir,
		Logger:     logger,
	}
	if mirror != nil {
		deps.Offsite = mirror
	}

	logger.Printf("store=%s path=%s timeline=%d events digest=%s tuning=%s blocklist=%d",
		env.Store, env.StorePath, len(cats.Timeline.Events), cats.Timeline.Digest, tune.Digest(), blocklist.Len())

	ctx, cancel := signalContext()
	defer cancel()

	embedded, err := startEmbeddedMCP(ctx, env, deps, cats.Timeline.Digest)
	if err != nil {
		logger.Fatalf("embedded mcp: %v", err)
	}
	defer embedded.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	if env.AdminHTTP {
		registerAdmin(mux, saves, env.ArchiveDir, mirror)
	} else {
		logger.Printf("admin endpoints disabled (CHRONICLE_ADMIN_HTTP=false)")
	}
	if env.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(deps, cats.Timeline.Digest, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
