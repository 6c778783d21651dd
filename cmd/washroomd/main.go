package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"washroom-tracker-client/config"
	"washroom-tracker-client/internal/api"
	"washroom-tracker-client/internal/apiclient"
	"washroom-tracker-client/internal/db"
	"washroom-tracker-client/internal/notification"
	"washroom-tracker-client/internal/occupancy"
	"washroom-tracker-client/internal/session"
	"washroom-tracker-client/internal/store"
	"washroom-tracker-client/internal/tui"
)

func main() {
	cmd := flag.String("cmd", "run", "command to execute: login, logout or run")
	name := flag.String("name", "", "display name used by -cmd login")
	employeeID := flag.String("employee-id", "", "employee id used by -cmd login")
	headless := flag.Bool("headless", false, "run without the interactive screen and answer push prompts from config")
	flag.Parse()

	// A missing .env file is fine; the variables may come from the environment.
	_ = godotenv.Load()

	// Setup logger
	logger := log.New(os.Stdout, "washroomd ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Storage)
	if err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}
	kv := store.NewGormStore(gormDB)

	creds := apiclient.NewCredentials()
	client := apiclient.New(cfg.API, creds)
	sess := session.NewStore(kv, client, creds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess.Restore(ctx)

	switch *cmd {
	case "login":
		err = login(ctx, logger, sess, client, kv, cfg, *name, *employeeID)
	case "logout":
		sess.SignOut(ctx)
		logger.Println("Signed out.")
	case "run":
		err = run(ctx, logger, sess, client, kv, cfg, *headless)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}

	logger.SetOutput(os.Stdout)
	if errors.Is(err, occupancy.ErrSignedOut) {
		logger.Println("Session expired. Please log in again with -cmd login.")
		os.Exit(1)
	}
	if err != nil {
		logger.Printf("%s failed: %v", *cmd, err)
		os.Exit(1)
	}
}

func login(ctx context.Context, logger *log.Logger, sess *session.Store, client *apiclient.Client, kv store.Store, cfg *config.Config, name, employeeID string) error {
	name = strings.TrimSpace(name)
	employeeID = strings.TrimSpace(employeeID)
	if name == "" || employeeID == "" {
		return errors.New("please enter both name and employee id")
	}

	identity, err := sess.SignIn(ctx, name, employeeID)
	if err != nil {
		return err
	}
	logger.Printf("Signed in as %s (employee %s)", identity.DisplayName, identity.EmployeeID)
	if exp, ok := sess.TokenExpiry(); ok {
		logger.Printf("Session valid until %s", exp.Format(time.RFC1123))
	}

	registrar := notification.NewRegistrar(client, kv, cfg.Push)
	if err := registrar.Register(ctx); err != nil {
		logger.Printf("Push registration skipped: %v", err)
	}
	return nil
}

func run(ctx context.Context, logger *log.Logger, sess *session.Store, client *apiclient.Client, kv store.Store, cfg *config.Config, headless bool) error {
	identity, ok := sess.Current()
	if !ok {
		return errors.New("not signed in; run with -cmd login first")
	}

	if !headless {
		// The screen owns stdout, so everything else logs to a file.
		restore, err := logToFile("washroomd.log", logger)
		if err != nil {
			return err
		}
		defer restore()
	}
	logger.Printf("Running as %s", identity.DisplayName)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine := occupancy.NewService(cfg.Sync, client, sess, occupancy.NewMetrics(reg))

	bridge := notification.NewBridge(cfg.Push)
	bridge.Start(ctx)

	var prompter notification.Prompter
	var app *tui.App
	if headless {
		prompter = notification.AutoPrompter{AutoOccupy: cfg.Push.AutoOccupy, AutoExtend: cfg.Push.AutoExtend}
		defer engine.Subscribe(func(v occupancy.View) { logView(logger, v) })()
		defer engine.Notices(func(n occupancy.Notice) { logger.Printf("[%s] %s: %s", n.Kind, n.Title, n.Message) })()
	} else {
		app = tui.New(ctx, engine)
		prompter = app
	}
	defer bridge.OnPushMessage(notification.NewResponder(engine, prompter).Handle)()

	registrar := notification.NewRegistrar(client, kv, cfg.Push)
	if err := registrar.Start(ctx); err != nil {
		return err
	}

	if cfg.Bridge.NATS.Enabled {
		nc, err := nats.Connect(cfg.Bridge.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Bridge.NATS.URL, err)
		}
		defer nc.Close()
		if err := notification.SubscribeNATS(ctx, nc, cfg.Bridge.NATS.Subject, bridge); err != nil {
			return err
		}
		logger.Printf("Listening for pushes on NATS subject %s", cfg.Bridge.NATS.Subject)
	}

	if cfg.Bridge.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Bridge.Redis.Addr})
		defer rdb.Close()
		if err := notification.SubscribeRedis(ctx, rdb, cfg.Bridge.Redis.Channel, bridge); err != nil {
			return err
		}
		logger.Printf("Listening for pushes on Redis channel %s", cfg.Bridge.Redis.Channel)
	}

	var server *http.Server
	if cfg.Bridge.HTTP.Enabled {
		router := api.NewRouter(api.NewHandler(bridge, engine, registrar), cfg.Bridge.HTTP.RateLimitPerSec, reg)
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Bridge.HTTP.Port),
			Handler: router,
		}

		// Start the server in a goroutine
		go func() {
			logger.Printf("HTTP bridge starting on port %d", cfg.Bridge.HTTP.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("HTTP bridge ListenAndServe: %v", err)
				cancel()
			}
		}()
	}

	var runErr error
	if headless {
		runErr = engine.Run(ctx)
	} else {
		engineErr := make(chan error, 1)
		go func() { engineErr <- engine.Run(ctx) }()

		if err := app.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Printf("screen stopped: %v", err)
		}
		cancel()
		runErr = <-engineErr
	}
	logger.Println("Stopping services...")

	if server != nil {
		// Create a deadline to wait for.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP bridge Shutdown: %v", err)
		}
	}

	if runErr == nil && engine.View().State == occupancy.StateSignedOut {
		logger.Println("Signed out.")
	}
	logger.Println("Stopped")
	return runErr
}

// logToFile points the stdlib logger, logger and gin at path. The returned func
// moves them back to the terminal and then closes the file, so goroutines
// still logging during shutdown never write to a closed file.
func logToFile(path string, logger *log.Logger) (func(), error) {
	f, err := tea.LogToFile(path, "washroomd ")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	gin.DefaultWriter = f
	gin.DefaultErrorWriter = f

	return func() {
		log.SetOutput(os.Stderr)
		logger.SetOutput(os.Stdout)
		gin.DefaultWriter = os.Stdout
		gin.DefaultErrorWriter = os.Stderr
		f.Close()
	}, nil
}

// logView prints one line per washroom after each completed refresh.
func logView(logger *log.Logger, v occupancy.View) {
	if v.State != occupancy.StateReady || v.Refreshing {
		return
	}
	for _, w := range v.Washrooms {
		logger.Printf("Floor %s %s (%s): %s", w.Floor, w.Name, w.Category, w.Summary)
		for _, s := range w.Stalls {
			if s.Mine {
				logger.Printf("  %s is yours, %s", s.Label, s.Remaining)
			}
		}
	}
}
