package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow-sync/api"
	"taskflow-sync/auth"
	"taskflow-sync/client"
	"taskflow-sync/domain"
	"taskflow-sync/notify"
	"taskflow-sync/store"
)

func main() {
	logger := log.StandardLogger()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}

	apiURL := os.Getenv("TASKFLOW_API_URL")
	if apiURL == "" {
		log.Fatal("missing TASKFLOW_API_URL")
	}

	tokens, err := tokenProvider(apiURL, logger)
	if err != nil {
		log.Fatalf("auth config: %v", err)
	}
	remote, err := client.New(client.Config{BaseURL: apiURL, Tokens: tokens, Logger: logger})
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	var snapshot *store.Snapshot
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		ttl := 24 * time.Hour
		if v := os.Getenv("SNAPSHOT_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid SNAPSHOT_TTL: %v", err)
			}
			ttl = d
		}
		snapshot = store.NewSnapshot(redis.NewClient(redisOptions(redisConn)), ttl, logger)
	}

	sprints, err := loadSprints(os.Getenv("SPRINTS_FILE"))
	if err != nil {
		log.Fatalf("sprints: %v", err)
	}

	ring := notify.NewRing(0)
	sink := notify.Multi{ring, notify.NewLog(logger)}
	board := store.New(remote, sink, logger, store.Options{Snapshot: snapshot, Sprints: sprints})

	ctx := context.Background()
	if err := board.Start(ctx); err != nil {
		logger.WithError(err).Warn("initial sync failed; serving with an empty mirror")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	api.Register(e, board, ring, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		listenAddr = val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// tokenProvider picks the credential source: a fixed token when one is
// configured, otherwise a login session, otherwise unauthenticated.
func tokenProvider(apiURL string, logger *log.Logger) (client.TokenProvider, error) {
	if token := os.Getenv("TASKFLOW_TOKEN"); token != "" {
		return auth.NewStatic(token, logger), nil
	}
	username := os.Getenv("TASKFLOW_USERNAME")
	password := os.Getenv("TASKFLOW_PASSWORD")
	if username == "" && password == "" {
		logger.Warn("no credentials configured; requests go out unauthenticated")
		return auth.Static(""), nil
	}
	// The login call itself must not carry a session token.
	loginClient, err := client.New(client.Config{BaseURL: apiURL, Logger: logger})
	if err != nil {
		return nil, err
	}
	return auth.NewSession(loginClient.Login, username, password, logger), nil
}

// redisOptions accepts a redis:// URL or the comma-separated
// "host:port,password=...,ssl=true" form some managed caches hand out.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func loadSprints(path string) ([]domain.Sprint, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sprints []domain.Sprint
	if err := sonic.ConfigStd.Unmarshal(data, &sprints); err != nil {
		return nil, err
	}
	return sprints, nil
}
