package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"spotapi-go/cache"
	"spotapi-go/config"
	"spotapi-go/middleware"
	"spotapi-go/services/spotify"
	"spotapi-go/stats"
)

var (
	conf            = config.Get()
	persistentCache *cache.PersistentCache
	statsStore      *stats.Store
	gateway         metadataGateway
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

func main() {
	initPersistentCache()
	defer persistentCache.Close()

	initStatsStore()
	if statsStore != nil {
		defer statsStore.Close()
	}

	startCacheSweeper()

	gateway = spotify.New()

	router := mux.NewRouter()
	router.SkipClean(true)
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond),
		conf.Configuration.RateLimitBurstLimit,
	)

	loggedRouter := middleware.LoggingMiddleware(router)
	corsHandler := c.Handler(loggedRouter)
	handler := limitMiddleware(corsHandler, limiter)

	port := conf.Configuration.Port
	log.Infof("Server listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
