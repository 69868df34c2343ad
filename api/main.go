package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

type config struct {
	port int
	env  string
	db   struct {
		dsn                string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	limiter struct {
		enabled              bool
		maxRequestsPerSecond float64
		burst                int
	}
	cors struct {
		trustedOrigins []string
	}
	upstream struct {
		weatherBaseURL string
		cryptoBaseURL  string
		weatherAPIKey  string
	}
	jwtSecret string
	logLevel  string
}

type application struct {
	config   config
	logger   *logrus.Logger
	storage  store
	mailer   *mailer
	upstream *upstreamClient
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func main() {
	// A missing .env is fine; real deployments configure the process
	// environment directly.
	godotenv.Load()

	var cfg config
	flag.IntVar(&cfg.port, "port", 8000, "Server Port")
	flag.StringVar(&cfg.env, "env", "development", "Environment [development|production]")
	flag.StringVar(&cfg.logLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level [debug|info|warn|error]")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConnections, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConnections, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	var maxIdleTime string
	flag.StringVar(&maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.StringVar(&cfg.smtp.host, "smtp-host", os.Getenv("SMTP_HOST"), "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", getEnvInt("SMTP_PORT", 25), "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", os.Getenv("SMTP_SENDER"), "SMTP sender")

	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", false, "Enable per-IP rate limiting")
	flag.Float64Var(&cfg.limiter.maxRequestsPerSecond, "limiter-rps", 10, "Rate limiter max requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 20, "Rate limiter burst")

	var trustedOrigins string
	flag.StringVar(&trustedOrigins, "cors-trusted-origins", getEnv("CORS_TRUSTED_ORIGINS", ""), "Trusted CORS origins (space separated)")

	flag.StringVar(&cfg.upstream.weatherBaseURL, "weather-url", getEnv("WEATHER_API_URL", "https://api.openweathermap.org"), "Weather API base URL")
	flag.StringVar(&cfg.upstream.cryptoBaseURL, "crypto-url", getEnv("CRYPTO_API_URL", "https://api.coingecko.com"), "Crypto API base URL")
	flag.StringVar(&cfg.upstream.weatherAPIKey, "weather-api-key", os.Getenv("OPENWEATHER_API_KEY"), "OpenWeather API key")

	flag.StringVar(&cfg.jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	flag.Parse()

	cfg.cors.trustedOrigins = strings.Fields(trustedOrigins)

	logger := newLogger(cfg.logLevel)

	d, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		cfg.db.maxIdleTime = 15 * time.Minute
		logger.Warnf(`invalid value %s for flag "db-max-idle-time" defaulting to %s`, maxIdleTime, cfg.db.maxIdleTime)
	} else {
		cfg.db.maxIdleTime = d
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("established a connection with database")

	if err := setupSchema(db); err != nil {
		logger.Fatal(err)
	}

	if cfg.jwtSecret == "" {
		// Tokens won't survive a restart without a configured secret.
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		if err != nil {
			logger.Fatal(err)
		}
		cfg.jwtSecret = string(secret)
		logger.Warn("JWT_SECRET not set, generated an ephemeral secret")
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		storage:  newStorage(db),
		upstream: newUpstreamClient(cfg),
	}
	if cfg.smtp.host != "" {
		app.mailer = newMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.WithFields(logrus.Fields{
		"env":  cfg.env,
		"port": cfg.port,
	}).Info("starting server")
	err = srv.ListenAndServe()
	logger.Fatal(err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
