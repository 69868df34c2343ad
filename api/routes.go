package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthcheck", app.healthCheckHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /auth/register/", app.registerUserHandler)
	mux.HandleFunc("POST /auth/token/", app.createTokenHandler)
	mux.HandleFunc("POST /auth/token/verify/", app.verifyTokenHandler)

	mux.HandleFunc("GET /tasks/", app.requireAuthenticatedUser(app.getTasksHandler))
	mux.HandleFunc("POST /tasks/", app.requireAuthenticatedUser(app.createTaskHandler))
	mux.HandleFunc("GET /tasks/{id}/", app.requireAuthenticatedUser(app.getTaskHandler))
	mux.HandleFunc("PUT /tasks/{id}/", app.requireAuthenticatedUser(app.updateTaskHandler))
	mux.HandleFunc("PATCH /tasks/{id}/", app.requireAuthenticatedUser(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}/", app.requireAuthenticatedUser(app.deleteTaskHandler))

	mux.HandleFunc("GET /external/weather/", app.getWeatherHandler)
	mux.HandleFunc("GET /external/crypto/", app.getCryptoPriceHandler)
	mux.HandleFunc("GET /external/crypto_markets/", app.getCryptoMarketsHandler)

	var handler http.Handler = mux
	handler = app.enableCORS(handler)
	if app.config.limiter.enabled {
		handler = app.rateLimit(handler)
	}
	handler = metricsMiddleware(handler)
	handler = app.logRequests(handler)
	handler = requestID(handler)
	return handler
}
