package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

var validUnits = map[string]bool{
	"standard": true,
	"metric":   true,
	"imperial": true,
}

type weatherSummary struct {
	City        string          `json:"city"`
	Weather     string          `json:"weather"`
	Temperature float64         `json:"temperature"`
	FeelsLike   float64         `json:"feels_like"`
	Humidity    float64         `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Raw         json.RawMessage `json:"raw"`
}

// writeUpstreamError translates an outbound failure: an upstream HTTP error
// keeps the upstream's status and body, anything else (timeout, DNS,
// connection refused) becomes a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error, msg string) {
	var ue *upstreamError
	if errors.As(err, &ue) {
		writeErrorDetails(w, "external API error", ue.body, ue.statusCode)
		return
	}
	writeErrorDetails(w, msg, err.Error(), http.StatusBadGateway)
}

func (app *application) getWeatherHandler(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	units := r.URL.Query().Get("units")
	if units == "" {
		units = "metric"
	}

	v := newValidator()
	v.checkCond(city != "", "city", "must be provided")
	v.checkCond(validUnits[units], "units", "must be one of standard, metric, imperial")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	if app.upstream.weatherAPIKey == "" {
		writeError(w, errors.New("weather API key not configured"), http.StatusInternalServerError)
		return
	}

	body, err := app.upstream.getWeather(r.Context(), city, units)
	if err != nil {
		writeUpstreamError(w, err, "failed to fetch weather")
		return
	}

	var data struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		writeErrorDetails(w, "failed to fetch weather", "malformed upstream response", http.StatusBadGateway)
		return
	}

	summary := weatherSummary{
		City:        data.Name,
		Temperature: data.Main.Temp,
		FeelsLike:   data.Main.FeelsLike,
		Humidity:    data.Main.Humidity,
		WindSpeed:   data.Wind.Speed,
		Raw:         body,
	}
	if len(data.Weather) > 0 {
		summary.Weather = data.Weather[0].Description
	}
	writeJSON(w, summary, http.StatusOK)
}

func (app *application) getCryptoPriceHandler(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query().Get("ids")
	if ids == "" {
		ids = "bitcoin"
	}
	vsCurrency := r.URL.Query().Get("vs_currency")
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	body, err := app.upstream.getSimplePrice(r.Context(), ids, vsCurrency)
	if err != nil {
		writeUpstreamError(w, err, "failed to fetch crypto prices")
		return
	}

	response := struct {
		Query struct {
			IDs        string `json:"ids"`
			VsCurrency string `json:"vs_currency"`
		} `json:"query"`
		Prices json.RawMessage `json:"prices"`
	}{}
	response.Query.IDs = ids
	response.Query.VsCurrency = vsCurrency
	response.Prices = body
	writeJSON(w, response, http.StatusOK)
}

func (app *application) getCryptoMarketsHandler(w http.ResponseWriter, r *http.Request) {
	vsCurrency := r.URL.Query().Get("vs_currency")
	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	perPage := 20
	page := 1
	v := newValidator()
	if s := r.URL.Query().Get("per_page"); s != "" {
		n, err := strconv.Atoi(s)
		v.checkCond(err == nil && n > 0, "per_page", "must be a positive integer")
		perPage = n
	}
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		v.checkCond(err == nil && n > 0, "page", "must be a positive integer")
		page = n
	}
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	body, err := app.upstream.getMarkets(r.Context(), vsCurrency, perPage, page)
	if err != nil {
		writeUpstreamError(w, err, "failed to fetch crypto markets")
		return
	}

	// Counting is the only reshaping here; elements pass through untouched.
	var results []json.RawMessage
	if err := json.Unmarshal(body, &results); err != nil {
		writeErrorDetails(w, "failed to fetch crypto markets", "malformed upstream response", http.StatusBadGateway)
		return
	}

	response := struct {
		Count   int             `json:"count"`
		Results json.RawMessage `json:"results"`
	}{
		Count:   len(results),
		Results: body,
	}
	writeJSON(w, response, http.StatusOK)
}
