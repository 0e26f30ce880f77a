// Copyright 2024-2026 Aiku AI

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// maxEventBodySize bounds Events API request bodies (1 MB).
const maxEventBodySize = 1 << 20

// Router builds the HTTP routes served by the connector.
func (sc *SlackConnector) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(sc.Log))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", sc.HandleHealth)
	r.Post("/slack/events", sc.HandleSlackEvents)
	r.Post("/api/reload-channels", sc.HandleReloadChannels)
	return r
}

// metricsMiddleware records request counts and latencies labelled by route
// pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// requestLogger logs every completed request.
func requestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("Request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// HandleHealth reports liveness along with the listened channel count and
// the relay queue depth.
func (sc *SlackConnector) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status   string `json:"status"`
		Channels int    `json:"channels"`
		Queue    int    `json:"queue"`
	}{
		Status:   "ok",
		Channels: sc.ChannelCount(),
		Queue:    sc.relay.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		sc.Log.Warn().Err(err).Msg("Failed to write health response")
	}
}

// HandleSlackEvents is the Events API request URL. Requests must carry a
// valid Slack signature. Callbacks are acknowledged immediately and
// processed in the background.
func (sc *SlackConnector) HandleSlackEvents(w http.ResponseWriter, r *http.Request) {
	if sc.Config.Slack.SigningSecret == "" {
		http.Error(w, "events API is not configured", http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, sc.Config.Slack.SigningSecret)
	if err != nil {
		sc.Log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejecting unsigned event request")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if _, err = verifier.Write(body); err != nil {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if err = verifier.Ensure(); err != nil {
		sc.Log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejecting event request with bad signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var envelope struct {
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}
	if err = json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if envelope.Type == slackevents.CallbackEvent && !isJSONObject(envelope.Event) {
		http.Error(w, "callback without event", http.StatusBadRequest)
		return
	}
	apiEvent, err := slackevents.ParseEvent(body, slackevents.OptionNoVerifyToken())
	if err != nil {
		// Inner event types unknown to slack-go are acknowledged so Slack
		// does not retry them.
		sc.Log.Debug().Err(err).Msg("Ignoring unparseable event")
		w.WriteHeader(http.StatusOK)
		return
	}

	switch apiEvent.Type {
	case slackevents.URLVerification:
		challenge, ok := apiEvent.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			http.Error(w, "invalid challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
	case slackevents.CallbackEvent:
		eventsReceived.WithLabelValues("http").Inc()
		w.WriteHeader(http.StatusOK)
		ctx := context.WithoutCancel(r.Context())
		sc.inflight.Add(1)
		go func() {
			defer sc.inflight.Done()
			sc.dispatch(ctx, apiEvent)
		}()
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
