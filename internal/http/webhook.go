package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jmehdipour/kuritterweight/internal/config"
	"github.com/jmehdipour/kuritterweight/internal/dedup"
	"github.com/jmehdipour/kuritterweight/internal/line"
	"github.com/jmehdipour/kuritterweight/internal/metrics"
	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// webhookHandler accepts a batch of chat events and handles each on its own
// goroutine. Per-event failures are logged and counted, and the platform always
// gets 200 once every event has finished.
func webhookHandler(cfg config.LineConfig, events EventHandler, dd *dedup.RedisStore, log *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		log := log.With(zap.String("request_id", reqID))

		if strings.TrimSpace(cfg.ChannelAccessToken) == "" {
			log.Error("webhook: channel access token not configured")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Invalid configuration"})
		}

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if cfg.ChannelSecret != "" && !line.ValidateSignature(cfg.ChannelSecret, body, c.Request().Header.Get(line.SignatureHeader)) {
			log.Warn("webhook: signature mismatch")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		}

		var req model.WebhookRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		ctx := c.Request().Context()

		wg := conc.NewWaitGroup()
		for _, ev := range req.Events {
			wg.Go(func() {
				defer func() {
					if r := recover(); r != nil {
						metrics.EventsTotal.WithLabelValues("panic").Inc()
						log.Error("webhook: event handler panicked",
							zap.String("event_id", ev.WebhookEventID), zap.Any("panic", r), zap.Stack("stack"))
					}
				}()
				handleEvent(ctx, events, dd, log, ev)
			})
		}
		wg.Wait()

		return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	}
}

func handleEvent(ctx context.Context, events EventHandler, dd *dedup.RedisStore, log *zap.Logger, ev model.InboundEvent) {
	log = log.With(
		zap.String("event_id", ev.WebhookEventID),
		zap.String("event_type", string(ev.Type)),
		zap.String("user_id", ev.UserID()),
	)
	if ev.DeliveryContext != nil && ev.DeliveryContext.IsRedelivery {
		log = log.With(zap.Bool("redelivery", true))
	}

	first, err := dd.FirstSeen(ctx, ev.WebhookEventID)
	if err != nil {
		log.Warn("webhook: dedup unavailable", zap.Error(err))
	}
	if !first {
		metrics.EventsTotal.WithLabelValues("duplicate").Inc()
		log.Info("webhook: duplicate event skipped")
		return
	}

	outcome, err := events.HandleEvent(ctx, ev)
	metrics.EventsTotal.WithLabelValues(outcome.String()).Inc()
	if err != nil {
		log.Error("webhook: event failed", zap.Error(err))
		return
	}
	log.Debug("webhook: event handled", zap.Stringer("outcome", outcome))
}
