package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// serveMetrics exposes the default registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, log *zap.Logger) {
	if addr == "" {
		return
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echoprometheus.NewHandler())

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener exited", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(sctx)
	}()
}
