package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape endpoint for the collector's registry.
//
// The handler is built once and cached. It registers its own scrape
// bookkeeping, the promhttp request counter and in-flight gauge, with the
// registry, and a second registration would collide when the
// observability listeners are stopped and brought back. A scrape keeps
// serving whatever gathered cleanly if an individual collector fails;
// the failure is logged instead of aborting the exposition.
func (c *Collector) Handler() http.Handler {
	c.scrapeOnce.Do(func() {
		inner := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			ErrorLog:          scrapeLog{slog.Default().With("component", "metrics")},
		})
		c.scrapeHandler = promhttp.InstrumentMetricHandler(c.registry, inner)
	})
	return c.scrapeHandler
}

// scrapeLog adapts promhttp's print-style logger to slog.
type scrapeLog struct {
	logger *slog.Logger
}

func (l scrapeLog) Println(v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintln(v...)))
}
