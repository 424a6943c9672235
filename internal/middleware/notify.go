package middleware

import (
	"art-catalog-service/internal/notifier"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Notifier publishes the body of every successful POST after the response
// has been written. Publishing happens in the background and its outcome
// never reaches the client.
type Notifier struct {
	publisher notifier.Publisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewNotifier(publisher notifier.Publisher, timeout time.Duration) *Notifier {
	return &Notifier{publisher: publisher, timeout: timeout}
}

func (n *Notifier) Middleware() echo.MiddlewareFunc {
	return middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method != http.MethodPost
		},
		Handler: n.publish,
	})
}

func (n *Notifier) publish(c echo.Context, reqBody, _ []byte) {
	status := c.Response().Status
	if status < 200 || status >= 300 {
		return
	}

	key := eventKey(c.Path())
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, key, reqBody); err != nil {
			logger.Error().Err(err).Msgf("Could not publish %s", key)
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func eventKey(route string) string {
	if route == "/api/catalog" {
		return "catalog.created"
	}
	return "catalog.updated"
}
