package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/creatorhq/marketplace/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger writes one line when a request starts and one when it completes,
// with the status and size captured from the wrapped writer.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			log := log
			if rid := ContextRequestID(ctx); rid != "" {
				log = log.WithField("req_id", rid)
			}
			log = log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			})

			log.Info("request started")
			start := time.Now().UTC()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			log.WithFields(logrus.Fields{
				"status":  lw.Status(),
				"bytes":   lw.BytesWritten(),
				"took_ms": time.Since(start).Milliseconds(),
			}).Info("request completed")

			return err
		}
		return h
	}
	return m
}
