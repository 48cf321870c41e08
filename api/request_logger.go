// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"time"

	"github.com/nnsW3/core-lido/log"
)

type loggedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *loggedResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// requestLoggerHandler logs every request after it completes.
func requestLoggerHandler(handler http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		lrw := &loggedResponseWriter{w, http.StatusOK}
		handler.ServeHTTP(lrw, r)

		logger.Info("http request",
			"method", r.Method,
			"uri", r.URL.String(),
			"status", lrw.statusCode,
			"duration", time.Since(now),
			"remote", r.RemoteAddr,
		)
	})
}
