package lfs

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lfsd/internal/auth"
)

// ResponseWriterWrapper is a wrapper around the default http.ResponseWriter.
// It intercepts the WriteHeader call and saves the response status code, and
// carries the error message a handler recorded for the request log line.
type ResponseWriterWrapper struct {
	http.ResponseWriter
	WrittenResponseCode int
	ErrorMessage        string
}

// WriteHeader intercepts the status code and stores it, then calls the original WriteHeader.
func (w *ResponseWriterWrapper) WriteHeader(statusCode int) {
	w.WrittenResponseCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Write calls the underlying ResponseWriter's Write method.
func (w *ResponseWriterWrapper) Write(b []byte) (int, error) {
	if w.WrittenResponseCode == 0 {
		w.WrittenResponseCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// LogRequest is middleware that logs one line per request: client address,
// protocol, method, url, duration, status, and the handler's error message
// when the request failed.
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ip := r.RemoteAddr
		method := r.Method
		url := r.URL.String()
		proto := r.Proto

		start := time.Now()

		writer := ResponseWriterWrapper{ResponseWriter: w}

		next.ServeHTTP(&writer, r)
		elapsed := time.Since(start).Nanoseconds()

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "proto", proto, "method", method, "url", url, "duration_ms", float64(elapsed)/float64(time.Millisecond), "status_code", writer.WrittenResponseCode)

		if writer.WrittenResponseCode >= 400 {
			slog.Error("Request", userAttrs, requestAttrs, "message", writer.ErrorMessage)
		} else {
			slog.Info("Request", userAttrs, requestAttrs)
		}
	})
}

// Recover is middleware that converts handler panics into a 500 response so a
// single bad request cannot take down the listener.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("Handler panic", "url", r.URL.String(), "panic", v)
				writeError(w, r, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RequireAuthentication is middleware that checks every request against the
// configured auth engine before any routing happens.
func RequireAuthentication(next http.Handler, engine auth.AuthEngine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ok, err := engine.AuthenticateRequest(r.Context(), r)
		if err != nil {
			slog.Error("Authenticate request", "err", err)
		}
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="lfsd"`)
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SlashFix collapses duplicate slashes and strips the trailing slash so the
// classifier sees canonical paths.
func SlashFix(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for strings.Contains(r.URL.Path, "//") {
			r.URL.Path = strings.ReplaceAll(r.URL.Path, "//", "/")
		}

		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimSuffix(r.URL.Path, "/")
		}

		next.ServeHTTP(w, r)
	})
}
