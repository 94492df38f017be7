package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/emrgen/canvas/internal/graph"
	"github.com/sirupsen/logrus"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorNameHeader = "X-Actor-Name"
)

type actorKey struct{}

// statusRecorder keeps the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to a websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T cannot be hijacked", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// RequestTimeMiddleware logs the method, path, status and duration of every
// request.
func RequestTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		reqTime := time.Since(start)
		logrus.Infof("request time: %s %s %d: %v", r.Method, r.URL.Path, rec.status, reqTime)
	})
}

// ActorMiddleware reads the acting user from the request headers. Requests
// that change state must name an actor.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := graph.Actor{
			ID:   r.Header.Get(actorIDHeader),
			Name: r.Header.Get(actorNameHeader),
		}
		if actor.Name == "" {
			actor.Name = actor.ID
		}

		if actor.ID == "" && r.Method != http.MethodGet && r.Method != http.MethodOptions {
			respondError(w, http.StatusUnauthorized, "missing "+actorIDHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(ctx context.Context) graph.Actor {
	actor, _ := ctx.Value(actorKey{}).(graph.Actor)
	return actor
}
