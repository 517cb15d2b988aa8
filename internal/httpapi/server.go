// Package httpapi exposes a match to a rendering client over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chess/rules"
	"github.com/park285/cheese-chess/internal/service/match"
	"github.com/park285/cheese-chess/pkg/matchdto"
)

const maxBodyBytes = 1 << 16

// Match is the controller surface the handlers drive.
type Match interface {
	MakeMove(m rules.Move) (rules.MoveRecord, error)
	Undo() bool
	Resign() bool
	Restart() bool
	RestartWith(s match.Settings) bool
	RetryComputer() bool
	LegalDestinations(sq rules.Square) []rules.Square
	Snapshot() matchdto.Snapshot
}

type Server struct {
	match  Match
	logger *zap.Logger
	srv    *fasthttp.Server
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(m Match, opts ...Option) *Server {
	s := &Server{match: m, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "cheese-chess",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: maxBodyBytes,
	}
	return s
}

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http listening", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	ctx.Response.Header.Set("Cache-Control", "no-store")

	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == "/state" && ctx.IsGet():
		writeJSON(ctx, fasthttp.StatusOK, s.match.Snapshot())
	case path == "/legal" && ctx.IsGet():
		s.handleLegal(ctx)
	case path == "/move" && ctx.IsPost():
		s.handleMove(ctx)
	case path == "/undo" && ctx.IsPost():
		s.control(ctx, s.match.Undo)
	case path == "/resign" && ctx.IsPost():
		s.control(ctx, s.match.Resign)
	case path == "/retry" && ctx.IsPost():
		s.control(ctx, s.match.RetryComputer)
	case path == "/restart" && ctx.IsPost():
		s.handleRestart(ctx)
	case knownPath(path):
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not_found", "no such endpoint")
	}

	s.logger.Debug("http request",
		zap.ByteString("method", ctx.Method()),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func knownPath(p string) bool {
	switch p {
	case "/state", "/legal", "/move", "/undo", "/resign", "/retry", "/restart":
		return true
	}
	return false
}

func (s *Server) handleLegal(ctx *fasthttp.RequestCtx) {
	raw := string(ctx.QueryArgs().Peek("square"))
	sq, err := rules.ParseSquare(raw)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid_square", err.Error())
		return
	}
	dests := s.match.LegalDestinations(sq)
	resp := matchdto.LegalResponse{Square: sq.String(), Destinations: make([]string, 0, len(dests))}
	for _, d := range dests {
		resp.Destinations = append(resp.Destinations, d.String())
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req matchdto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "malformed_body", "request body must be a JSON move")
		return
	}
	m, err := parseMove(req)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "malformed_move", err.Error())
		return
	}
	rec, err := s.match.MakeMove(m)
	if err != nil {
		status, code := classify(err)
		writeError(ctx, status, code, err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, matchdto.MoveResponse{
		Move:     match.HistoryEntry(rec),
		Snapshot: s.match.Snapshot(),
	})
}

func parseMove(req matchdto.MoveRequest) (rules.Move, error) {
	from, err := rules.ParseSquare(req.From)
	if err != nil {
		return rules.Move{}, err
	}
	to, err := rules.ParseSquare(req.To)
	if err != nil {
		return rules.Move{}, err
	}
	m := rules.Move{From: from, To: to}
	if p := strings.TrimSpace(req.Promotion); p != "" {
		pt, ok := rules.ParsePromotion(p)
		if !ok {
			return rules.Move{}, rules.ErrInvalidPromotion
		}
		m.Promotion = pt
	}
	return m, nil
}

func (s *Server) handleRestart(ctx *fasthttp.RequestCtx) {
	body := ctx.PostBody()
	if len(body) == 0 {
		s.control(ctx, s.match.Restart)
		return
	}
	var v matchdto.Settings
	if err := json.Unmarshal(body, &v); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "malformed_body", "restart body must be JSON settings")
		return
	}
	settings := match.SettingsFromView(v)
	s.control(ctx, func() bool { return s.match.RestartWith(settings) })
}

// control runs a command that either applies or is silently declined.
func (s *Server) control(ctx *fasthttp.RequestCtx, cmd func() bool) {
	applied := cmd()
	writeJSON(ctx, fasthttp.StatusOK, matchdto.ControlResponse{Applied: applied, Snapshot: s.match.Snapshot()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, rules.ErrInvalidPromotion):
		return fasthttp.StatusUnprocessableEntity, "invalid_promotion"
	case errors.Is(err, rules.ErrIllegalMove):
		return fasthttp.StatusUnprocessableEntity, "illegal_move"
	case errors.Is(err, match.ErrMatchCompleted):
		return fasthttp.StatusConflict, "match_completed"
	case errors.Is(err, match.ErrNotHumanTurn):
		return fasthttp.StatusConflict, "not_your_turn"
	case errors.Is(err, match.ErrMatchNotStarted):
		return fasthttp.StatusConflict, "match_not_started"
	case errors.Is(err, match.ErrClosed):
		return fasthttp.StatusServiceUnavailable, "match_closed"
	default:
		return fasthttp.StatusInternalServerError, "internal"
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"code":"internal"}`)
		return
	}
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	writeJSON(ctx, status, matchdto.DomainError{Code: code, Message: msg, Retryable: status >= 500})
}
