package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/core"
	"github.com/vovakirdan/gamebridge-server/internal/domain"
	"github.com/vovakirdan/gamebridge-server/internal/proto"
	"github.com/vovakirdan/gamebridge-server/internal/utils"
)

var (
	errUnsupportedVersion = errors.New("unsupported protocol version")
	errAuthTimeout        = errors.New("authentication timeout")
)

// CredentialVerifier maps a bearer token to an identity.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (domain.Identity, error)
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub      *core.Hub
	verifier CredentialVerifier
	cfg      config.WSConfig
	log      zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, verifier CredentialVerifier, cfg config.WSConfig, logger *zerolog.Logger) stdhttp.Handler {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "ws").Logger()
	}
	return &WSHandler{hub: hub, verifier: verifier, cfg: cfg, log: l}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.cfg.AllowedOrigins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	token := requestToken(r)

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id, err := h.authenticate(ctx, conn, token)
	if err != nil {
		h.reject(ctx, conn, err)
		return
	}

	client := core.NewClient(utils.NewID(), h.cfg.SendBuffer)
	if err := h.hub.Connect(ctx, client, id); err != nil {
		h.reject(ctx, conn, err)
		return
	}
	defer h.hub.Disconnect(context.Background(), client)

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.pingLoop(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// requestToken returns a bearer token sent with the upgrade request, either
// in the Authorization header or the token query parameter.
func requestToken(r *stdhttp.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// authenticate verifies the upgrade token or, without one, waits for a
// hello frame.
func (h *WSHandler) authenticate(ctx context.Context, conn *websocket.Conn, token string) (domain.Identity, error) {
	if token != "" {
		return h.verifier.VerifyCredential(ctx, token)
	}

	readCtx := ctx
	if h.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, h.cfg.AuthTimeout)
		defer cancel()
	}

	_, raw, err := conn.Read(readCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Identity{}, errAuthTimeout
		}
		return domain.Identity{}, err
	}

	var inbound proto.Inbound
	if err := json.Unmarshal(raw, &inbound); err != nil || inbound.Type != proto.InboundTypeHello {
		return domain.Identity{}, domain.Errorf(domain.CodeUnauthorized, "authentication required")
	}
	var hello proto.HelloData
	if err := proto.Decode(inbound.Data, &hello); err != nil {
		return domain.Identity{}, domain.Errorf(domain.CodeUnauthorized, "%s", err.Error())
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return domain.Identity{}, errUnsupportedVersion
	}
	return h.verifier.VerifyCredential(ctx, hello.Token)
}

// reject reports a failed handshake and closes the connection. Transport
// errors close without a frame, and so does an auth timeout: the expired
// read has already closed the connection.
func (h *WSHandler) reject(ctx context.Context, conn *websocket.Conn, err error) {
	var frame proto.Outbound
	switch {
	case errors.Is(err, errUnsupportedVersion):
		frame = errorFrame("auth", proto.CodeUnsupportedVersion, err.Error())
	case domain.CodeOf(err) != domain.CodeInternal:
		frame = errorFrame("auth", string(domain.CodeOf(err)), err.Error())
	case errors.Is(err, errAuthTimeout):
		h.log.Debug().Msg("ws authentication timed out")
		return
	default:
		h.log.Debug().Err(err).Msg("ws handshake aborted")
		return
	}

	h.log.Debug().Err(err).Msg("ws authentication rejected")
	if werr := h.write(ctx, conn, frame); werr != nil {
		return
	}
	conn.Close(websocket.StatusPolicyViolation, frame.Error.Code)
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, v any) error {
	if h.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, v)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerSec, h.cfg.RateBurst)
	for {
		typ, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if typ != websocket.MessageText || json.Unmarshal(raw, &inbound) != nil || inbound.Type == "" {
			client.Deliver(domain.ErrorEvent("session", &domain.Error{Code: proto.CodeInvalidMessage, Message: "malformed frame"}))
			continue
		}
		h.dispatch(ctx, client, limiter, inbound)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *core.Client, limiter *rate.Limiter, inbound proto.Inbound) {
	ns := namespaceOf(inbound.Type)
	if inbound.Type == proto.InboundTypeHello {
		// Already authenticated.
		return
	}
	if !allow(limiter) {
		client.Deliver(domain.ErrorEvent(ns, domain.Errorf(domain.CodeRateLimited, "too many messages")))
		return
	}
	cmd, err := inboundToCommand(inbound)
	if err != nil {
		client.Deliver(domain.ErrorEvent(ns, err))
		return
	}
	h.hub.Handle(ctx, client, cmd)
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	if h.cfg.PingInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.cfg.PingInterval)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
