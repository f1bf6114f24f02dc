package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	adapterwebsocket "outbreak/server/adapter/websocket"
	"outbreak/server/domain"
)

// TokenVerifier は接続時のトークンを検証し、プレイヤーのメールアドレスを返します。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type AcceptHandler struct {
	dispatcher domain.Dispatcher
	verifier   TokenVerifier
	opts       domain.EndpointOptions
}

func NewAcceptHandler(dispatcher domain.Dispatcher, verifier TokenVerifier, opts domain.EndpointOptions) *AcceptHandler {
	return &AcceptHandler{dispatcher: dispatcher, verifier: verifier, opts: opts}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, err := h.verifier.Verify(requestToken(r))
	if err != nil {
		slog.WarnContext(ctx, "rejected unauthenticated connection", "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession(domain.PlayerIdentity{Email: email})
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(session.ID, transport)
	endpoint, err := domain.NewSessionEndpoint(session, connection, h.dispatcher, h.opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "")
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "session_id", session.ID, "email", email)
	err = endpoint.Run()
	if err != nil {
		slog.ErrorContext(ctx, "failed to run session endpoint", "err", err)
		return
	}
}

// requestToken はクエリパラメータまたは Authorization ヘッダからトークンを取り出します。
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}
