package domain

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	appdomain "outbreak/application/domain"
	"outbreak/application/request"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

const (
	defaultPingInterval = 5 * time.Second
	defaultIdleTimeout  = 10 * time.Second
)

// EndpointOptions はセッションエンドポイントの調整点。ゼロ値は既定値になる。
type EndpointOptions struct {
	PingInterval time.Duration
	IdleTimeout  time.Duration
	Decoder      PayloadDecoder
}

// SessionEndpoint は1接続分の読み書きループとゲーム操作の直列ディスパッチを担います。
// 同一セッションの要求は読み取り順に1つずつ処理されるため、状態機械側の
// 追加ロックは不要です。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	dispatcher Dispatcher
	decode     PayloadDecoder

	pingInterval time.Duration
	idleTimeout  time.Duration

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(session *Session, connection *Connection, dispatcher Dispatcher, opts EndpointOptions) (*SessionEndpoint, error) {
	if session == nil {
		return nil, ErrInitializationFailed
	}
	if connection == nil {
		return nil, ErrInitializationFailed
	}
	if dispatcher == nil {
		return nil, ErrInitializationFailed
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.Decoder == nil {
		opts.Decoder = IdentityDecoder
	}
	ctx, cancel := context.WithCancel(context.Background())
	se := &SessionEndpoint{
		ctx:          ctx,
		cancel:       cancel,
		session:      session,
		connection:   connection,
		dispatcher:   dispatcher,
		decode:       opts.Decoder,
		pingInterval: opts.PingInterval,
		idleTimeout:  opts.IdleTimeout,
		ctrlCh:       make(chan endpointEvent, 16),
		writeCh:      make(chan []byte, 1024),
	}
	return se, nil
}

func (se *SessionEndpoint) Run() error {
	heartbeat := NewHeartbeatService(se.pingInterval, se.session, se.writeCh)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})

	return eg.Wait()
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: nil})
}

func (se *SessionEndpoint) ForceClose() {
	se.close()
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			ok, reason := se.session.IsIdle(se.idleTimeout)
			if ok {
				slog.InfoContext(ctx, "session idle, closing", "sessionID", se.session.ID, "reason", reason.String())
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := se.connection.Read(ctx)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
				return
			}
			se.handleData(ctx, data)
		}
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			err := se.connection.Write(ctx, data)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: err})
				continue
			}
			se.session.TouchWrite()
		}
	}
}

func (se *SessionEndpoint) close() {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	se.connection.Close()
}

// handleData は受信メッセージ1件を処理します。ゲーム操作はこのゴルーチン上で
// 直列に実行され、応答は書き込みチャネル経由で送信されます。
func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	se.session.TouchRead()

	req, err := DecodeRequest(data, se.decode)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode request", "sessionID", se.session.ID, "err", err)
		se.respond(ctx, ErrorResponse{Message: "Couldn't parse request"})
		return
	}
	if req.Kind == KindPong {
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
		return
	}

	// 切断が始まっても進行中の永続化は最後まで走らせる
	resp := se.dispatch(context.WithoutCancel(ctx), req)
	se.respond(ctx, resp)
}

func (se *SessionEndpoint) dispatch(ctx context.Context, req Request) Response {
	email := se.session.Identity.Email

	switch req.Kind {
	case KindSeed:
		seed, err := se.dispatcher.Seed(ctx, email)
		if err != nil {
			return se.errorResponse(ctx, req.Kind, err)
		}
		return SeedResponse{Data: seed}

	case KindStart:
		var r request.Start
		if err := json.Unmarshal([]byte(req.Payload), &r); err != nil {
			return ErrorResponse{Message: "Couldn't parse request"}
		}
		res, err := se.dispatcher.Start(ctx, email, r)
		if err != nil {
			return se.errorResponse(ctx, req.Kind, err)
		}
		return StartResponse{SimulatorResponse: res}

	case KindControl:
		var r request.ControlMeasure
		if err := json.Unmarshal([]byte(req.Payload), &r); err != nil {
			return ErrorResponse{Message: "Couldn't parse request"}
		}
		res, err := se.dispatcher.ControlMeasure(ctx, email, r)
		if err != nil {
			return se.errorResponse(ctx, req.Kind, err)
		}
		return ControlResponse{ActionResponse: res}

	case KindEvent:
		var r request.Event
		if err := json.Unmarshal([]byte(req.Payload), &r); err != nil {
			return ErrorResponse{Message: "Couldn't parse request"}
		}
		out, err := se.dispatcher.Event(ctx, email, r)
		if err != nil {
			return se.errorResponse(ctx, req.Kind, err)
		}
		switch {
		case out.Info != nil:
			return EventPendingResponse{EventInfo: *out.Info}
		case out.Resolved != nil:
			return EventResolvedResponse{ActionResponse: *out.Resolved}
		default:
			return OkResponse{Message: out.Message}
		}

	case KindSave:
		var r request.Save
		if err := json.Unmarshal([]byte(req.Payload), &r); err != nil {
			return ErrorResponse{Message: "Couldn't parse request"}
		}
		msg, err := se.dispatcher.Save(ctx, email, r)
		if err != nil {
			return se.errorResponse(ctx, req.Kind, err)
		}
		return InfoResponse{Message: msg}
	}

	return ErrorResponse{Message: "Invalid request sent"}
}

func (se *SessionEndpoint) errorResponse(ctx context.Context, kind string, err error) Response {
	if appdomain.IsInternal(err) {
		slog.ErrorContext(ctx, "dispatch failed", "sessionID", se.session.ID, "kind", kind, "err", err)
		return ErrorResponse{Message: "Internal Server Error"}
	}
	slog.InfoContext(ctx, "request rejected", "sessionID", se.session.ID, "kind", kind, "err", err)
	return ErrorResponse{Message: userMessage(err)}
}

// userMessage はゲーム層のエラーをクライアント向けの文面へ写します。
func userMessage(err error) string {
	switch {
	case errors.Is(err, appdomain.ErrInsufficientFunds):
		return "Not enough money"
	case errors.Is(err, appdomain.ErrAlreadyApplied):
		return "Control measure with same level already active"
	case errors.Is(err, appdomain.ErrNotApplied):
		return "Control Measure was not applied"
	case errors.Is(err, appdomain.ErrNotFound):
		return "Not found"
	case errors.Is(err, appdomain.ErrInvalidRequest):
		return "Invalid request sent"
	default:
		return "Internal Server Error"
	}
}

func (se *SessionEndpoint) respond(ctx context.Context, resp Response) {
	data, err := EncodeResponse(resp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "sessionID", se.session.ID, "err", err)
		return
	}
	if err := se.Send(data); err != nil {
		slog.WarnContext(ctx, "failed to enqueue response", "sessionID", se.session.ID, "err", err)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		se.close()
	case evPong:
		se.session.TouchPong()
	case evReadError:
		se.close()
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
