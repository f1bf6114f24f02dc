package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	appdomain "outbreak/application/domain"
)

// Kind は受信メッセージの種別。
const (
	KindSeed    = "Seed"
	KindStart   = "Start"
	KindControl = "Control"
	KindEvent   = "Event"
	KindSave    = "Save"
	KindPong    = "Pong"
)

// Request は受信メッセージの共通封筒。Payload には種別ごとのJSONが
// 文字列としてもう一段エンコードされて入る。
type Request struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// PayloadDecoder は封筒から取り出したペイロードを解析前に変換するフックです。
// 暗号化されたペイロードの復号などに差し込みます。
type PayloadDecoder func(payload string) (string, error)

// IdentityDecoder はペイロードをそのまま返す既定のデコーダーです。
func IdentityDecoder(payload string) (string, error) {
	return payload, nil
}

var ErrMalformedRequest = errors.New("malformed request")

// DecodeRequest は受信バイト列を封筒として解析し、デコーダーを適用します。
func DecodeRequest(data []byte, decode PayloadDecoder) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if decode != nil {
		payload, err := decode(req.Payload)
		if err != nil {
			return Request{}, fmt.Errorf("%w: decode payload: %v", ErrMalformedRequest, err)
		}
		req.Payload = payload
	}
	return req, nil
}

// Response は送信メッセージの閉じた和型。EventTag が封筒の event_type になる。
type Response interface {
	EventTag() string
	body() (string, error)
}

// SeedResponse はシリアライズ済みの初期化データをそのまま運びます。
type SeedResponse struct {
	Data string
}

// StartResponse は Start 操作のシミュレーション結果。
type StartResponse struct {
	appdomain.SimulatorResponse
}

// ControlResponse は対策操作の結果。
type ControlResponse struct {
	appdomain.ActionResponse
}

// EventResolvedResponse はイベント受諾の結果。
type EventResolvedResponse struct {
	appdomain.ActionResponse
}

// EventPendingResponse は保留中イベントの提示。
type EventPendingResponse struct {
	appdomain.EventInfo
}

// OkResponse は副作用だけの操作に対する文面応答。
type OkResponse struct {
	Message string
}

// InfoResponse は処理中であることを伝える文面応答。
type InfoResponse struct {
	Message string
}

// ErrorResponse は利用者向けのエラー文面。
type ErrorResponse struct {
	Message string
}

// PingResponse は死活監視のping。ペイロードは持たない。
type PingResponse struct{}

func (SeedResponse) EventTag() string          { return "Seed" }
func (StartResponse) EventTag() string         { return "Start" }
func (ControlResponse) EventTag() string       { return "Control" }
func (EventResolvedResponse) EventTag() string { return "Event" }
func (EventPendingResponse) EventTag() string  { return "EventParams" }
func (OkResponse) EventTag() string            { return "Ok" }
func (InfoResponse) EventTag() string          { return "Info" }
func (ErrorResponse) EventTag() string         { return "Error" }
func (PingResponse) EventTag() string          { return "Ping" }

func (r SeedResponse) body() (string, error)  { return r.Data, nil }
func (r OkResponse) body() (string, error)    { return r.Message, nil }
func (r InfoResponse) body() (string, error)  { return r.Message, nil }
func (r ErrorResponse) body() (string, error) { return r.Message, nil }
func (PingResponse) body() (string, error)    { return "", nil }

func (r StartResponse) body() (string, error)         { return jsonBody(r.SimulatorResponse) }
func (r ControlResponse) body() (string, error)       { return jsonBody(r.ActionResponse) }
func (r EventResolvedResponse) body() (string, error) { return jsonBody(r.ActionResponse) }
func (r EventPendingResponse) body() (string, error)  { return jsonBody(r.EventInfo) }

func jsonBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type envelope struct {
	EventType string `json:"event_type"`
	Payload   string `json:"payload"`
}

// EncodeResponse は応答を {event_type, payload} 封筒へエンコードします。
// payload は本文をJSON文字列として入れ子にした形になる。
func EncodeResponse(r Response) ([]byte, error) {
	payload, err := r.body()
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", r.EventTag(), err)
	}
	return json.Marshal(envelope{
		EventType: r.EventTag(),
		Payload:   payload,
	})
}
