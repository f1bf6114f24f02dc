package request

import (
	"outbreak/application/domain"
)

// ControlMeasureAction は制御策に対するプレイヤーの操作種別。
type ControlMeasureAction string

const (
	ControlApply  ControlMeasureAction = "Apply"
	ControlRemove ControlMeasureAction = "Remove"
)

// Valid は既知の操作種別かどうかを返す。
func (a ControlMeasureAction) Valid() bool {
	return a == ControlApply || a == ControlRemove
}

// EventAction はイベントに対するプレイヤーの操作種別。
type EventAction string

const (
	EventRequest  EventAction = "Request"
	EventAccept   EventAction = "Accept"
	EventDecline  EventAction = "Decline"
	EventPostpone EventAction = "Postpone"
)

func (a EventAction) Valid() bool {
	switch a {
	case EventRequest, EventAccept, EventDecline, EventPostpone:
		return true
	}
	return false
}

// Start は地域のシミュレーション開始要求。
type Start struct {
	Region int `json:"region"`
}

// ControlMeasure は制御策の適用・解除要求。
// Params はクライアントが現在保持しているシミュレーションパラメータのスナップショット。
type ControlMeasure struct {
	Level   int                     `json:"level"`
	CurDate float64                 `json:"cur_date"`
	Name    string                  `json:"name"`
	Params  domain.SimulationParams `json:"params"`
	Region  int                     `json:"region"`
	Action  ControlMeasureAction    `json:"action"`
}

// Event はイベントの要求・受諾・拒否・延期要求。
type Event struct {
	ID      int                     `json:"id"`
	CurDate float64                 `json:"cur_date"`
	Params  domain.SimulationParams `json:"params"`
	Action  EventAction             `json:"action"`
}

// Save はクライアント側の進行状態を永続化する要求。
type Save struct {
	Region  int                     `json:"region"`
	CurDate float64                 `json:"cur_date"`
	Params  domain.SimulationParams `json:"params"`
}
