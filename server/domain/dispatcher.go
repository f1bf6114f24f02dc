package domain

import (
	"context"

	appdomain "outbreak/application/domain"
	"outbreak/application/request"
	"outbreak/application/service"
)

//go:generate go tool mockgen -destination=./mocks/dispatcher_mock.go -package=mocks . Dispatcher

// Dispatcher はサーバー層からゲーム状態機械への操作の配送境界です。
// email はセッションに紐付く認証済みプレイヤーの識別子。
type Dispatcher interface {
	Seed(ctx context.Context, email string) (string, error)
	Start(ctx context.Context, email string, req request.Start) (appdomain.SimulatorResponse, error)
	ControlMeasure(ctx context.Context, email string, req request.ControlMeasure) (appdomain.ActionResponse, error)
	Event(ctx context.Context, email string, req request.Event) (service.EventOutcome, error)
	Save(ctx context.Context, email string, req request.Save) (string, error)
}
