package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"outbreak/application/catalog"
	"outbreak/application/domain"
	"outbreak/application/request"
	"outbreak/application/state"
	"outbreak/sim"
)

// ErrInvalidPayload は検証で弾かれた入力。ErrInvalidRequest の一種として扱う。
var ErrInvalidPayload = fmt.Errorf("service: invalid payload: %w", domain.ErrInvalidRequest)

// Config はゲーム進行の定数群。プロセス起動時に確定し以後不変。
type Config struct {
	// Population は1地域の総人口。軌道の頭数換算と保存時の正規化に使う。
	Population float64
	// Horizon はシミュレーションのゲーム内日数上限。
	Horizon float64
	// PostponePenalty はイベント延期1回あたりの報酬減額。
	PostponePenalty int64
	// Limits は操作対象パラメータの許容範囲。
	Limits domain.Limits
}

// DefaultConfig は本番環境の既定値を返します。
func DefaultConfig() Config {
	return Config{
		Population:      5000,
		Horizon:         700,
		PostponePenalty: 100,
		Limits: domain.Limits{
			{Min: 1.2, Max: 3.0},
			{Min: 0.0, Max: 0.8},
			{Min: 0.05, Max: 0.1},
			{Min: 0.05, Max: 0.30},
		},
	}
}

// GameService はゲーム状態機械の本体。1セッション内の要求は直列に
// 処理される前提で、サービス自身は追加のロックを持たない。
type GameService struct {
	cfg      Config
	repo     state.Repository
	catalog  *catalog.Loader
	validate Validator
	chance   func() float64
	logger   *slog.Logger
}

// NewGameService はサービスを生成します。chance は介入失敗判定に使う
// [0,1) の乱数源で、nil の場合は math/rand/v2 を使います。
func NewGameService(cfg Config, repo state.Repository, cat *catalog.Loader, validator Validator, chance func() float64, logger *slog.Logger) (*GameService, error) {
	if repo == nil || cat == nil || validator == nil {
		return nil, fmt.Errorf("service: missing dependencies: repo=%v catalog=%v validator=%v", repo, cat, validator)
	}
	if chance == nil {
		chance = rand.Float64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GameService{
		cfg:      cfg,
		repo:     repo,
		catalog:  cat,
		validate: validator,
		chance:   chance,
		logger:   logger,
	}, nil
}

// Seed はプレイヤーの現在レベルの初期化データをJSONで返します。
func (s *GameService) Seed(ctx context.Context, email string) (string, error) {
	player, err := s.player(ctx, email)
	if err != nil {
		return "", err
	}
	seed, err := s.catalog.Seed(player.CurLevel)
	if err != nil {
		return "", fmt.Errorf("%w: seed catalog for level %d: %v", domain.ErrPersistence, player.CurLevel, err)
	}
	raw, err := json.Marshal(seed)
	if err != nil {
		return "", fmt.Errorf("%w: encode seed: %v", domain.ErrPersistence, err)
	}
	return string(raw), nil
}

// Start は地域のシミュレーションを開始します。初回は初期パラメータを
// 永続化し、2回目以降は保存済みパラメータから全期間を再計算します。
func (s *GameService) Start(ctx context.Context, email string, req request.Start) (domain.SimulatorResponse, error) {
	if err := s.validate.Start(req); err != nil {
		return domain.SimulatorResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	player, status, err := s.playerStatus(ctx, email)
	if err != nil {
		return domain.SimulatorResponse{}, err
	}

	region, err := s.repo.Region(ctx, status.ID, req.Region)
	firstTime := errors.Is(err, domain.ErrNotFound)
	if err != nil && !firstTime {
		return domain.SimulatorResponse{}, err
	}

	if firstTime {
		start, err := s.catalog.StartParams(player.CurLevel)
		if err != nil {
			return domain.SimulatorResponse{}, fmt.Errorf("%w: start catalog for level %d: %v", domain.ErrPersistence, player.CurLevel, err)
		}
		params, ok := start.Params[req.Region]
		if !ok {
			return domain.SimulatorResponse{}, fmt.Errorf("%w: start params for region %d", domain.ErrNotFound, req.Region)
		}
		region, err = s.repo.CreateRegion(ctx, status.ID, req.Region)
		if err != nil {
			return domain.SimulatorResponse{}, err
		}
		region.Params = params
		if err := s.repo.Apply(ctx, []state.WriteOp{state.PutRegion{StatusID: status.ID, Region: region}}); err != nil {
			return domain.SimulatorResponse{}, err
		}
		s.logger.InfoContext(ctx, "initialized region", "email", email, "region", req.Region, "level", player.CurLevel)
	}

	s.logger.InfoContext(ctx, "simulating start", "email", email, "region", req.Region)
	states, err := sim.NewSimulator(region.Params).Simulate(0, s.cfg.Horizon)
	if err != nil {
		return domain.SimulatorResponse{}, err
	}

	date := status.CurDate
	if firstTime {
		date = 0
	}
	return s.simResponse(date, req.Region, sim.SerializeTrajectory(states, s.cfg.Population), region.Params.Tunables()), nil
}

// ControlMeasure は対策の適用・解除を処理します。適用はコストを徴収し、
// ランダム化モードでは一定確率で介入が裏目に出ます。
func (s *GameService) ControlMeasure(ctx context.Context, email string, req request.ControlMeasure) (domain.ActionResponse, error) {
	if err := s.validate.ControlMeasure(req); err != nil {
		return domain.ActionResponse{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	player, status, err := s.playerStatus(ctx, email)
	if err != nil {
		return domain.ActionResponse{}, err
	}

	measures, err := s.catalog.ControlMeasures(player.CurLevel)
	if err != nil {
		return domain.ActionResponse{}, fmt.Errorf("%w: control catalog for level %d: %v", domain.ErrPersistence, player.CurLevel, err)
	}
	entry, ok := measures[req.Name]
	if !ok {
		return domain.ActionResponse{}, fmt.Errorf("%w: control measure %q", domain.ErrNotFound, req.Name)
	}

	region, err := s.repo.Region(ctx, status.ID, req.Region)
	if errors.Is(err, domain.ErrNotFound) {
		region, err = s.repo.CreateRegion(ctx, status.ID, req.Region)
	}
	if err != nil {
		return domain.ActionResponse{}, err
	}

	if current, ok := region.ActiveControlMeasures[req.Name]; ok && current == req.Level && req.Action == request.ControlApply {
		s.logger.InfoContext(ctx, "control measure already applied", "email", email, "name", req.Name, "level", req.Level)
		return domain.ActionResponse{}, fmt.Errorf("%w: %q level %d", domain.ErrAlreadyApplied, req.Name, req.Level)
	}

	messedUp := false
	if player.IsRandomized {
		messedUp = s.chance() <= entry.MessUpChance
	}

	var existing domain.Delta
	if current, ok := region.ActiveControlMeasures[req.Name]; ok {
		level, ok := entry.Levels[current]
		if !ok {
			return domain.ActionResponse{}, fmt.Errorf("%w: active level %d of %q missing from catalog", domain.ErrPersistence, current, req.Name)
		}
		existing = level.ParamsDelta
	}

	var (
		target  domain.Delta
		cost    int64
		message string
	)
	switch req.Action {
	case request.ControlApply:
		level, ok := entry.Levels[req.Level]
		if !ok {
			return domain.ActionResponse{}, fmt.Errorf("%w: level %d of %q", domain.ErrNotFound, req.Level, req.Name)
		}
		if level.Cost > player.Money {
			s.logger.InfoContext(ctx, "not enough money", "email", email, "cost", level.Cost, "money", player.Money)
			return domain.ActionResponse{}, fmt.Errorf("%w: cost %d, balance %d", domain.ErrInsufficientFunds, level.Cost, player.Money)
		}
		cost = level.Cost
		message = entry.Apply
		if messedUp {
			target = domain.MessUpDelta(level.ParamsDelta)
		} else {
			target = level.ParamsDelta
			region.ActiveControlMeasures[req.Name] = req.Level
		}
	case request.ControlRemove:
		if _, ok := region.ActiveControlMeasures[req.Name]; !ok {
			return domain.ActionResponse{}, fmt.Errorf("%w: %q", domain.ErrNotApplied, req.Name)
		}
		message = entry.Remove
		delete(region.ActiveControlMeasures, req.Name)
	}

	changed := domain.ApplyDelta(existing, target, req.Params.Tunables(), s.cfg.Limits)
	s.logger.InfoContext(ctx, "simulating control measure",
		"email", email, "name", req.Name, "action", string(req.Action), "messed_up", messedUp)
	result, err := sim.SimulateFrom(req.Params, changed, req.CurDate, s.cfg.Horizon, s.cfg.Population)
	if err != nil {
		return domain.ActionResponse{}, err
	}

	status.CurDate = req.CurDate
	ops := []state.WriteOp{state.PutStatus{Status: status}}
	if !messedUp {
		region.Params = s.persistedParams(result, req.Params.CurrentReproductionNumber, changed)
		ops = append(ops, state.PutRegion{StatusID: status.ID, Region: region})
	}
	ops = append(ops, state.AddMoney{PlayerID: player.ID, Delta: -cost})
	if err := s.repo.Apply(ctx, ops); err != nil {
		return domain.ActionResponse{}, err
	}

	return domain.ActionResponse{
		SimulationData: s.simResponse(req.CurDate, req.Region, result.Payload, changed),
		Description:    message,
		IsSuccess:      !messedUp,
	}, nil
}

// EventOutcome は Event 操作の結果。操作種別に応じていずれか1つが設定される。
type EventOutcome struct {
	// Info は Request の結果として提示する保留中イベント。
	Info *domain.EventInfo
	// Resolved は Accept の結果。
	Resolved *domain.ActionResponse
	// Message は Decline / Postpone の結果文面。
	Message string
}

// Event はイベントの要求・受諾・拒否・延期を処理します。
func (s *GameService) Event(ctx context.Context, email string, req request.Event) (EventOutcome, error) {
	if err := s.validate.Event(req); err != nil {
		return EventOutcome{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	player, status, err := s.playerStatus(ctx, email)
	if err != nil {
		return EventOutcome{}, err
	}

	events, err := s.catalog.Events(player.CurLevel)
	if err != nil {
		return EventOutcome{}, fmt.Errorf("%w: event catalog for level %d: %v", domain.ErrPersistence, player.CurLevel, err)
	}

	switch req.Action {
	case request.EventRequest:
		id := status.CurrentEvent
		if id == 0 {
			id = 1
			status.CurrentEvent = 1
			status.Postponed = 0
		}
		status.CurDate = req.CurDate
		if err := s.repo.Apply(ctx, []state.WriteOp{state.PutStatus{Status: status}}); err != nil {
			return EventOutcome{}, err
		}
		data, ok := events[id]
		if !ok {
			return EventOutcome{}, fmt.Errorf("%w: event %d", domain.ErrNotFound, id)
		}
		s.logger.InfoContext(ctx, "requested event", "email", email, "event", id)
		return EventOutcome{Info: &domain.EventInfo{
			ID:          id,
			Name:        data.Name,
			Description: data.Description,
			ParamsDelta: data.ParamsDelta,
			Region:      data.Region,
			Reward:      data.Reward,
		}}, nil

	case request.EventAccept:
		data, ok := events[req.ID]
		if !ok {
			return EventOutcome{}, fmt.Errorf("%w: event %d", domain.ErrInvalidRequest, req.ID)
		}
		if status.CurrentEvent != req.ID {
			return EventOutcome{}, fmt.Errorf("%w: cannot accept event %d, pending is %d", domain.ErrInvalidRequest, req.ID, status.CurrentEvent)
		}
		reward := data.Reward - int64(status.Postponed)*s.cfg.PostponePenalty

		changed := domain.ApplyDelta(domain.Delta{}, data.ParamsDelta, req.Params.Tunables(), s.cfg.Limits)
		s.logger.InfoContext(ctx, "accepting event", "email", email, "event", req.ID, "reward", reward)
		result, err := sim.SimulateFrom(req.Params, changed, req.CurDate, s.cfg.Horizon, s.cfg.Population)
		if err != nil {
			return EventOutcome{}, err
		}

		region, err := s.repo.Region(ctx, status.ID, data.Region)
		if err != nil {
			return EventOutcome{}, err
		}
		region.Params = s.persistedParams(result, req.Params.CurrentReproductionNumber, changed)
		status.CurrentEvent++
		status.Postponed = 0
		status.CurDate = req.CurDate
		ops := []state.WriteOp{
			state.PutRegion{StatusID: status.ID, Region: region},
			state.AddMoney{PlayerID: player.ID, Delta: reward},
			state.PutStatus{Status: status},
		}
		if err := s.repo.Apply(ctx, ops); err != nil {
			return EventOutcome{}, err
		}
		return EventOutcome{Resolved: &domain.ActionResponse{
			SimulationData: s.simResponse(req.CurDate, data.Region, result.Payload, changed),
			Description:    data.Accept,
			IsSuccess:      true,
		}}, nil

	case request.EventDecline:
		data, ok := events[req.ID]
		if !ok {
			return EventOutcome{}, fmt.Errorf("%w: event %d", domain.ErrInvalidRequest, req.ID)
		}
		status.CurrentEvent++
		status.Postponed = 0
		status.CurDate = req.CurDate
		if err := s.repo.Apply(ctx, []state.WriteOp{state.PutStatus{Status: status}}); err != nil {
			return EventOutcome{}, err
		}
		s.logger.InfoContext(ctx, "declined event", "email", email, "event", req.ID)
		return EventOutcome{Message: data.Reject}, nil

	case request.EventPostpone:
		data, ok := events[req.ID]
		if !ok {
			return EventOutcome{}, fmt.Errorf("%w: event %d", domain.ErrInvalidRequest, req.ID)
		}
		status.Postponed++
		status.CurDate = req.CurDate
		if err := s.repo.Apply(ctx, []state.WriteOp{state.PutStatus{Status: status}}); err != nil {
			return EventOutcome{}, err
		}
		s.logger.InfoContext(ctx, "postponed event", "email", email, "event", req.ID, "postponed", status.Postponed)
		return EventOutcome{Message: data.Postpone}, nil
	}

	return EventOutcome{}, fmt.Errorf("%w: action %q", domain.ErrInvalidRequest, req.Action)
}

// Save はクライアント側の進行状態をそのまま永続化します。冪等です。
func (s *GameService) Save(ctx context.Context, email string, req request.Save) (string, error) {
	if err := s.validate.Save(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	_, status, err := s.playerStatus(ctx, email)
	if err != nil {
		return "", err
	}

	region, err := s.repo.Region(ctx, status.ID, req.Region)
	if errors.Is(err, domain.ErrNotFound) {
		region, err = s.repo.CreateRegion(ctx, status.ID, req.Region)
	}
	if err != nil {
		return "", err
	}

	params := req.Params
	params.Susceptible /= s.cfg.Population
	params.Exposed /= s.cfg.Population
	params.Infectious /= s.cfg.Population
	params.Removed /= s.cfg.Population
	region.Params = params
	status.CurDate = req.CurDate

	ops := []state.WriteOp{
		state.PutStatus{Status: status},
		state.PutRegion{StatusID: status.ID, Region: region},
	}
	if err := s.repo.Apply(ctx, ops); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "saved progress", "email", email, "region", req.Region, "cur_date", req.CurDate)
	return "Saving", nil
}

// player はメールアドレスからプレイヤーを引き、未登録なら初期所持金で作成します。
func (s *GameService) player(ctx context.Context, email string) (domain.Player, error) {
	p, err := s.repo.PlayerByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return s.repo.CreatePlayer(ctx, email)
	}
	return p, err
}

func (s *GameService) playerStatus(ctx context.Context, email string) (domain.Player, domain.Status, error) {
	player, err := s.player(ctx, email)
	if err != nil {
		return domain.Player{}, domain.Status{}, err
	}
	status, err := s.repo.EnsureStatus(ctx, player.ID)
	if err != nil {
		return domain.Player{}, domain.Status{}, err
	}
	return player, status, nil
}

func (s *GameService) simResponse(date float64, region int, payload string, tunables domain.Delta) domain.SimulatorResponse {
	return domain.SimulatorResponse{
		Date:                    date,
		Region:                  region,
		Payload:                 payload,
		IdealReproductionNumber: tunables[0],
		ComplianceFactor:        tunables[1],
		RecoveryRate:            tunables[2],
		InfectionRate:           tunables[3],
	}
}

// persistedParams は再シミュレーション結果を地域の永続スナップショットへ写します。
// S,E,I,R は正規化済みの初期値、操作対象パラメータは丸め後の値を持つ。
func (s *GameService) persistedParams(result sim.Result, currentRt float64, changed domain.Delta) domain.SimulationParams {
	params := domain.SimulationParams{
		Susceptible:               result.Susceptible,
		Exposed:                   result.Exposed,
		Infectious:                result.Infectious,
		Removed:                   result.Removed,
		CurrentReproductionNumber: currentRt,
	}
	return params.WithTunables(changed)
}
