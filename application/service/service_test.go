package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"outbreak/application/catalog"
	"outbreak/application/domain"
	"outbreak/application/request"
	"outbreak/application/state"
	"outbreak/application/state/memory"
)

const testEmail = "player@example.com"

func testCatalog() *catalog.Loader {
	return catalog.NewLoader("testdata")
}

func newTestService(t *testing.T, repo state.Repository, chance func() float64) *GameService {
	t.Helper()
	svc, err := NewGameService(
		DefaultConfig(),
		repo,
		testCatalog(),
		SimpleValidator{},
		chance,
		slog.New(slog.DiscardHandler),
	)
	if err != nil {
		t.Fatalf("NewGameService failed: %v", err)
	}
	return svc
}

// clientParams はクライアントが保持する頭数表現のパラメータスナップショット。
func clientParams() domain.SimulationParams {
	return domain.SimulationParams{
		Susceptible:               4999.9975,
		Exposed:                   0.002,
		Infectious:                0.0005,
		Removed:                   0,
		CurrentReproductionNumber: 1.6,
		IdealReproductionNumber:   2.0,
		ComplianceFactor:          0.5,
		RecoveryRate:              0.0555,
		InfectionRate:             0.1923076923,
	}
}

func TestSeedReturnsCatalogJSON(t *testing.T) {
	svc := newTestService(t, memory.NewStore(), nil)

	seed, err := svc.Seed(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if !strings.Contains(seed, `"num_sections":1`) {
		t.Errorf("expected seed JSON to carry num_sections, got %s", seed)
	}
	if !strings.Contains(seed, `"init_params"`) {
		t.Errorf("expected seed JSON to carry init_params, got %s", seed)
	}
}

func TestStartInitializesRegionOnce(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	first, err := svc.Start(ctx, testEmail, request.Start{Region: 0})
	if err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if first.Date != 0 {
		t.Errorf("expected first start at date 0, got %v", first.Date)
	}
	if !strings.HasPrefix(first.Payload, "[[") {
		t.Errorf("expected trajectory payload, got %q", first.Payload)
	}
	if first.IdealReproductionNumber != 2.0 {
		t.Errorf("expected catalog ideal reproduction number, got %v", first.IdealReproductionNumber)
	}

	// 保存後の再開は保存した日付を返す
	if _, err := svc.Save(ctx, testEmail, request.Save{Region: 0, CurDate: 33, Params: clientParams()}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	resumed, err := svc.Start(ctx, testEmail, request.Start{Region: 0})
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if resumed.Date != 33 {
		t.Errorf("expected resumed date 33, got %v", resumed.Date)
	}
}

func TestStartUnknownRegion(t *testing.T) {
	svc := newTestService(t, memory.NewStore(), nil)

	_, err := svc.Start(context.Background(), testEmail, request.Start{Region: 7})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for region without start params, got %v", err)
	}
}

func TestControlMeasureApplyDebitsAndPersists(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Start(ctx, testEmail, request.Start{Region: 0}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := svc.ControlMeasure(ctx, testEmail, request.ControlMeasure{
		Level:   1,
		CurDate: 10,
		Name:    "lockdown",
		Params:  clientParams(),
		Region:  0,
		Action:  request.ControlApply,
	})
	if err != nil {
		t.Fatalf("ControlMeasure failed: %v", err)
	}
	if !res.IsSuccess {
		t.Error("expected successful application")
	}
	if res.Description != "Lockdown imposed" {
		t.Errorf("unexpected description: %q", res.Description)
	}
	// 目標delta [-0.2, 0.1, 0, 0] を受信値に加算
	if res.SimulationData.IdealReproductionNumber != 1.8 {
		t.Errorf("expected ideal reproduction number 1.8, got %v", res.SimulationData.IdealReproductionNumber)
	}
	if res.SimulationData.ComplianceFactor != 0.6 {
		t.Errorf("expected compliance factor 0.6, got %v", res.SimulationData.ComplianceFactor)
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	if player.Money != memory.DefaultMoney-50 {
		t.Errorf("expected money %d, got %d", memory.DefaultMoney-50, player.Money)
	}
	status, _ := store.EnsureStatus(ctx, player.ID)
	if status.CurDate != 10 {
		t.Errorf("expected cur_date 10, got %v", status.CurDate)
	}
	region, _ := store.Region(ctx, status.ID, 0)
	if region.ActiveControlMeasures["lockdown"] != 1 {
		t.Errorf("expected lockdown level 1 active, got %v", region.ActiveControlMeasures)
	}
	if region.Params.IdealReproductionNumber != 1.8 {
		t.Errorf("expected persisted ideal reproduction number 1.8, got %v", region.Params.IdealReproductionNumber)
	}
	if region.Params.Susceptible != 4999.9975/5000 {
		t.Errorf("expected normalized susceptible, got %v", region.Params.Susceptible)
	}
}

func TestControlMeasureInsufficientFunds(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	_, err := svc.ControlMeasure(ctx, testEmail, request.ControlMeasure{
		Level:   1,
		CurDate: 5,
		Name:    "vaccination",
		Params:  clientParams(),
		Region:  0,
		Action:  request.ControlApply,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	if player.Money != memory.DefaultMoney {
		t.Errorf("expected money untouched at %d, got %d", memory.DefaultMoney, player.Money)
	}
	status, _ := store.EnsureStatus(ctx, player.ID)
	if status.CurDate != 0 {
		t.Errorf("expected cur_date untouched, got %v", status.CurDate)
	}
}

func TestControlMeasureAlreadyApplied(t *testing.T) {
	svc := newTestService(t, memory.NewStore(), nil)
	ctx := context.Background()

	apply := request.ControlMeasure{
		Level: 1, CurDate: 3, Name: "lockdown", Params: clientParams(), Region: 0,
		Action: request.ControlApply,
	}
	if _, err := svc.ControlMeasure(ctx, testEmail, apply); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	_, err := svc.ControlMeasure(ctx, testEmail, apply)
	if !errors.Is(err, domain.ErrAlreadyApplied) {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}
}

func TestControlMeasureApplyThenRemove(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	// delta ゼロの対策でも適用と解除が対になる
	apply := request.ControlMeasure{
		Level: 1, CurDate: 3, Name: "masks", Params: clientParams(), Region: 0,
		Action: request.ControlApply,
	}
	if _, err := svc.ControlMeasure(ctx, testEmail, apply); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	remove := apply
	remove.Action = request.ControlRemove
	res, err := svc.ControlMeasure(ctx, testEmail, remove)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if res.Description != "Mask mandate withdrawn" {
		t.Errorf("unexpected description: %q", res.Description)
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	status, _ := store.EnsureStatus(ctx, player.ID)
	region, _ := store.Region(ctx, status.ID, 0)
	if _, ok := region.ActiveControlMeasures["masks"]; ok {
		t.Errorf("expected masks removed from active map, got %v", region.ActiveControlMeasures)
	}

	_, err = svc.ControlMeasure(ctx, testEmail, remove)
	if !errors.Is(err, domain.ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied on second remove, got %v", err)
	}
}

// randomizedRepo はプレイヤーを常にランダム化モードとして返すラッパ。
type randomizedRepo struct {
	state.Repository
}

func (r randomizedRepo) PlayerByEmail(ctx context.Context, email string) (domain.Player, error) {
	p, err := r.Repository.PlayerByEmail(ctx, email)
	p.IsRandomized = true
	return p, err
}

func (r randomizedRepo) CreatePlayer(ctx context.Context, email string) (domain.Player, error) {
	p, err := r.Repository.CreatePlayer(ctx, email)
	p.IsRandomized = true
	return p, err
}

func TestControlMeasureMessUp(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, randomizedRepo{store}, func() float64 { return 0.05 })
	ctx := context.Background()

	if _, err := svc.Start(ctx, testEmail, request.Start{Region: 0}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	player, _ := store.PlayerByEmail(ctx, testEmail)
	status, _ := store.EnsureStatus(ctx, player.ID)
	before, _ := store.Region(ctx, status.ID, 0)

	res, err := svc.ControlMeasure(ctx, testEmail, request.ControlMeasure{
		Level: 1, CurDate: 10, Name: "lockdown", Params: clientParams(), Region: 0,
		Action: request.ControlApply,
	})
	if err != nil {
		t.Fatalf("ControlMeasure failed: %v", err)
	}
	if res.IsSuccess {
		t.Error("expected messed-up application to report failure")
	}
	// 失敗時は delta が [-d0, -|d1|, -|d2|, |d3|] に変換される
	if res.SimulationData.IdealReproductionNumber != 2.2 {
		t.Errorf("expected ideal reproduction number 2.2, got %v", res.SimulationData.IdealReproductionNumber)
	}
	if res.SimulationData.ComplianceFactor != 0.4 {
		t.Errorf("expected compliance factor 0.4, got %v", res.SimulationData.ComplianceFactor)
	}

	// コストは徴収されるが地域は更新されない
	player, _ = store.PlayerByEmail(ctx, testEmail)
	if player.Money != memory.DefaultMoney-50 {
		t.Errorf("expected money %d, got %d", memory.DefaultMoney-50, player.Money)
	}
	after, _ := store.Region(ctx, status.ID, 0)
	if after.Params != before.Params {
		t.Errorf("expected region params untouched, got %+v", after.Params)
	}
	if _, ok := after.ActiveControlMeasures["lockdown"]; ok {
		t.Errorf("expected lockdown absent from active map, got %v", after.ActiveControlMeasures)
	}
}

func TestEventLifecycleWithPostponePenalty(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Start(ctx, testEmail, request.Start{Region: 0}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, err := svc.Event(ctx, testEmail, request.Event{CurDate: 20, Action: request.EventRequest})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if out.Info == nil || out.Info.ID != 1 {
		t.Fatalf("expected pending event 1, got %+v", out)
	}
	if out.Info.Reward != 300 {
		t.Errorf("expected reward 300, got %d", out.Info.Reward)
	}

	for i := 0; i < 2; i++ {
		out, err = svc.Event(ctx, testEmail, request.Event{ID: 1, CurDate: 21, Action: request.EventPostpone})
		if err != nil {
			t.Fatalf("Postpone failed: %v", err)
		}
		if out.Message == "" {
			t.Error("expected postpone message")
		}
	}

	out, err = svc.Event(ctx, testEmail, request.Event{
		ID: 1, CurDate: 25, Params: clientParams(), Action: request.EventAccept,
	})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if out.Resolved == nil || !out.Resolved.IsSuccess {
		t.Fatalf("expected resolved event, got %+v", out)
	}

	// 報酬 300 − 延期2回 × 100 = 100
	player, _ := store.PlayerByEmail(ctx, testEmail)
	if player.Money != memory.DefaultMoney+100 {
		t.Errorf("expected money %d, got %d", memory.DefaultMoney+100, player.Money)
	}
	status, _ := store.EnsureStatus(ctx, player.ID)
	if status.CurrentEvent != 2 {
		t.Errorf("expected next event 2, got %d", status.CurrentEvent)
	}
	if status.Postponed != 0 {
		t.Errorf("expected postponed reset, got %d", status.Postponed)
	}
}

func TestEventAcceptUnrequested(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Start(ctx, testEmail, request.Start{Region: 0}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Event(ctx, testEmail, request.Event{CurDate: 20, Action: request.EventRequest}); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	_, err := svc.Event(ctx, testEmail, request.Event{
		ID: 2, CurDate: 25, Params: clientParams(), Action: request.EventAccept,
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	if player.Money != memory.DefaultMoney {
		t.Errorf("expected money untouched, got %d", player.Money)
	}
}

func TestEventDeclineAdvances(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Event(ctx, testEmail, request.Event{CurDate: 20, Action: request.EventRequest}); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	out, err := svc.Event(ctx, testEmail, request.Event{ID: 1, CurDate: 22, Action: request.EventDecline})
	if err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if out.Message == "" {
		t.Error("expected decline message")
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	status, _ := store.EnsureStatus(ctx, player.ID)
	if status.CurrentEvent != 2 {
		t.Errorf("expected next event 2, got %d", status.CurrentEvent)
	}
}

func TestSaveNormalizesAndIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	req := request.Save{Region: 0, CurDate: 55, Params: clientParams()}
	for i := 0; i < 2; i++ {
		msg, err := svc.Save(ctx, testEmail, req)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if msg != "Saving" {
			t.Errorf("unexpected save message: %q", msg)
		}
	}

	player, _ := store.PlayerByEmail(ctx, testEmail)
	status, _ := store.EnsureStatus(ctx, player.ID)
	if status.CurDate != 55 {
		t.Errorf("expected cur_date 55, got %v", status.CurDate)
	}
	region, _ := store.Region(ctx, status.ID, 0)
	if region.Params.Susceptible != 4999.9975/5000 {
		t.Errorf("expected normalized susceptible, got %v", region.Params.Susceptible)
	}
	if region.Params.RecoveryRate != 0.0555 {
		t.Errorf("expected recovery rate preserved, got %v", region.Params.RecoveryRate)
	}
}

func TestInvalidPayloadRejected(t *testing.T) {
	svc := newTestService(t, memory.NewStore(), nil)

	_, err := svc.ControlMeasure(context.Background(), testEmail, request.ControlMeasure{
		Level: 1, CurDate: -1, Name: "lockdown", Params: clientParams(), Region: 0,
		Action: request.ControlApply,
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
