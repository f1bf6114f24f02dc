package memory

import (
	"context"
	"fmt"
	"sync"

	"outbreak/application/domain"
	"outbreak/application/state"
)

// DefaultMoney は新規プレイヤーの初期所持金。
const DefaultMoney = 20000

// Store はインメモリのプレイヤー・進行状態・地域ストレージ。
// テストと開発実行向けで、sqliteストアと同じ Repository 契約を満たす。
type Store struct {
	mu sync.Mutex

	players  map[int64]*domain.Player
	byEmail  map[string]int64
	statuses map[int64]*domain.Status
	regions  map[int64]map[int]*domain.Region // statusID -> regionID -> region

	nextID int64
}

var _ state.Repository = (*Store)(nil)

// NewStore は空のストアを生成します。
func NewStore() *Store {
	return &Store{
		players:  make(map[int64]*domain.Player),
		byEmail:  make(map[string]int64),
		statuses: make(map[int64]*domain.Status),
		regions:  make(map[int64]map[int]*domain.Region),
	}
}

func (s *Store) PlayerByEmail(ctx context.Context, email string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return domain.Player{}, fmt.Errorf("%w: player %s", domain.ErrNotFound, email)
	}
	return *s.players[id], nil
}

func (s *Store) CreatePlayer(ctx context.Context, email string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return domain.Player{}, fmt.Errorf("%w: player %s already exists", domain.ErrPersistence, email)
	}
	s.nextID++
	p := &domain.Player{
		ID:       s.nextID,
		Email:    email,
		Money:    DefaultMoney,
		CurLevel: 1,
	}
	s.players[p.ID] = p
	s.byEmail[email] = p.ID
	return *p, nil
}

func (s *Store) EnsureStatus(ctx context.Context, playerID int64) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return domain.Status{}, fmt.Errorf("%w: player %d", domain.ErrNotFound, playerID)
	}
	if player.StatusID != 0 {
		return *s.statuses[player.StatusID], nil
	}
	s.nextID++
	st := &domain.Status{ID: s.nextID}
	s.statuses[st.ID] = st
	player.StatusID = st.ID
	return *st, nil
}

func (s *Store) Status(ctx context.Context, statusID int64) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[statusID]
	if !ok {
		return domain.Status{}, fmt.Errorf("%w: status %d", domain.ErrNotFound, statusID)
	}
	return *st, nil
}

func (s *Store) Region(ctx context.Context, statusID int64, regionID int) (domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	region, ok := s.regions[statusID][regionID]
	if !ok {
		return domain.Region{}, fmt.Errorf("%w: region %d for status %d", domain.ErrNotFound, regionID, statusID)
	}
	return region.Clone(), nil
}

func (s *Store) CreateRegion(ctx context.Context, statusID int64, regionID int) (domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[statusID]; !ok {
		return domain.Region{}, fmt.Errorf("%w: status %d", domain.ErrNotFound, statusID)
	}
	if existing, ok := s.regions[statusID][regionID]; ok {
		return existing.Clone(), nil
	}
	s.nextID++
	region := &domain.Region{
		ID:                    s.nextID,
		RegionID:              regionID,
		ActiveControlMeasures: domain.ActiveControlMeasures{},
	}
	if s.regions[statusID] == nil {
		s.regions[statusID] = make(map[int]*domain.Region)
	}
	s.regions[statusID][regionID] = region
	return region.Clone(), nil
}

// Apply は全操作を検証してから反映します。検証で1つでも失敗すると
// 何も書き込みません。
func (s *Store) Apply(ctx context.Context, ops []state.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if err := s.validate(op); err != nil {
			return err
		}
	}
	for _, op := range ops {
		s.apply(op)
	}
	return nil
}

func (s *Store) validate(op state.WriteOp) error {
	switch o := op.(type) {
	case state.PutRegion:
		if _, ok := s.regions[o.StatusID][o.Region.RegionID]; !ok {
			return fmt.Errorf("%w: region %d for status %d", domain.ErrNotFound, o.Region.RegionID, o.StatusID)
		}
	case state.PutStatus:
		if _, ok := s.statuses[o.Status.ID]; !ok {
			return fmt.Errorf("%w: status %d", domain.ErrNotFound, o.Status.ID)
		}
	case state.AddMoney:
		if _, ok := s.players[o.PlayerID]; !ok {
			return fmt.Errorf("%w: player %d", domain.ErrNotFound, o.PlayerID)
		}
	default:
		return fmt.Errorf("%w: unknown write op %T", domain.ErrPersistence, op)
	}
	return nil
}

func (s *Store) apply(op state.WriteOp) {
	switch o := op.(type) {
	case state.PutRegion:
		stored := s.regions[o.StatusID][o.Region.RegionID]
		clone := o.Region.Clone()
		clone.ID = stored.ID
		*stored = clone
	case state.PutStatus:
		*s.statuses[o.Status.ID] = o.Status
	case state.AddMoney:
		s.players[o.PlayerID].Money += o.Delta
	}
}
