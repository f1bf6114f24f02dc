package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"outbreak/application/domain"
	"outbreak/application/state"
)

// DefaultMoney は新規プレイヤーの初期所持金。
const DefaultMoney = 20000

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT    NOT NULL UNIQUE,
	money         INTEGER NOT NULL DEFAULT 20000,
	cur_level     INTEGER NOT NULL DEFAULT 1,
	is_randomized INTEGER NOT NULL DEFAULT 0,
	status_id     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS status (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	current_event INTEGER NOT NULL DEFAULT 0,
	postponed     INTEGER NOT NULL DEFAULT 0,
	cur_date      REAL    NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS regions (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	status_id               INTEGER NOT NULL,
	region_id               INTEGER NOT NULL,
	simulation_params       TEXT    NOT NULL,
	active_control_measures TEXT    NOT NULL,
	UNIQUE (status_id, region_id)
);
`

// Store はSQLiteに裏付けられた Repository 実装です。
// シミュレーションパラメータとACM写像はJSONテキスト列として保持します。
type Store struct {
	db *sql.DB
}

var _ state.Repository = (*Store)(nil)

// Open は指定パスのデータベースを開き、スキーマを適用します。
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// moderncドライバは接続ごとに独立したメモリDBになるため直列化する
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	return &Store{db: db}, nil
}

// Close は基盤のデータベースを閉じます。nil安全です。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) PlayerByEmail(ctx context.Context, email string) (domain.Player, error) {
	var p domain.Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, money, cur_level, is_randomized, status_id FROM players WHERE email = ?`,
		email,
	).Scan(&p.ID, &p.Email, &p.Money, &p.CurLevel, &p.IsRandomized, &p.StatusID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, fmt.Errorf("%w: player %s", domain.ErrNotFound, email)
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("%w: query player: %v", domain.ErrPersistence, err)
	}
	return p, nil
}

func (s *Store) CreatePlayer(ctx context.Context, email string) (domain.Player, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (email, money) VALUES (?, ?)`, email, DefaultMoney)
	if err != nil {
		return domain.Player{}, fmt.Errorf("%w: insert player: %v", domain.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Player{}, fmt.Errorf("%w: last insert id: %v", domain.ErrPersistence, err)
	}
	return domain.Player{ID: id, Email: email, Money: DefaultMoney, CurLevel: 1}, nil
}

func (s *Store) EnsureStatus(ctx context.Context, playerID int64) (domain.Status, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Status{}, fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	var statusID int64
	err = tx.QueryRowContext(ctx, `SELECT status_id FROM players WHERE id = ?`, playerID).Scan(&statusID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, fmt.Errorf("%w: player %d", domain.ErrNotFound, playerID)
	}
	if err != nil {
		return domain.Status{}, fmt.Errorf("%w: query player: %v", domain.ErrPersistence, err)
	}

	if statusID == 0 {
		res, err := tx.ExecContext(ctx, `INSERT INTO status DEFAULT VALUES`)
		if err != nil {
			return domain.Status{}, fmt.Errorf("%w: insert status: %v", domain.ErrPersistence, err)
		}
		statusID, err = res.LastInsertId()
		if err != nil {
			return domain.Status{}, fmt.Errorf("%w: last insert id: %v", domain.ErrPersistence, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE players SET status_id = ? WHERE id = ?`, statusID, playerID); err != nil {
			return domain.Status{}, fmt.Errorf("%w: link status: %v", domain.ErrPersistence, err)
		}
	}

	st, err := statusInTx(ctx, tx, statusID)
	if err != nil {
		return domain.Status{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Status{}, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return st, nil
}

func (s *Store) Status(ctx context.Context, statusID int64) (domain.Status, error) {
	var st domain.Status
	err := s.db.QueryRowContext(ctx,
		`SELECT id, current_event, postponed, cur_date FROM status WHERE id = ?`, statusID,
	).Scan(&st.ID, &st.CurrentEvent, &st.Postponed, &st.CurDate)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, fmt.Errorf("%w: status %d", domain.ErrNotFound, statusID)
	}
	if err != nil {
		return domain.Status{}, fmt.Errorf("%w: query status: %v", domain.ErrPersistence, err)
	}
	return st, nil
}

func statusInTx(ctx context.Context, tx *sql.Tx, statusID int64) (domain.Status, error) {
	var st domain.Status
	err := tx.QueryRowContext(ctx,
		`SELECT id, current_event, postponed, cur_date FROM status WHERE id = ?`, statusID,
	).Scan(&st.ID, &st.CurrentEvent, &st.Postponed, &st.CurDate)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Status{}, fmt.Errorf("%w: status %d", domain.ErrNotFound, statusID)
	}
	if err != nil {
		return domain.Status{}, fmt.Errorf("%w: query status: %v", domain.ErrPersistence, err)
	}
	return st, nil
}

func (s *Store) Region(ctx context.Context, statusID int64, regionID int) (domain.Region, error) {
	var (
		region     domain.Region
		paramsJSON string
		acmJSON    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, region_id, simulation_params, active_control_measures
		 FROM regions WHERE status_id = ? AND region_id = ?`,
		statusID, regionID,
	).Scan(&region.ID, &region.RegionID, &paramsJSON, &acmJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Region{}, fmt.Errorf("%w: region %d for status %d", domain.ErrNotFound, regionID, statusID)
	}
	if err != nil {
		return domain.Region{}, fmt.Errorf("%w: query region: %v", domain.ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &region.Params); err != nil {
		return domain.Region{}, fmt.Errorf("%w: decode params: %v", domain.ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(acmJSON), &region.ActiveControlMeasures); err != nil {
		return domain.Region{}, fmt.Errorf("%w: decode acm: %v", domain.ErrPersistence, err)
	}
	return region, nil
}

func (s *Store) CreateRegion(ctx context.Context, statusID int64, regionID int) (domain.Region, error) {
	empty := domain.Region{
		RegionID:              regionID,
		ActiveControlMeasures: domain.ActiveControlMeasures{},
	}
	paramsJSON, acmJSON, err := encodeRegion(empty)
	if err != nil {
		return domain.Region{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO regions (status_id, region_id, simulation_params, active_control_measures)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (status_id, region_id) DO NOTHING`,
		statusID, regionID, paramsJSON, acmJSON)
	if err != nil {
		return domain.Region{}, fmt.Errorf("%w: insert region: %v", domain.ErrPersistence, err)
	}
	return s.Region(ctx, statusID, regionID)
}

// Apply は全操作を1つのトランザクションで実行します。
// いずれかの操作が失敗した場合は全体をロールバックします。
func (s *Store) Apply(ctx context.Context, ops []state.WriteOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range ops {
		if err := applyOp(ctx, tx, op); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op state.WriteOp) error {
	switch o := op.(type) {
	case state.PutRegion:
		paramsJSON, acmJSON, err := encodeRegion(o.Region)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE regions SET simulation_params = ?, active_control_measures = ?
			 WHERE status_id = ? AND region_id = ?`,
			paramsJSON, acmJSON, o.StatusID, o.Region.RegionID)
		if err != nil {
			return fmt.Errorf("%w: update region: %v", domain.ErrPersistence, err)
		}
		return requireRowChanged(res, fmt.Sprintf("region %d for status %d", o.Region.RegionID, o.StatusID))
	case state.PutStatus:
		res, err := tx.ExecContext(ctx,
			`UPDATE status SET current_event = ?, postponed = ?, cur_date = ? WHERE id = ?`,
			o.Status.CurrentEvent, o.Status.Postponed, o.Status.CurDate, o.Status.ID)
		if err != nil {
			return fmt.Errorf("%w: update status: %v", domain.ErrPersistence, err)
		}
		return requireRowChanged(res, fmt.Sprintf("status %d", o.Status.ID))
	case state.AddMoney:
		res, err := tx.ExecContext(ctx,
			`UPDATE players SET money = money + ? WHERE id = ?`, o.Delta, o.PlayerID)
		if err != nil {
			return fmt.Errorf("%w: update money: %v", domain.ErrPersistence, err)
		}
		return requireRowChanged(res, fmt.Sprintf("player %d", o.PlayerID))
	default:
		return fmt.Errorf("%w: unknown write op %T", domain.ErrPersistence, op)
	}
}

func requireRowChanged(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return nil
}

func encodeRegion(region domain.Region) (string, string, error) {
	paramsJSON, err := json.Marshal(region.Params)
	if err != nil {
		return "", "", fmt.Errorf("%w: encode params: %v", domain.ErrPersistence, err)
	}
	acmJSON, err := json.Marshal(region.ActiveControlMeasures)
	if err != nil {
		return "", "", fmt.Errorf("%w: encode acm: %v", domain.ErrPersistence, err)
	}
	return string(paramsJSON), string(acmJSON), nil
}
