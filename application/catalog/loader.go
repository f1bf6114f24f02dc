package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissing は要求されたカタログ定義が存在しない場合に返されるエラーです。
	ErrMissing = errors.New("catalog: definition not found")
	// ErrMalformed はカタログ定義の解析に失敗した場合に返されるエラーです。
	ErrMalformed = errors.New("catalog: malformed definition")
)

// Loader はレベルごとのYAMLカタログを読み込み、キャッシュします。
// カタログは読み取り専用で、ロード後に変更されることはありません。
type Loader struct {
	baseDir string

	mu    sync.RWMutex
	cache map[string]any // key: "<level>/<kind>"
}

// NewLoader はbaseDir配下の levels/<level>/<kind>.yaml を読むローダーを生成します。
func NewLoader(baseDir string) *Loader {
	return &Loader{
		baseDir: baseDir,
		cache:   make(map[string]any),
	}
}

func (l *Loader) path(level int, kind string) string {
	return filepath.Join(l.baseDir, "levels", strconv.Itoa(level), kind+".yaml")
}

// ControlMeasures はレベルの対策カタログを返します。
func (l *Loader) ControlMeasures(level int) (map[string]ControlMeasure, error) {
	return load[map[string]ControlMeasure](l, level, "control")
}

// Events はレベルのイベントカタログを返します。キーはイベントID。
func (l *Loader) Events(level int) (map[int]Event, error) {
	return load[map[int]Event](l, level, "events")
}

// Seed はレベルの初期化データを返します。
func (l *Loader) Seed(level int) (Seed, error) {
	return load[Seed](l, level, "seed")
}

// StartParams はレベルの地域別初期パラメータを返します。
func (l *Loader) StartParams(level int) (StartParams, error) {
	return load[StartParams](l, level, "start")
}

// Invalidate はキャッシュを破棄します。定義ファイル差し替え後に呼びます。
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]any)
}

func load[T any](l *Loader, level int, kind string) (T, error) {
	key := strconv.Itoa(level) + "/" + kind

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cached.(T), nil
	}

	var out T
	b, err := os.ReadFile(l.path(level, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, fmt.Errorf("%w: level %d %s", ErrMissing, level, kind)
		}
		return out, fmt.Errorf("catalog: read level %d %s: %w", level, kind, err)
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: level %d %s: %v", ErrMalformed, level, kind, err)
	}

	l.mu.Lock()
	l.cache[key] = out
	l.mu.Unlock()
	return out, nil
}
