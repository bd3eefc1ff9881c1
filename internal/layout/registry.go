package layout

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"chartlink/internal/logger"
	"chartlink/internal/scheduler"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Pane 描述布局文件里的一个面板：同一 symbol 可以在不同粒度下开多个面板。
type Pane struct {
	ID          string `mapstructure:"id" yaml:"id"`
	Symbol      string `mapstructure:"symbol" yaml:"symbol"`
	Interval    string `mapstructure:"interval" yaml:"interval"`
	VisibleBars int    `mapstructure:"visible_bars" yaml:"visible_bars"`
	HistoryBars int    `mapstructure:"history_bars" yaml:"history_bars"`
	Timezone    string `mapstructure:"timezone" yaml:"timezone"`
}

// FileConfig 映射布局文件根节点。
type FileConfig struct {
	Panes map[string]Pane `mapstructure:"panes" yaml:"panes"`
}

// Snapshot 是某一版本的完整布局。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Panes    map[string]Pane
}

// ChangeListener 在布局文件重载后触发，宿主据此热插拔面板。
type ChangeListener func(Snapshot)

// paneSchema 校验单个面板条目。布局文件是手编的，错拼 interval
// 这类问题要在注册面板之前拦下来。
const paneSchema = `{
  "type": "object",
  "required": ["symbol", "interval"],
  "properties": {
    "id": {"type": "string"},
    "symbol": {"type": "string", "minLength": 1},
    "interval": {"type": "string", "pattern": "^[0-9]+[mhdw]$"},
    "visible_bars": {"type": "integer", "minimum": 10},
    "history_bars": {"type": "integer", "minimum": 10},
    "timezone": {"type": "string"}
  }
}`

// Registry 管理面板布局，文件变更时自动重载并通知监听者。
type Registry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取布局文件并开始监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("layout registry requires path")
	}
	schema, err := compilePaneSchema()
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read layout config failed: %w", err)
	}
	r := &Registry{path: path, v: v, schema: schema}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("layout reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前布局快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Pane 返回指定 ID 的面板定义。
func (r *Registry) Pane(id string) (Pane, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Panes[strings.TrimSpace(id)]
	return p, ok
}

// PaneIDs 返回排序后的面板 ID 列表。
func (r *Registry) PaneIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Panes))
	for id := range r.snapshot.Panes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OnChange 注册布局变更监听。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, raw, err := readLayoutFile(r.path)
	if err != nil {
		return err
	}
	panes := make(map[string]Pane)
	for name, p := range cfg.Panes {
		norm, err := r.normalizePane(name, p, raw[name])
		if err != nil {
			return err
		}
		panes[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Panes:    panes,
	}
	r.mu.Unlock()
	logger.Infof("layout registry loaded %d panes from %s", len(panes), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("layout listener")
			cb(snap)
		}(fn)
	}
}

func (r *Registry) normalizePane(name string, p Pane, raw map[string]any) (Pane, error) {
	if r.schema != nil && raw != nil {
		if err := r.schema.Validate(raw); err != nil {
			return Pane{}, fmt.Errorf("layout pane %q invalid: %w", name, err)
		}
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	p.Interval = strings.ToLower(strings.TrimSpace(p.Interval))
	if _, ok := scheduler.ParseIntervalDuration(p.Interval); !ok {
		return Pane{}, fmt.Errorf("layout pane %q: unsupported interval %q", name, p.Interval)
	}
	if p.VisibleBars <= 0 {
		p.VisibleBars = 120
	}
	if p.HistoryBars <= 0 {
		p.HistoryBars = 500
	}
	if strings.TrimSpace(p.Timezone) == "" {
		p.Timezone = "Asia/Shanghai"
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return Pane{}, fmt.Errorf("layout pane %q: bad timezone %q: %w", name, p.Timezone, err)
	}
	return p, nil
}

// Location 解析面板时区；布局加载时已校验过，这里的错误分支只是兜底。
func (p Pane) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Panes:    make(map[string]Pane, len(src.Panes)),
	}
	for id, p := range src.Panes {
		dst.Panes[id] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compilePaneSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("pane.json", strings.NewReader(paneSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("pane.json")
}

// readLayoutFile 同时返回解码后的结构与原始 map（供 schema 校验）。
func readLayoutFile(path string) (FileConfig, map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, nil, fmt.Errorf("read layout config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, nil, fmt.Errorf("parse layout config failed: %w", err)
	}
	var rawRoot struct {
		Panes map[string]map[string]any `yaml:"panes"`
	}
	if err := yaml.Unmarshal(data, &rawRoot); err != nil {
		return FileConfig{}, nil, err
	}
	return cfg, rawRoot.Panes, nil
}
