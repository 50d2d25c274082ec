package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config 配置管理器
type Config[T any] struct {
	v        *viper.Viper
	path     string
	value    *T
	mu       sync.RWMutex
	saveMu   sync.Mutex
	watchers []func(old, new T)

	defaults map[string]any
	create   bool
	noWatch  bool
}

// Option 配置选项
type Option[T any] func(*Config[T])

// WithDefaults 设置默认值
func WithDefaults[T any](defaults map[string]any) Option[T] {
	return func(c *Config[T]) {
		if c.defaults == nil {
			c.defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			c.v.SetDefault(k, v)
			c.defaults[k] = v
		}
	}
}

// WithEnv 绑定环境变量
func WithEnv[T any](prefix string) Option[T] {
	return func(c *Config[T]) {
		c.v.SetEnvPrefix(prefix)
		c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		c.v.AutomaticEnv()
	}
}

// WithCreate 配置文件不存在时用默认值创建（不包含环境变量）
func WithCreate[T any]() Option[T] {
	return func(c *Config[T]) { c.create = true }
}

// WithoutWatch 不监控文件变更（一次性命令使用）
func WithoutWatch[T any]() Option[T] {
	return func(c *Config[T]) { c.noWatch = true }
}

// Load 加载配置文件并自动监控变更
func Load[T any](path string, opts ...Option[T]) (*Config[T], error) {
	v := viper.New()
	v.SetConfigFile(path)

	c := &Config[T]{v: v, path: path}

	for _, opt := range opts {
		opt(c)
	}

	if c.create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			defaults := c.defaults
			if defaults == nil {
				defaults = map[string]any{}
			}
			if err := writeFile(path, defaults); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var val T
	if err := v.Unmarshal(&val); err != nil {
		return nil, err
	}
	c.value = &val

	if !c.noWatch {
		c.watch()
	}
	return c, nil
}

// Path 返回配置文件路径
func (c *Config[T]) Path() string { return c.path }

// Get 获取当前配置（并发安全，返回深拷贝）
func (c *Config[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopy(*c.value)
}

// OnChange 注册配置变更回调
func (c *Config[T]) OnChange(callback func(old, new T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, callback)
}

// Update 修改配置并写回文件，成功后通知回调
func (c *Config[T]) Update(fn func(v *T)) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	oldConfig := c.Get()
	next := deepCopy(oldConfig)
	fn(&next)

	if err := writeFile(c.path, next); err != nil {
		return err
	}

	newConfig, watchers, ok := c.reloadConfig()
	if !ok {
		return fmt.Errorf("config: reload %s after write failed", c.path)
	}
	c.notify(oldConfig, newConfig, watchers)
	return nil
}

// Set 只把给定的键写回文件，文件中其余键保持原样，成功后通知回调。
// 当前值中由环境变量覆盖的字段不会被写入文件。
func (c *Config[T]) Set(values map[string]any) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	raw, err := readFile(c.path)
	if err != nil {
		return err
	}
	for k, v := range values {
		for existing := range raw {
			if strings.EqualFold(existing, k) {
				delete(raw, existing)
			}
		}
		raw[k] = v
	}

	oldConfig := c.Get()
	if err := writeFile(c.path, raw); err != nil {
		return err
	}

	newConfig, watchers, ok := c.reloadConfig()
	if !ok {
		return fmt.Errorf("config: reload %s after write failed", c.path)
	}
	c.notify(oldConfig, newConfig, watchers)
	return nil
}

// Changed 比较两个值是否不同
func Changed[T any](old, new T) bool {
	return !reflect.DeepEqual(old, new)
}

// deepCopy 通过 JSON 序列化实现深拷贝
func deepCopy[T any](src T) T {
	var dst T
	data, _ := json.Marshal(src)
	_ = json.Unmarshal(data, &dst)
	return dst
}

// readFile 按扩展名解码文件中的原始键值（保留键的大小写）
func readFile(path string) (map[string]any, error) {
	raw := map[string]any{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// writeFile 按扩展名编码并原子替换文件
func writeFile[T any](path string, val T) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(val)
	case ".json":
		data, err = json.MarshalIndent(val, "", "  ")
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config[T]) watch() {
	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
			c.handleConfigChange()
		})
		debounceMu.Unlock()
	})

	c.v.WatchConfig()
}

func (c *Config[T]) handleConfigChange() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	oldConfig := c.Get()

	newConfig, watchers, ok := c.reloadConfig()
	if !ok {
		return
	}
	c.notify(oldConfig, newConfig, watchers)
}

func (c *Config[T]) notify(oldConfig, newConfig T, watchers []func(old, new T)) {
	if reflect.DeepEqual(oldConfig, newConfig) {
		return
	}

	for _, cb := range watchers {
		func() {
			defer func() { _ = recover() }()
			cb(oldConfig, newConfig)
		}()
	}
}

// reloadConfig 重新加载配置，返回新配置、回调列表和是否成功
func (c *Config[T]) reloadConfig() (T, []func(old, new T), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if err := c.v.ReadInConfig(); err != nil {
		return zero, nil, false
	}

	var val T
	if err := c.v.Unmarshal(&val); err != nil {
		return zero, nil, false
	}
	c.value = &val

	watchers := make([]func(old, new T), len(c.watchers))
	copy(watchers, c.watchers)

	return deepCopy(val), watchers, true
}
