package settings

import (
	"github.com/lgc202/assistant/config"
)

// EnvPrefix is the prefix of environment overrides, e.g. ASSISTANT_DEEPSEEKTOKEN.
const EnvPrefix = "ASSISTANT"

// FileStore persists settings in a YAML or JSON file and reloads it when the
// file changes on disk.
type FileStore struct {
	cfg *config.Config[Values]
}

type fileOptions struct {
	watch bool
}

type FileOption func(*fileOptions)

// WithWatch toggles the file watch. It is on by default.
func WithWatch(on bool) FileOption {
	return func(o *fileOptions) { o.watch = on }
}

// OpenFile loads the settings file at path, creating it with defaults when
// it does not exist yet.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	o := fileOptions{watch: true}
	for _, opt := range opts {
		opt(&o)
	}

	d := Defaults()
	cfgOpts := []config.Option[Values]{
		config.WithDefaults[Values](map[string]any{
			KeySelectedModel:   d.SelectedModel,
			KeyDeepSeekToken:   "",
			KeyOpenAIToken:     "",
			KeyClaudeToken:     "",
			KeyKimiToken:       "",
			KeyOpenRouterToken: "",
			KeyOpenRouterModel: d.OpenRouterModel,
		}),
		config.WithEnv[Values](EnvPrefix),
		config.WithCreate[Values](),
	}
	if !o.watch {
		cfgOpts = append(cfgOpts, config.WithoutWatch[Values]())
	}

	cfg, err := config.Load[Values](path, cfgOpts...)
	if err != nil {
		return nil, err
	}
	return &FileStore{cfg: cfg}, nil
}

func (s *FileStore) Path() string { return s.cfg.Path() }

func (s *FileStore) Get() Values { return s.cfg.Get() }

// Update writes only the fields p sets. Values that came from ASSISTANT_*
// environment overrides stay out of the file.
func (s *FileStore) Update(p Patch) error {
	if p.Empty() {
		return nil
	}
	return s.cfg.Set(p.Fields())
}

func (s *FileStore) OnChange(cb func(old, new Values)) { s.cfg.OnChange(cb) }
