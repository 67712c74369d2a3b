package extensions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/actions"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/watchers"
)

// Deps is the surface handed to extensions at setup time. Extensions
// register actions, subscribe handlers, and add watchers through it.
type Deps struct {
	Actions  *actions.Registry
	Bus      interfaces.EventBus
	Watchers *watchers.Manager
	Notifier interfaces.Notifier
	Jobs     interfaces.JobControl
	Logger   arbor.ILogger
}

// SetupFunc wires one extension into the running system
type SetupFunc func(deps Deps) error

var (
	registered   = make(map[string]SetupFunc)
	registeredMu sync.Mutex
)

// Register adds an extension under name. Extensions call this from init();
// a duplicate name panics because it is a programming error caught at
// startup.
func Register(name string, setup SetupFunc) {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	if _, exists := registered[name]; exists {
		panic(fmt.Sprintf("extension already registered: %s", name))
	}
	registered[name] = setup
}

// Manifest describes an extension directory entry
type Manifest struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Version     string `toml:"version"`
}

// Loader activates registered extensions per configuration
type Loader struct {
	config common.ExtensionsConfig
	logger arbor.ILogger
	loaded []string
}

// NewLoader creates an extension loader
func NewLoader(config common.ExtensionsConfig, logger arbor.ILogger) *Loader {
	return &Loader{
		config: config,
		logger: logger,
	}
}

// Load runs setup for every active extension. Names starting with "_" are
// treated as commented out and skipped. One failing extension does not
// stop the others.
func (l *Loader) Load(deps Deps) error {
	registeredMu.Lock()
	setups := make(map[string]SetupFunc, len(registered))
	for name, setup := range registered {
		setups[name] = setup
	}
	registeredMu.Unlock()

	for _, name := range l.config.Active {
		if strings.HasPrefix(name, "_") {
			l.logger.Debug().Str("extension", name).Msg("Extension disabled, skipping")
			continue
		}

		setup, ok := setups[name]
		if !ok {
			l.logger.Warn().Str("extension", name).Msg("Active extension is not registered, skipping")
			continue
		}

		if err := l.setupOne(name, setup, deps); err != nil {
			l.logger.Error().Err(err).Str("extension", name).Msg("Extension setup failed, skipping")
			continue
		}

		l.loaded = append(l.loaded, name)
		l.logger.Info().Str("extension", name).Msg("Extension loaded")
	}

	l.logger.Info().Int("loaded", len(l.loaded)).Msg("Extension loading finished")
	return nil
}

// setupOne isolates a single extension's setup, converting panics to errors
func (l *Loader) setupOne(name string, setup SetupFunc, deps Deps) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extension %s panicked during setup: %v", name, r)
		}
	}()
	return setup(deps)
}

// Loaded returns the names of successfully loaded extensions
func (l *Loader) Loaded() []string {
	return l.loaded
}

// ScanManifests reads extension.toml manifests under the configured
// directory. Missing directory is not an error; there is simply nothing to
// list.
func (l *Loader) ScanManifests() ([]Manifest, error) {
	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read extensions directory: %w", err)
	}

	var manifests []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(l.config.Dir, entry.Name(), "extension.toml")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var m Manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Invalid extension manifest")
			continue
		}
		if m.Name == "" {
			m.Name = entry.Name()
		}
		manifests = append(manifests, m)
	}

	return manifests, nil
}
