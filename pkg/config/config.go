// Package config reads and writes the JSON settings file shared by the
// stl command and its HTTP service.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/stlkit/pkg/kernel"
	"github.com/chazu/stlkit/pkg/kernel/manifold"
	"github.com/chazu/stlkit/pkg/kernel/sdfx"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/script"
	"github.com/chazu/stlkit/pkg/stl"
)

// FileName is the settings file looked up next to the executable.
const FileName = "stlkit-settings.json"

type Settings struct {
	// Mode is the output mode: "auto", "ascii" or "binary".
	Mode             string  `json:"mode"`
	RemoveDuplicates string  `json:"remove_duplicates"`
	RemoveEmptyAreas bool    `json:"remove_empty_areas"`
	AreaThreshold    float32 `json:"area_threshold"`
	Port             int     `json:"port"`
	// ScriptTimeout is a time.ParseDuration string such as "5s".
	ScriptTimeout string `json:"script_timeout"`
	// Kernel names the geometry kernel scripts build solids with:
	// "sdfx" or "manifold".
	Kernel string `json:"kernel"`
	// KernelCells is the sdfx marching cubes resolution.
	KernelCells int `json:"kernel_cells"`
}

// Kernel names.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

func Default() *Settings {
	return &Settings{
		Mode:             stl.Automatic.String(),
		RemoveDuplicates: mesh.RemoveNone.String(),
		Port:             8080,
		ScriptTimeout:    script.EvalTimeout.String(),
		Kernel:           KernelSdfx,
		KernelCells:      sdfx.DefaultCells,
	}
}

// Path returns the settings path next to the running executable, or
// FileName in the working directory when that cannot be determined.
func Path() string {
	exePath, err := os.Executable()
	if err != nil {
		return FileName
	}
	return filepath.Join(filepath.Dir(exePath), FileName)
}

// Load reads the settings at path. Fields missing from the file keep their
// defaults. When the file cannot be read the defaults are returned along
// with the error, so callers may treat os.ErrNotExist as benign.
func Load(path string) (*Settings, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load that treats a missing file as the defaults.
func LoadOrDefault(path string) (*Settings, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	return cfg, err
}

func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field that is parsed later.
func (s *Settings) Validate() error {
	if _, err := s.OutputMode(); err != nil {
		return err
	}
	if _, err := s.MeshOptions(); err != nil {
		return err
	}
	if _, err := s.Timeout(); err != nil {
		return err
	}
	switch s.Kernel {
	case "", KernelSdfx, KernelManifold:
	default:
		return fmt.Errorf("unknown kernel %q", s.Kernel)
	}
	if s.KernelCells < 0 {
		return fmt.Errorf("kernel_cells must not be negative, got %d", s.KernelCells)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	return nil
}

func (s *Settings) OutputMode() (stl.Mode, error) {
	return stl.ParseMode(s.Mode)
}

// MeshOptions returns the load-time filtering the settings ask for.
func (s *Settings) MeshOptions() (mesh.Options, error) {
	policy, err := mesh.ParseRemoveDuplicates(s.RemoveDuplicates)
	if err != nil {
		return mesh.Options{}, err
	}
	return mesh.Options{
		RemoveEmptyAreas: s.RemoveEmptyAreas,
		AreaThreshold:    s.AreaThreshold,
		RemoveDuplicates: policy,
	}, nil
}

// Timeout parses ScriptTimeout. An empty value means script.EvalTimeout.
func (s *Settings) Timeout() (time.Duration, error) {
	if s.ScriptTimeout == "" {
		return script.EvalTimeout, nil
	}
	d, err := time.ParseDuration(s.ScriptTimeout)
	if err != nil {
		return 0, fmt.Errorf("script_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("script_timeout must be positive, got %s", d)
	}
	return d, nil
}

// GeometryKernel constructs the configured kernel. The manifold kernel
// is only available in binaries built with -tags=manifold.
func (s *Settings) GeometryKernel() (kernel.Kernel, error) {
	switch s.Kernel {
	case "", KernelSdfx:
		return sdfx.New(s.KernelCells), nil
	case KernelManifold:
		return manifold.New()
	}
	return nil, fmt.Errorf("unknown kernel %q", s.Kernel)
}

// Engine returns a script engine rooted at dir using these settings.
func (s *Settings) Engine(dir string) (*script.Engine, error) {
	timeout, err := s.Timeout()
	if err != nil {
		return nil, err
	}
	k, err := s.GeometryKernel()
	if err != nil {
		return nil, err
	}
	eng := script.NewEngine(dir)
	eng.Timeout = timeout
	eng.Kernel = k
	return eng, nil
}
