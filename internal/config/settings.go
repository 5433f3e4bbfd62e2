package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	defaultDaemonAddr     = ":9190"
	defaultStoreLimit     = 1000
	defaultCacheSize      = 128
	defaultChartPoints    = 60
	defaultConfigDirName  = "htmlform"
	defaultConfigFileName = "config.toml"
	defaultStoreFileName  = "forms.json"
	envPrefix             = "HTMLFORM_"
)

type Settings struct {
	Path          string
	DaemonAddr    string
	StorePath     string
	StoreLimit    int
	CacheSize     int
	APIToken      string
	MCPToken      string
	ClientBaseURL string
	ChartPoints   int
	WSTrace       bool
}

type fileConfig struct {
	Daemon daemonConfig `toml:"daemon"`
	Auth   authConfig   `toml:"auth"`
	Client clientConfig `toml:"client"`
	TUI    tuiConfig    `toml:"tui"`
}

type daemonConfig struct {
	Addr       string `toml:"addr"`
	StorePath  string `toml:"store_path"`
	StoreLimit int    `toml:"store_limit"`
	CacheSize  int    `toml:"cache_size"`
	WSTrace    bool   `toml:"ws_trace"`
}

type authConfig struct {
	APIToken string `toml:"api_token"`
	MCPToken string `toml:"mcp_token"`
}

type clientConfig struct {
	BaseURL string `toml:"base_url"`
}

type tuiConfig struct {
	ChartPoints int `toml:"chart_points"`
}

// LoadOrCreate reads the config file at path (the default path when empty),
// filling and persisting defaults and generated tokens. Values from a .env
// file in the working directory and HTMLFORM_* variables override the file
// without being written back.
func LoadOrCreate(path string) (Settings, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Settings{}, err
		}
	}

	cfg := defaultFileConfig(path)
	exists := false
	if _, err := os.Stat(path); err == nil {
		exists = true
		var onDisk fileConfig
		if _, err := toml.DecodeFile(path, &onDisk); err != nil {
			return Settings{}, fmt.Errorf("decode config %s: %w", path, err)
		}
		mergeFileConfig(&cfg, onDisk)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	changed := false
	if strings.TrimSpace(cfg.Auth.APIToken) == "" {
		cfg.Auth.APIToken = randomToken()
		changed = true
	}
	if strings.TrimSpace(cfg.Auth.MCPToken) == "" {
		cfg.Auth.MCPToken = randomToken()
		changed = true
	}
	if strings.TrimSpace(cfg.Client.BaseURL) == "" {
		cfg.Client.BaseURL = deriveBaseURL(cfg.Daemon.Addr)
		changed = true
	}

	if !exists || changed {
		if err := writeConfig(path, cfg); err != nil {
			return Settings{}, err
		}
	}

	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}
	settings := toSettings(path, cfg)
	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes settings to disk and returns them as loaded back.
func Save(settings Settings) (Settings, error) {
	path := strings.TrimSpace(settings.Path)
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Settings{}, err
		}
	}
	cfg := fileConfig{
		Daemon: daemonConfig{
			Addr:       settings.DaemonAddr,
			StorePath:  settings.StorePath,
			StoreLimit: settings.StoreLimit,
			CacheSize:  settings.CacheSize,
			WSTrace:    settings.WSTrace,
		},
		Auth: authConfig{
			APIToken: settings.APIToken,
			MCPToken: settings.MCPToken,
		},
		Client: clientConfig{BaseURL: settings.ClientBaseURL},
		TUI:    tuiConfig{ChartPoints: settings.ChartPoints},
	}
	if err := writeConfig(path, cfg); err != nil {
		return Settings{}, err
	}
	return LoadOrCreate(path)
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", defaultConfigDirName, defaultConfigFileName), nil
}

func defaultFileConfig(path string) fileConfig {
	return fileConfig{
		Daemon: daemonConfig{
			Addr:       defaultDaemonAddr,
			StorePath:  filepath.Join(filepath.Dir(path), defaultStoreFileName),
			StoreLimit: defaultStoreLimit,
			CacheSize:  defaultCacheSize,
		},
		TUI: tuiConfig{ChartPoints: defaultChartPoints},
	}
}

func mergeFileConfig(dst *fileConfig, src fileConfig) {
	if v := strings.TrimSpace(src.Daemon.Addr); v != "" {
		dst.Daemon.Addr = v
	}
	if v := strings.TrimSpace(src.Daemon.StorePath); v != "" {
		dst.Daemon.StorePath = v
	}
	if src.Daemon.StoreLimit > 0 {
		dst.Daemon.StoreLimit = src.Daemon.StoreLimit
	}
	if src.Daemon.CacheSize > 0 {
		dst.Daemon.CacheSize = src.Daemon.CacheSize
	}
	dst.Daemon.WSTrace = src.Daemon.WSTrace
	if v := strings.TrimSpace(src.Auth.APIToken); v != "" {
		dst.Auth.APIToken = v
	}
	if v := strings.TrimSpace(src.Auth.MCPToken); v != "" {
		dst.Auth.MCPToken = v
	}
	if v := strings.TrimSpace(src.Client.BaseURL); v != "" {
		dst.Client.BaseURL = v
	}
	if src.TUI.ChartPoints > 0 {
		dst.TUI.ChartPoints = src.TUI.ChartPoints
	}
}

func toSettings(path string, cfg fileConfig) Settings {
	return Settings{
		Path:          path,
		DaemonAddr:    cfg.Daemon.Addr,
		StorePath:     cfg.Daemon.StorePath,
		StoreLimit:    cfg.Daemon.StoreLimit,
		CacheSize:     cfg.Daemon.CacheSize,
		APIToken:      cfg.Auth.APIToken,
		MCPToken:      cfg.Auth.MCPToken,
		ClientBaseURL: cfg.Client.BaseURL,
		ChartPoints:   cfg.TUI.ChartPoints,
		WSTrace:       cfg.Daemon.WSTrace,
	}
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func applyEnv(s *Settings) error {
	strs := map[string]*string{
		"ADDR":       &s.DaemonAddr,
		"STORE_PATH": &s.StorePath,
		"API_TOKEN":  &s.APIToken,
		"MCP_TOKEN":  &s.MCPToken,
		"BASE_URL":   &s.ClientBaseURL,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"STORE_LIMIT":  &s.StoreLimit,
		"CACHE_SIZE":   &s.CacheSize,
		"CHART_POINTS": &s.ChartPoints,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(os.Getenv(envPrefix + key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s%s %q", envPrefix, key, v)
		}
		*dst = n
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(envPrefix + "WS_TRACE"))); v != "" {
		s.WSTrace = v == "1" || v == "true" || v == "yes"
	}
	return nil
}

func writeConfig(path string, cfg fileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString("# htmlform config for formd, formmcp and the htmlform CLI\n\n"); err != nil {
		return fmt.Errorf("write config header: %w", err)
	}
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func deriveBaseURL(addr string) string {
	host := strings.TrimSpace(addr)
	if host == "" {
		host = defaultDaemonAddr
	}
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	if strings.HasPrefix(host, ":") {
		return "http://127.0.0.1" + host
	}
	h, p, err := net.SplitHostPort(host)
	if err == nil {
		if h == "" || h == "0.0.0.0" || h == "::" || h == "[::]" {
			h = "127.0.0.1"
		}
		return "http://" + net.JoinHostPort(h, p)
	}
	return "http://" + net.JoinHostPort(host, strings.TrimPrefix(defaultDaemonAddr, ":"))
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
