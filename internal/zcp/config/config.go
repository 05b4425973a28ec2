package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jimyag/zcp/pkg/orchestrator"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address 是 HTTP 服务绑定地址
	// 可以通过环境变量 ZCP_ADDRESS 配置
	Address string `yaml:"address"`

	// DataDir 是 ZCP 数据目录
	// 用于存储数据库、传输文件、虚拟机上下文文件等
	// 可以通过环境变量 ZCP_DATA_DIR 配置
	// 默认：~/.local/share/zcp
	DataDir string `yaml:"data_dir"`

	// Database 是 SQLite 数据库文件路径，默认 <data_dir>/zcp.db
	Database string `yaml:"database"`

	Log          LogConfig          `yaml:"log"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Network      NetworkConfig      `yaml:"network"`
	Transfer     TransferConfig     `yaml:"transfer"`
	VM           VMConfig           `yaml:"vm"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type OrchestratorConfig struct {
	// Endpoint 是外部编排器 XML-RPC 地址
	// 可以通过环境变量 ZCP_ORCHESTRATOR_ENDPOINT 配置
	Endpoint string `yaml:"endpoint"`
	// Session 是管理类调用使用的管理员会话 username:secret
	// 可以通过环境变量 ZCP_ORCHESTRATOR_SESSION 配置
	Session        string                   `yaml:"session"`
	Timeout        time.Duration            `yaml:"timeout"`
	ReadRetries    int                      `yaml:"read_retries"`
	HostDrivers    orchestrator.HostDrivers `yaml:"host_drivers"`
	ImageDatastore int                      `yaml:"image_datastore"`
}

type NetworkConfig struct {
	// Bridge 是虚拟网络绑定的宿主机网桥
	Bridge string `yaml:"bridge"`
}

type TransferConfig struct {
	// Root 是传输文件的存放目录，所有传输路径都限制在该目录下
	Root          string        `yaml:"root"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type VMConfig struct {
	// ArtifactRoot 是虚拟机上下文文件目录，每台虚拟机一个子目录
	ArtifactRoot string `yaml:"artifact_root"`
	// SwapRatio 是交换盘相对内存的大小倍数
	SwapRatio float64 `yaml:"swap_ratio"`
}

// New 使用默认值和环境变量创建配置
func New() (*Config, error) {
	cfg := defaults()
	cfg.applyEnv()
	cfg.fill()
	return cfg, nil
}

// Load 读取 YAML 配置文件，未配置的项使用默认值，环境变量优先级最高
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.fill()
	return cfg, nil
}

// Validate 检查配置是否可以启动服务
func (c *Config) Validate() error {
	var errs []error
	if c.Orchestrator.Endpoint == "" {
		errs = append(errs, errors.New("orchestrator.endpoint is required"))
	}
	if c.Orchestrator.Session == "" {
		errs = append(errs, errors.New("orchestrator.session is required"))
	}
	if c.Orchestrator.Timeout <= 0 {
		errs = append(errs, errors.New("orchestrator.timeout must be positive"))
	}
	if c.Orchestrator.ReadRetries < 0 {
		errs = append(errs, errors.New("orchestrator.read_retries must not be negative"))
	}
	if c.Transfer.TTL <= 0 {
		errs = append(errs, errors.New("transfer.ttl must be positive"))
	}
	if c.Transfer.SweepInterval <= 0 {
		errs = append(errs, errors.New("transfer.sweep_interval must be positive"))
	}
	if c.VM.SwapRatio <= 0 {
		errs = append(errs, errors.New("vm.swap_ratio must be positive"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Address: "0.0.0.0:7788",
		DataDir: getDataDir(),
		Log:     LogConfig{Level: "info"},
		Orchestrator: OrchestratorConfig{
			Timeout:     orchestrator.DefaultTimeout,
			ReadRetries: orchestrator.DefaultReadRetries,
			HostDrivers: orchestrator.HostDrivers{
				IM:  "kvm",
				VMM: "kvm",
				VNM: "dummy",
			},
			ImageDatastore: 1,
		},
		Network: NetworkConfig{Bridge: "br0"},
		Transfer: TransferConfig{
			TTL:           24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		VM: VMConfig{SwapRatio: 1.5},
	}
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() {
	if dir := os.Getenv("ZCP_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if addr := os.Getenv("ZCP_ADDRESS"); addr != "" {
		c.Address = addr
	}
	if endpoint := os.Getenv("ZCP_ORCHESTRATOR_ENDPOINT"); endpoint != "" {
		c.Orchestrator.Endpoint = endpoint
	}
	if session := os.Getenv("ZCP_ORCHESTRATOR_SESSION"); session != "" {
		c.Orchestrator.Session = session
	}
	if level := os.Getenv("ZCP_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// fill 补全依赖数据目录的路径
func (c *Config) fill() {
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "zcp.db")
	}
	if c.Transfer.Root == "" {
		c.Transfer.Root = filepath.Join(c.DataDir, "transfers")
	}
	if c.VM.ArtifactRoot == "" {
		c.VM.ArtifactRoot = filepath.Join(c.DataDir, "vms")
	}
}

// getDataDir 获取默认数据目录
func getDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "zcp")
	}
	return filepath.Join(".", "data")
}
