// Package conf 服务配置
// 先从配置文件加载（kratos config），再用环境变量覆盖（caarlos0/env）
package conf

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	_ "github.com/go-kratos/kratos/v2/encoding/yaml"
)

// 默认值
const (
	DefaultMaxDraws        = 10000
	DefaultMaxArrayLength  = 1000
	DefaultCheckpointEvery = 1
)

// Bootstrap 配置根
type Bootstrap struct {
	Server     Server     `json:"server"`
	Data       Data       `json:"data"`
	Randomizer Randomizer `json:"randomizer"`
}

// Server 传输层配置
type Server struct {
	HTTP Endpoint `json:"http" envPrefix:"RANDOMIZER_HTTP_"`
	GRPC Endpoint `json:"grpc" envPrefix:"RANDOMIZER_GRPC_"`
}

// Endpoint 监听地址与超时
type Endpoint struct {
	Addr    string   `json:"addr" env:"ADDR"`
	Timeout Duration `json:"timeout" env:"TIMEOUT"`
}

// Data 存储与消息配置
type Data struct {
	Database Database `json:"database"`
	Redis    Redis    `json:"redis"`
	Rabbitmq Rabbitmq `json:"rabbitmq"`
}

// Database 流注册表数据库，Source 为空时使用内存实现
type Database struct {
	Driver string `json:"driver" env:"RANDOMIZER_DB_DRIVER"`
	Source string `json:"source" env:"RANDOMIZER_DB_SOURCE"`
}

// Redis 检查点存储，Addr 为空时使用内存实现
type Redis struct {
	Addr         string   `json:"addr" env:"RANDOMIZER_REDIS_ADDR"`
	Password     string   `json:"password" env:"RANDOMIZER_REDIS_PASSWORD"`
	Db           int      `json:"db" env:"RANDOMIZER_REDIS_DB"`
	ReadTimeout  Duration `json:"read_timeout" env:"RANDOMIZER_REDIS_READ_TIMEOUT"`
	WriteTimeout Duration `json:"write_timeout" env:"RANDOMIZER_REDIS_WRITE_TIMEOUT"`
}

// Rabbitmq 流事件发布，Url 为空时不发布
type Rabbitmq struct {
	Url      string `json:"url" env:"RANDOMIZER_AMQP_URL"`
	Exchange string `json:"exchange" env:"RANDOMIZER_AMQP_EXCHANGE"`
	Queue    string `json:"queue" env:"RANDOMIZER_AMQP_QUEUE"`
}

// Randomizer 流服务参数
type Randomizer struct {
	// RootSeed 根流种子，未指定种子的流由根流生成种子
	RootSeed string `json:"root_seed" env:"RANDOMIZER_ROOT_SEED"`
	// MaxDraws 单次请求的最大抽样次数
	MaxDraws int `json:"max_draws" env:"RANDOMIZER_MAX_DRAWS"`
	// MaxArrayLength 数组抽样的最大长度
	MaxArrayLength int `json:"max_array_length" env:"RANDOMIZER_MAX_ARRAY_LENGTH"`
	// CheckpointEvery 每隔多少次抽样请求保存一次检查点
	CheckpointEvery int `json:"checkpoint_every" env:"RANDOMIZER_CHECKPOINT_EVERY"`
}

// Duration 支持 "2s"、"500ms" 形式的时长
type Duration struct {
	time.Duration
}

// UnmarshalText 同时用于 JSON 字符串和环境变量
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText 输出 time.Duration 的字符串形式
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// AsDuration 返回 time.Duration
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}

// Load 加载配置文件并应用环境变量覆盖
func Load(path string) (*Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(path),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if err := env.Parse(&bc); err != nil {
		return nil, err
	}
	bc.applyDefaults()
	return &bc, nil
}

func (bc *Bootstrap) applyDefaults() {
	r := &bc.Randomizer
	if r.MaxDraws <= 0 {
		r.MaxDraws = DefaultMaxDraws
	}
	if r.MaxArrayLength <= 0 {
		r.MaxArrayLength = DefaultMaxArrayLength
	}
	if r.CheckpointEvery <= 0 {
		r.CheckpointEvery = DefaultCheckpointEvery
	}
	if bc.Data.Database.Driver == "" {
		bc.Data.Database.Driver = "postgres"
	}
}
