// internal/pkg/config/config.go
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是整个进程的配置根对象，启动时从 YAML 加载一次，
// 关键字段允许用环境变量覆盖（容器部署时更方便）。
type Config struct {
	App struct {
		Currency          string `yaml:"currency"`
		ConsumerGroupID   string `yaml:"consumerGroupId"`
		ConsumerPoolSize  int    `yaml:"consumerPoolSize"`
		NotificationTopic string `yaml:"notificationTopic"`
	} `yaml:"app"`

	Infra struct {
		MySQL struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Payment struct {
		Stripe struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseUrl"`
		} `yaml:"stripe"`
	} `yaml:"payment"`
}

// Load 从 path 读取配置文件；文件不存在时退回到纯默认值+环境变量。
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Currency = "usd"
	cfg.App.ConsumerGroupID = "order-worker-group"
	cfg.App.ConsumerPoolSize = 8
	cfg.App.NotificationTopic = "notifications"
	cfg.Infra.MySQL.DSN = "root:root@tcp(localhost:3306)/orderhub?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Payment.Stripe.BaseURL = "https://api.stripe.com/v1"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.Infra.MySQL.DSN = getEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	cfg.Payment.Stripe.APIKey = getEnv("STRIPE_API_KEY", cfg.Payment.Stripe.APIKey)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

// getEnv 从环境变量读取配置，不存在时返回默认值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
