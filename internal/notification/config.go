package notification

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// WorkerConfig configures the notification worker process.
type WorkerConfig struct {
	RabbitMQURL       string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL" env-required:"true"`
	EmailQueueName    string        `yaml:"email_queue_name" env:"EMAIL_QUEUE_NAME" env-default:"email_notifications"`
	WorkerConcurrency int           `yaml:"worker_concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
	SendTimeout       time.Duration `yaml:"send_timeout" env:"SEND_TIMEOUT" env-default:"30s"`
	HealthCheckPort   string        `yaml:"health_check_port" env:"HEALTH_CHECK_PORT" env-default:"8088"`
	LogLevel          string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	SMTP              SMTPConfig    `yaml:"smtp"`
}

// LoadWorkerConfig reads path when it exists and falls back to the environment.
func LoadWorkerConfig(path string) (*WorkerConfig, error) {
	var cfg WorkerConfig
	if path != "" {
		err := cleanenv.ReadConfig(path, &cfg)
		if err == nil {
			return &cfg, nil
		}
		log.Printf("Warning: could not read config file %q: %v, using environment", path, err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading worker configuration: %w", err)
	}
	return &cfg, nil
}
