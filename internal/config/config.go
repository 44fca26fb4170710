package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// MailProvider selects the outbound transport: relay or ses.
	MailProvider string `env:"MAIL_PROVIDER,default=relay"`
	MailRelayURL string `env:"MAIL_RELAY_URL"`
	MailSender   string `env:"MAIL_SENDER,default=noreply@bandsync.app"`
	AWSRegion    string `env:"AWS_REGION,default=us-east-1"`

	ReminderScanMinutes  int `env:"REMINDER_SCAN_MINUTES,default=5"`
	ReportScanMinutes    int `env:"REPORT_SCAN_MINUTES,default=5"`
	DeadlineReminderHour int `env:"DEADLINE_REMINDER_HOUR,default=9"`

	SendRatePerSec      int `env:"SEND_RATE_PER_SEC,default=25"`
	SendTimeoutSeconds  int `env:"SEND_TIMEOUT_SECONDS,default=10"`
	DispatchConcurrency int `env:"DISPATCH_CONCURRENCY,default=8"`
	ConsumerPrefetch    int `env:"CONSUMER_PREFETCH,default=16"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
