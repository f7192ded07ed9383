package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	ApiServer ServerConfigs
	Database  DatabaseConfigs
	Redis     RedisConfigs
	Kafka     KafkaConfigs
	Raffle    RaffleConfigs
	Oracle    OracleConfigs
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string

	AllowedOrigins []string
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr       string
	EventTopic string
}

type RaffleConfigs struct {
	// MaxPurchaseRetry bounds how many times a purchase is re-run after a
	// write conflict before the caller receives a Contention error.
	MaxPurchaseRetry int

	// MaxBatchSize bounds the number of boxes a single purchase request can
	// cover.
	MaxBatchSize int

	GridCacheTTL time.Duration
}

type OracleConfigs struct {
	RequestTopic string
	FulfillTopic string

	// Timeout is how long a randomness request may stay unfulfilled before
	// the raffle is rolled back from Drawing to Full for another attempt.
	Timeout time.Duration

	// MaxAttempts caps oracle retries per raffle. After the cap the raffle is
	// parked for manual intervention instead of hanging.
	MaxAttempts int

	PollInterval time.Duration
}
