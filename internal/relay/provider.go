package relay

import (
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const (
	NameLocal = "local"
	NameRedis = "redis"
	NameKafka = "kafka"
)

// Options selects and configures a relay transport.
type Options struct {
	Name         string
	Redis        *redis.Client
	KafkaBrokers string
	KafkaTopic   string
}

// New builds the relay named in opts.
func New(opts Options) (Relay, error) {
	switch opts.Name {
	case "", NameLocal:
		return NewLocal(), nil
	case NameRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("%w: redis relay needs a redis client", ErrUnknownRelay)
		}
		return NewRedis(opts.Redis), nil
	case NameKafka:
		return NewKafka(opts.KafkaBrokers, opts.KafkaTopic)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRelay, opts.Name)
}
