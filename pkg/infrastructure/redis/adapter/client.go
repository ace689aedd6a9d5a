package adapter

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ClientOptions identifica a instância Redis usada pelo armazenamento e pelos streams.
type ClientOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts ClientOptions) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// Ping verifica a conexão antes de o cliente ser entregue aos adaptadores.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	return client.Ping(ctx).Err()
}

// Close fecha o cliente tolerando um fechamento anterior, já que os
// publishers e subscribers do redisstream fecham o cliente que recebem.
func Close(client redis.UniversalClient) error {
	if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
