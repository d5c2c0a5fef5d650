package store_test

import (
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/store"
	"github.com/KennethAtchon/Loctelli-sub005/store/memory"
	"github.com/KennethAtchon/Loctelli-sub005/store/redis"
)

func TestOpen(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s, err := store.Open(store.Config{Driver: store.DriverMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Errorf("memory driver returned %T", s)
	}

	s, err = store.Open(store.Config{Redis: client, Codec: "msgpack"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*redis.Store); !ok {
		t.Errorf("default driver returned %T", s)
	}

	if _, err := store.Open(store.Config{Driver: store.DriverRedis}); !errors.Is(err, jobs.ErrNoStore) {
		t.Errorf("redis without client = %v, want ErrNoStore", err)
	}
	if _, err := store.Open(store.Config{Driver: "mongo"}); !errors.Is(err, jobs.ErrNoStore) {
		t.Errorf("unknown driver = %v, want ErrNoStore", err)
	}
}
