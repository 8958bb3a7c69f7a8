// Command cacheclear drops every cached page under the configured key prefix.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Cache.Backend != "redis" {
		fmt.Println("cache backend is in-process; restart the server to clear it")
		return
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis %s: %v\n", cfg.Redis.Addr, err)
		os.Exit(1)
	}
	if err := cache.NewRedisStore(client, cfg.Cache.KeyPrefix).Clear(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("cleared keys under %q\n", cfg.Cache.KeyPrefix)
}
