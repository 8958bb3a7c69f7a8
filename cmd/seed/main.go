// Command seed fills the database with demo users, groups, posts and follows
// and prints write/feed-query latencies for the generated data set.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/yatube/config"
	"github.com/d60-Lab/yatube/internal/model"
	"github.com/d60-Lab/yatube/internal/repository"
	"github.com/d60-Lab/yatube/internal/service"
	"github.com/d60-Lab/yatube/pkg/database"
	"github.com/d60-Lab/yatube/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init(cfg.Log.Level, true)
	defer logger.Sync()
	db := must(database.InitDB(cfg))

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	posts := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)
	relSvc := service.NewRelationshipService(follows, users)
	feeds := service.NewFeedService(posts, groups, users, cfg.Feed.PageSize)

	ctx := context.Background()
	N := envInt("USERS", 50)
	POSTS := envInt("POSTS", 20)
	CONC := envInt("CONC", 4)

	// 所有演示用户共用一个密码
	hash := must(bcrypt.GenerateFromPassword([]byte("yatube-demo"), bcrypt.DefaultCost))
	run := strconv.FormatInt(time.Now().Unix(), 36)

	seeded := make([]model.User, N)
	for i := range seeded {
		seeded[i] = model.User{Username: fmt.Sprintf("demo_%s_%d", run, i), PasswordHash: string(hash)}
	}
	if err := db.CreateInBatches(&seeded, 500).Error; err != nil {
		logger.Fatal("seed users", zap.Error(err))
	}

	gs := []*model.Group{
		{Title: "Котики " + run, Slug: "cats-" + run, Description: "Всё о котах"},
		{Title: "Путешествия " + run, Slug: "travel-" + run, Description: "Заметки из поездок"},
	}
	for _, g := range gs {
		if err := groups.Create(ctx, g); err != nil {
			logger.Fatal("seed group", zap.Error(err))
		}
	}

	base := time.Now().Add(-time.Duration(N*POSTS) * time.Minute)
	t0 := time.Now()
	for i := range seeded {
		for j := 0; j < POSTS; j++ {
			p := &model.Post{
				Text:      fmt.Sprintf("Запись %d пользователя %s", j, seeded[i].Username),
				AuthorID:  seeded[i].ID,
				CreatedAt: base.Add(time.Duration(i*POSTS+j) * time.Minute),
			}
			if j%3 == 0 {
				p.GroupID = &gs[j%len(gs)].ID
			}
			if err := posts.Create(ctx, p); err != nil {
				logger.Fatal("seed post", zap.Error(err))
			}
		}
	}
	postDur := time.Since(t0)

	// 每个用户随机关注若干作者，CONC 个 worker 并发写入
	type edge struct{ from, to uint }
	feed := make(chan edge, N*5)
	for i := range seeded {
		for k := 0; k < 5; k++ {
			feed <- edge{from: seeded[i].ID, to: seeded[rand.Intn(N)].ID}
		}
	}
	close(feed)

	var mu sync.Mutex
	followRecs := make([]time.Duration, 0, N*5)
	var wg sync.WaitGroup
	t1 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range feed {
				st := time.Now()
				if err := relSvc.Follow(ctx, e.from, e.to); err != nil {
					logger.Warn("follow failed", zap.Error(err))
					continue
				}
				d := time.Since(st)
				mu.Lock()
				followRecs = append(followRecs, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	followDur := time.Since(t1)

	q0 := time.Now()
	_, _ = feeds.Index(ctx, 1)
	indexDur := time.Since(q0)

	q1 := time.Now()
	_, _ = feeds.Following(ctx, seeded[0].ID, 1)
	followFeedDur := time.Since(q1)

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}

	fmt.Printf("USERS=%d, POSTS=%d, CONC=%d, password=yatube-demo\n", N, POSTS, CONC)
	fmt.Printf("Posts written: %d in %v\n", N*POSTS, postDur)
	fmt.Printf("Follow writes: %d in %v, p50: %v, p95: %v, p99: %v\n",
		len(followRecs), followDur, pct(followRecs, 0.50), pct(followRecs, 0.95), pct(followRecs, 0.99))
	fmt.Printf("Index page latency: %v\n", indexDur)
	fmt.Printf("Follow feed latency (%s): %v\n", seeded[0].Username, followFeedDur)
}
