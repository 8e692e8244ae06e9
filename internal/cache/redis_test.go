package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func TestRedisGetHitAndMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "src2purl:hit")).
		Return(mock.Result(mock.RedisString(`{"ok":true}`)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "src2purl:miss")).
		Return(mock.Result(mock.RedisNil()))

	s := newRedisStore(c, "src2purl:", time.Hour)
	got, ok, err := s.Get(context.Background(), "hit")
	if err != nil || !ok || string(got) != `{"ok":true}` {
		t.Fatalf("Get hit = %q %v %v", got, ok, err)
	}
	if _, ok, err := s.Get(context.Background(), "miss"); ok || err != nil {
		t.Fatalf("Get miss = %v %v", ok, err)
	}
}

func TestRedisGetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "p:k")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := newRedisStore(c, "p:", 0)
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisSetUsesTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 5 && cmd[0] == "SET" && cmd[1] == "p:k" && cmd[2] == "v" &&
				cmd[3] == "EX" && cmd[4] == "120"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := newRedisStore(c, "p:", 2*time.Minute)
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestRedisSetWithoutTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "p:k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := newRedisStore(c, "p:", 0)
	if err := s.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestRedisClearScansPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && cmd[3] == "p:*"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(7),
					mock.RedisArray(mock.RedisString("p:a")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("p:b")),
			))
		}).Times(2)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "p:a", "p:b")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := newRedisStore(c, "p:", 0)
	removed, err := s.Clear(context.Background())
	if err != nil || removed != 2 {
		t.Fatalf("Clear = %d %v", removed, err)
	}
}

func TestRedisStatsCountsKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0),
			mock.RedisArray(mock.RedisString("p:a"), mock.RedisString("p:b"), mock.RedisString("p:c")),
		)))

	s := newRedisStore(c, "p:", time.Hour)
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 || stats.Backend != "redis" {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
