// Package base wires the storage, datastore and judge backend layers into
// the operations the HTTP layer and the grader loop call. It owns the
// caches and the cross-layer invariants; handlers stay thin.
package base

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/redis/go-redis/v9"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/datastore"
	"github.com/wykstemteam/wykoj/db"
	"github.com/wykstemteam/wykoj/internal/config"
	"github.com/wykstemteam/wykoj/judgeapi"
)

// Grader is implemented by the judging loop. Wake must never block.
type Grader interface {
	Wake()
}

// JudgeRunner is the slice of the judge backend client the base needs.
type JudgeRunner interface {
	Online(ctx context.Context) bool
	Submit(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, config *wykoj.TestConfig) (*wykoj.JudgeReport, error)
	Dispatch(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, config *wykoj.TestConfig) error
}

type BaseAPI struct {
	db  *db.DB
	mgr *datastore.Manager

	judge JudgeRunner

	grader Grader

	// rdb, when configured, carries the wake signal to grader loops in
	// other processes. In-process wakeups go through the Grader directly.
	rdb *redis.Client

	testConfigCache *theine.LoadingCache[string, *wykoj.TestConfig]
}

// WakeChannel is the redis pub/sub channel submission producers publish to
// and grader loops subscribe on.
const WakeChannel = "wykoj:grader:wake"

func (s *BaseAPI) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	s.db.Close()
}

// RegisterGrader attaches the judging loop once it exists. Submissions
// created before registration are picked up by the loop's ticker.
func (s *BaseAPI) RegisterGrader(g Grader) {
	s.grader = g
}

func (s *BaseAPI) WakeGrader() {
	if s.grader != nil {
		s.grader.Wake()
	}
	if s.rdb != nil {
		if err := s.rdb.Publish(context.Background(), WakeChannel, "wake").Err(); err != nil {
			slog.Warn("Couldn't publish grader wakeup", slog.Any("err", err))
		}
	}
}

func (s *BaseAPI) JudgeOnline(ctx context.Context) bool {
	return s.judge.Online(ctx)
}

// Judge exposes the backend client so the grader loop can share it.
func (s *BaseAPI) Judge() JudgeRunner {
	return s.judge
}

func (s *BaseAPI) DataStore() *datastore.Manager {
	return s.mgr
}

func GetBaseAPI(dbClient *db.DB, mgr *datastore.Manager, judge JudgeRunner) (*BaseAPI, error) {
	base := &BaseAPI{
		db:  dbClient,
		mgr: mgr,

		judge: judge,
	}
	if config.C.Cache.Host != "" {
		base.rdb = redis.NewClient(&redis.Options{
			Addr:     config.C.Cache.Host,
			Password: config.C.Cache.Password,
			DB:       config.C.Cache.DB,
		})
	}
	cfgCache, err := theine.NewBuilder[string, *wykoj.TestConfig](200).BuildWithLoader(func(ctx context.Context, taskID string) (theine.Loaded[*wykoj.TestConfig], error) {
		cfg, err := base.loadTestConfig(ctx, taskID)
		if err != nil {
			return theine.Loaded[*wykoj.TestConfig]{}, err
		}
		return theine.Loaded[*wykoj.TestConfig]{
			Value: cfg,
			Cost:  1,
			TTL:   testConfigTTL,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build test config cache: %w", err)
	}
	base.testConfigCache = cfgCache

	return base, nil
}

func InitializeBaseAPI(ctx context.Context) (*BaseAPI, error) {
	mgr, err := datastore.New(config.C.Common.TestCaseDir)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize test case store: %w", err)
	}

	dbClient, err := db.NewPSQL(ctx, config.C.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect to DB: %w", err)
	}
	slog.InfoContext(ctx, "Connected to DB")

	if err := dbClient.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("couldn't run migrations: %w", err)
	}

	judge, err := judgeapi.New(
		config.C.Judge.Host, config.C.Common.SharedSecret,
		config.C.Judge.PingTimeout(), config.C.Judge.JudgeTimeout(),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize judge client: %w", err)
	}

	return GetBaseAPI(dbClient, mgr, judge)
}

const testConfigTTL = 10 * time.Second
