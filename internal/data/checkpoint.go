package data

import (
	"context"
	"strconv"
	"sync"

	"randomizer/internal/biz"
	"randomizer/pkg/random"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
)

// keyCheckpointPrefix Redis Hash，字段 seed/state/draws
const keyCheckpointPrefix = "randomizer:checkpoint:"

type checkpointRepo struct {
	data *Data
	log  *log.Helper
}

// NewCheckpointRepo 创建检查点仓储，未配置 Redis 时使用内存实现
func NewCheckpointRepo(data *Data, logger log.Logger) biz.CheckpointRepo {
	if data.redis == nil {
		return newMemoryCheckpointRepo()
	}
	return &checkpointRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/checkpoint")),
	}
}

// SaveCheckpoint 覆盖保存流的当前位置
func (r *checkpointRepo) SaveCheckpoint(ctx context.Context, name string, cp random.Checkpoint) error {
	if err := r.data.redis.HSet(ctx, checkpointKey(name), checkpointFields(cp)).Err(); err != nil {
		r.log.Errorf("save checkpoint failed: stream=%s err=%v", name, err)
		return errors.Wrapf(err, "save checkpoint %s", name)
	}
	return nil
}

// GetCheckpoint 读取流的位置
func (r *checkpointRepo) GetCheckpoint(ctx context.Context, name string) (random.Checkpoint, error) {
	fields, err := r.data.redis.HGetAll(ctx, checkpointKey(name)).Result()
	if err != nil {
		r.log.Errorf("get checkpoint failed: stream=%s err=%v", name, err)
		return random.Checkpoint{}, errors.Wrapf(err, "get checkpoint %s", name)
	}
	// HGETALL 对不存在的 key 返回空 map
	if len(fields) == 0 {
		return random.Checkpoint{}, biz.ErrCheckpointNotFound
	}
	return parseCheckpoint(fields)
}

func checkpointKey(name string) string {
	return keyCheckpointPrefix + name
}

func checkpointFields(cp random.Checkpoint) map[string]interface{} {
	return map[string]interface{}{
		"seed":  cp.Seed,
		"state": strconv.FormatUint(cp.State, 10),
		"draws": strconv.FormatUint(cp.Draws, 10),
	}
}

func parseCheckpoint(fields map[string]string) (random.Checkpoint, error) {
	state, err := strconv.ParseUint(fields["state"], 10, 64)
	if err != nil {
		return random.Checkpoint{}, errors.Wrap(err, "invalid checkpoint state")
	}
	draws, err := strconv.ParseUint(fields["draws"], 10, 64)
	if err != nil {
		return random.Checkpoint{}, errors.Wrap(err, "invalid checkpoint draws")
	}
	return random.Checkpoint{
		Seed:  fields["seed"],
		State: state,
		Draws: draws,
	}, nil
}

// memoryCheckpointRepo 内存检查点，进程退出后丢失
type memoryCheckpointRepo struct {
	mu  sync.RWMutex
	cps map[string]random.Checkpoint
}

func newMemoryCheckpointRepo() *memoryCheckpointRepo {
	return &memoryCheckpointRepo{cps: make(map[string]random.Checkpoint)}
}

func (r *memoryCheckpointRepo) SaveCheckpoint(ctx context.Context, name string, cp random.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cps[name] = cp
	return nil
}

func (r *memoryCheckpointRepo) GetCheckpoint(ctx context.Context, name string) (random.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.cps[name]
	if !ok {
		return random.Checkpoint{}, biz.ErrCheckpointNotFound
	}
	return cp, nil
}
