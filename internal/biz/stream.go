package biz

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"randomizer/internal/conf"
	"randomizer/pkg/random"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// RootStreamName 根流的保留名称，根流为未指定种子的流生成种子
const RootStreamName = "_root"

// 事件类型
const (
	EventStreamCreated = "stream.created"
	EventStreamReset   = "stream.reset"
)

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Stream 命名随机流（聚合根）
// 一个流对应一个 Randomizer，按种子和调用顺序可复现
type Stream struct {
	Name      string
	Seed      string
	Draws     uint64 // 已推进的次数
	CreatedAt time.Time
}

// StreamEvent 流事件（用于 MQ 消息）
type StreamEvent struct {
	Type      string
	Stream    string
	Seed      string
	Draws     uint64
	Timestamp time.Time
}

// DrawRequest 批量抽样中的单个请求
type DrawRequest struct {
	Stream string
	Spec   *DrawSpec
	Count  int
}

// DrawResult 抽样结果
type DrawResult struct {
	Stream string
	Draws  uint64 // 本次抽样后流的位置
	Values []any
}

// StreamRepo 流注册表
type StreamRepo interface {
	// CreateStream 保存新流，名称已存在时返回 ErrStreamExists
	CreateStream(ctx context.Context, s *Stream) error
	// GetStream 按名称查询，不存在时返回 ErrStreamNotFound
	GetStream(ctx context.Context, name string) (*Stream, error)
}

// CheckpointRepo 流位置存储
type CheckpointRepo interface {
	SaveCheckpoint(ctx context.Context, name string, cp random.Checkpoint) error
	// GetCheckpoint 不存在时返回 ErrCheckpointNotFound
	GetCheckpoint(ctx context.Context, name string) (random.Checkpoint, error)
}

// EventPublisher 流事件发布
type EventPublisher interface {
	PublishStreamEvent(ctx context.Context, event StreamEvent) error
}

// streamHandle 内存中的流，mu 保证同一个 Randomizer 只有一个使用者
type streamHandle struct {
	mu       sync.Mutex
	stream   Stream
	rnd      *random.Randomizer
	requests int // 上次检查点之后的抽样请求数
}

// StreamUsecase 流业务用例
type StreamUsecase struct {
	streams     StreamRepo
	checkpoints CheckpointRepo
	events      EventPublisher
	cfg         *conf.Randomizer
	logger      log.Logger
	log         *log.Helper

	mu      sync.Mutex
	handles map[string]*streamHandle
	root    *streamHandle
}

// NewStreamUsecase 创建流业务用例
func NewStreamUsecase(
	c *conf.Randomizer,
	streams StreamRepo,
	checkpoints CheckpointRepo,
	events EventPublisher,
	logger log.Logger,
) (*StreamUsecase, error) {
	if c.RootSeed == "" {
		return nil, random.ErrInvalidSeed
	}
	return &StreamUsecase{
		streams:     streams,
		checkpoints: checkpoints,
		events:      events,
		cfg:         c,
		logger:      logger,
		log:         log.NewHelper(log.With(logger, "module", "biz/stream")),
		handles:     make(map[string]*streamHandle),
	}, nil
}

// CreateStream 创建命名流
// seed 为空时由根流生成
func (uc *StreamUsecase) CreateStream(ctx context.Context, name, seed string) (*Stream, error) {
	if !streamNamePattern.MatchString(name) {
		return nil, ErrInvalidStreamName
	}

	if seed == "" {
		minted, err := uc.mintSeed(ctx)
		if err != nil {
			return nil, err
		}
		seed = minted
	}

	rnd, err := random.Create(seed, random.WithLogger(uc.logger))
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	s := Stream{
		Name:      name,
		Seed:      seed,
		CreatedAt: time.Now(),
	}
	if err := uc.streams.CreateStream(ctx, &s); err != nil {
		return nil, err
	}
	h := &streamHandle{stream: s, rnd: rnd}
	if err := uc.checkpoints.SaveCheckpoint(ctx, name, rnd.Checkpoint()); err != nil {
		// 流已注册，没有检查点时 load 从种子开始，位置相同；下次抽样重试保存
		uc.log.Errorf("save initial checkpoint failed: stream=%s err=%v", name, err)
		h.requests = uc.cfg.CheckpointEvery
	}
	uc.handles[name] = h

	uc.log.Infof("stream created: name=%s", name)
	uc.publish(ctx, EventStreamCreated, s)
	return &s, nil
}

// GetStream 查询流及其当前位置
func (uc *StreamUsecase) GetStream(ctx context.Context, name string) (*Stream, error) {
	h, err := uc.handle(ctx, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stream
	s.Draws = h.rnd.Draws()
	return &s, nil
}

// Draw 在命名流上按 spec 抽样 count 次
func (uc *StreamUsecase) Draw(ctx context.Context, name string, spec *DrawSpec, count int) (*DrawResult, error) {
	if err := uc.checkCount(count); err != nil {
		return nil, err
	}
	h, err := uc.handle(ctx, name)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return uc.draw(ctx, h, spec, count)
}

// DrawBatch 批量抽样
// 不同流上的请求并行执行，同一流上的请求保持提交顺序。
// 所有请求先完成校验，任何一个请求非法时不推进任何流。
func (uc *StreamUsecase) DrawBatch(ctx context.Context, reqs []DrawRequest) ([]*DrawResult, error) {
	// 在临时 Randomizer 上校验 spec，叶子值总数不超过 MaxDraws
	scratch, err := random.Create(RootStreamName)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, req := range reqs {
		if err := uc.checkCount(req.Count); err != nil {
			return nil, err
		}
		_, cost, err := buildSampler(scratch, req.Spec, uc.limits(), 0)
		if err != nil {
			return nil, err
		}
		total += cost * req.Count
		if total > uc.cfg.MaxDraws {
			return nil, tooManyDraws("batch produces more than %d values", uc.cfg.MaxDraws)
		}
	}

	// 按流分组
	order := make([]string, 0, len(reqs))
	groups := make(map[string][]int)
	handles := make(map[string]*streamHandle)
	for i, req := range reqs {
		if _, ok := groups[req.Stream]; !ok {
			h, err := uc.handle(ctx, req.Stream)
			if err != nil {
				return nil, err
			}
			handles[req.Stream] = h
			order = append(order, req.Stream)
		}
		groups[req.Stream] = append(groups[req.Stream], i)
	}

	results := make([]*DrawResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range order {
		h, idx := handles[name], groups[name]
		g.Go(func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, i := range idx {
				res, err := uc.draw(gctx, h, reqs[i].Spec, reqs[i].Count)
				if err != nil {
					return err
				}
				results[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResetStream 将流重置到初始位置
func (uc *StreamUsecase) ResetStream(ctx context.Context, name string) (*Stream, error) {
	h, err := uc.handle(ctx, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rnd, err := random.Create(h.stream.Seed, random.WithLogger(uc.logger))
	if err != nil {
		return nil, err
	}
	if err := uc.checkpoints.SaveCheckpoint(ctx, name, rnd.Checkpoint()); err != nil {
		uc.log.Errorf("save checkpoint on reset failed: stream=%s err=%v", name, err)
		return nil, err
	}
	h.rnd = rnd
	h.requests = 0

	uc.log.Infof("stream reset: name=%s", name)
	uc.publish(ctx, EventStreamReset, h.stream)
	s := h.stream
	return &s, nil
}

// draw 调用方必须持有 h.mu
func (uc *StreamUsecase) draw(ctx context.Context, h *streamHandle, spec *DrawSpec, count int) (*DrawResult, error) {
	fn, cost, err := buildSampler(h.rnd, spec, uc.limits(), 0)
	if err != nil {
		return nil, err
	}
	if cost*count > uc.cfg.MaxDraws {
		return nil, tooManyDraws("%d draws of %d values exceed limit %d", count, cost, uc.cfg.MaxDraws)
	}
	values := make([]any, count)
	for i := range values {
		values[i] = fn()
	}

	h.requests++
	if h.requests >= uc.cfg.CheckpointEvery {
		if err := uc.checkpoints.SaveCheckpoint(ctx, h.stream.Name, h.rnd.Checkpoint()); err != nil {
			// 保留计数，下次请求重试
			uc.log.Errorf("save checkpoint failed: stream=%s draws=%d err=%v", h.stream.Name, h.rnd.Draws(), err)
		} else {
			h.requests = 0
		}
	}

	return &DrawResult{
		Stream: h.stream.Name,
		Draws:  h.rnd.Draws(),
		Values: values,
	}, nil
}

func (uc *StreamUsecase) limits() samplerLimits {
	return samplerLimits{
		maxArrayLength: uc.cfg.MaxArrayLength,
		maxValues:      uc.cfg.MaxDraws,
	}
}

func (uc *StreamUsecase) checkCount(count int) error {
	if count <= 0 {
		return invalidDrawSpec("count must be positive, got %d", count)
	}
	if count > uc.cfg.MaxDraws {
		return ErrTooManyDraws
	}
	return nil
}

// handle 返回内存中的流，必要时从注册表和检查点加载
func (uc *StreamUsecase) handle(ctx context.Context, name string) (*streamHandle, error) {
	if !streamNamePattern.MatchString(name) {
		return nil, ErrInvalidStreamName
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if h, ok := uc.handles[name]; ok {
		return h, nil
	}

	s, err := uc.streams.GetStream(ctx, name)
	if err != nil {
		return nil, err
	}
	rnd, err := uc.load(ctx, name, s.Seed)
	if err != nil {
		return nil, err
	}
	h := &streamHandle{stream: *s, rnd: rnd}
	uc.handles[name] = h
	return h, nil
}

// load 从检查点恢复 Randomizer，没有可用检查点时从种子重新开始
func (uc *StreamUsecase) load(ctx context.Context, name, seed string) (*random.Randomizer, error) {
	cp, err := uc.checkpoints.GetCheckpoint(ctx, name)
	switch {
	case errors.Is(err, ErrCheckpointNotFound):
		uc.log.Warnf("no checkpoint, starting from seed: stream=%s", name)
		return random.Create(seed, random.WithLogger(uc.logger))
	case err != nil:
		return nil, err
	case cp.Seed != seed:
		uc.log.Warnf("checkpoint seed mismatch, starting from seed: stream=%s", name)
		return random.Create(seed, random.WithLogger(uc.logger))
	}
	uc.log.Infof("stream restored: name=%s draws=%d", name, cp.Draws)
	return random.Restore(cp, random.WithLogger(uc.logger))
}

// mintSeed 从根流生成新种子，根流位置同样保存检查点，重启后不会重复
func (uc *StreamUsecase) mintSeed(ctx context.Context) (string, error) {
	uc.mu.Lock()
	if uc.root == nil {
		rnd, err := uc.load(ctx, RootStreamName, uc.cfg.RootSeed)
		if err != nil {
			uc.mu.Unlock()
			return "", err
		}
		uc.root = &streamHandle{stream: Stream{Name: RootStreamName, Seed: uc.cfg.RootSeed}, rnd: rnd}
	}
	root := uc.root
	uc.mu.Unlock()

	root.mu.Lock()
	defer root.mu.Unlock()
	seed := root.rnd.Seeds()()
	if err := uc.checkpoints.SaveCheckpoint(ctx, RootStreamName, root.rnd.Checkpoint()); err != nil {
		uc.log.Errorf("save root checkpoint failed: %v", err)
		return "", err
	}
	return seed, nil
}

func (uc *StreamUsecase) publish(ctx context.Context, typ string, s Stream) {
	event := StreamEvent{
		Type:      typ,
		Stream:    s.Name,
		Seed:      s.Seed,
		Draws:     s.Draws,
		Timestamp: time.Now(),
	}
	if err := uc.events.PublishStreamEvent(ctx, event); err != nil {
		uc.log.Warnf("publish stream event failed: type=%s stream=%s err=%v", typ, s.Name, err)
	}
}
