package data

import (
	"context"
	"sync"
	"time"

	"randomizer/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// streamPO 流注册表持久化对象
type streamPO struct {
	Name      string    `gorm:"primaryKey;column:name;size:128"`
	Seed      string    `gorm:"column:seed;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (streamPO) TableName() string {
	return "random_streams"
}

type streamRepo struct {
	data *Data
	log  *log.Helper
}

// NewStreamRepo 创建流注册表仓储，未配置数据库时使用内存实现
func NewStreamRepo(data *Data, logger log.Logger) biz.StreamRepo {
	if data.db == nil {
		return newMemoryStreamRepo()
	}
	return &streamRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/stream")),
	}
}

// CreateStream 保存新流
func (r *streamRepo) CreateStream(ctx context.Context, s *biz.Stream) error {
	po := &streamPO{
		Name:      s.Name,
		Seed:      s.Seed,
		CreatedAt: s.CreatedAt,
	}
	if err := r.data.db.WithContext(ctx).Create(po).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return biz.ErrStreamExists
		}
		r.log.Errorf("create stream failed: name=%s err=%v", s.Name, err)
		return errors.Wrapf(err, "create stream %s", s.Name)
	}
	return nil
}

// GetStream 按名称查询流
func (r *streamRepo) GetStream(ctx context.Context, name string) (*biz.Stream, error) {
	var po streamPO
	if err := r.data.db.WithContext(ctx).Where("name = ?", name).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrStreamNotFound
		}
		r.log.Errorf("get stream failed: name=%s err=%v", name, err)
		return nil, errors.Wrapf(err, "get stream %s", name)
	}
	return &biz.Stream{
		Name:      po.Name,
		Seed:      po.Seed,
		CreatedAt: po.CreatedAt,
	}, nil
}

// memoryStreamRepo 内存流注册表，进程退出后丢失
type memoryStreamRepo struct {
	mu      sync.RWMutex
	streams map[string]biz.Stream
}

func newMemoryStreamRepo() *memoryStreamRepo {
	return &memoryStreamRepo{streams: make(map[string]biz.Stream)}
}

func (r *memoryStreamRepo) CreateStream(ctx context.Context, s *biz.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[s.Name]; ok {
		return biz.ErrStreamExists
	}
	r.streams[s.Name] = *s
	return nil
}

func (r *memoryStreamRepo) GetStream(ctx context.Context, name string) (*biz.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[name]
	if !ok {
		return nil, biz.ErrStreamNotFound
	}
	return &s, nil
}
