package service

import (
	"context"
	"fmt"

	"randomizer/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewStreamService)

// CreateStreamRequest 创建流请求
type CreateStreamRequest struct {
	Name string `json:"name"`
	Seed string `json:"seed"`
}

// StreamReply 流信息
type StreamReply struct {
	Name      string `json:"name"`
	Seed      string `json:"seed"`
	Draws     uint64 `json:"draws"`
	CreatedAt int64  `json:"created_at"`
}

// DrawSpecRequest 抽样描述，arrays 可以嵌套
type DrawSpecRequest struct {
	Kind       string           `json:"kind"`
	Min        float64          `json:"min"`
	Max        float64          `json:"max"`
	Step       *float64         `json:"step,omitempty"`
	Bias       *float64         `json:"bias,omitempty"`
	Items      []any            `json:"items,omitempty"`
	Weights    []float64        `json:"weights,omitempty"`
	Length     int              `json:"length"`
	LengthSpec *DrawSpecRequest `json:"length_spec,omitempty"`
	Item       *DrawSpecRequest `json:"item,omitempty"`
}

// DrawRequest 单流抽样请求，Count 为 0 时抽样一次
type DrawRequest struct {
	Stream string           `json:"stream,omitempty"`
	Spec   *DrawSpecRequest `json:"spec"`
	Count  int              `json:"count"`
}

// BatchDrawRequest 批量抽样请求
type BatchDrawRequest struct {
	Requests []*DrawRequest `json:"requests"`
}

// StreamService implements stream APIs.
type StreamService struct {
	uc  *biz.StreamUsecase
	log *log.Helper
}

// NewStreamService creates a StreamService.
func NewStreamService(uc *biz.StreamUsecase, logger log.Logger) *StreamService {
	return &StreamService{
		uc:  uc,
		log: log.NewHelper(log.With(logger, "module", "service/stream")),
	}
}

// CreateStream 创建命名流，seed 为空时由服务生成
func (s *StreamService) CreateStream(ctx context.Context, req *CreateStreamRequest) (*StreamReply, error) {
	stream, err := s.uc.CreateStream(ctx, req.Name, req.Seed)
	if err != nil {
		s.log.Warnf("create stream failed: name=%s err=%v", req.Name, err)
		return nil, err
	}
	return toStreamReply(stream), nil
}

// GetStream 查询流
func (s *StreamService) GetStream(ctx context.Context, name string) (*StreamReply, error) {
	stream, err := s.uc.GetStream(ctx, name)
	if err != nil {
		return nil, err
	}
	return toStreamReply(stream), nil
}

// ResetStream 重置流到初始位置
func (s *StreamService) ResetStream(ctx context.Context, name string) (*StreamReply, error) {
	stream, err := s.uc.ResetStream(ctx, name)
	if err != nil {
		s.log.Warnf("reset stream failed: name=%s err=%v", name, err)
		return nil, err
	}
	return toStreamReply(stream), nil
}

// Draw 在流上抽样，返回 {stream, draws, values}
func (s *StreamService) Draw(ctx context.Context, name string, req *DrawRequest) (*structpb.Struct, error) {
	result, err := s.uc.Draw(ctx, name, toDrawSpec(req.Spec), drawCount(req.Count))
	if err != nil {
		return nil, err
	}
	return toDrawReply(result)
}

// DrawBatch 批量抽样，返回 {results: [...]}，顺序与请求一致
func (s *StreamService) DrawBatch(ctx context.Context, req *BatchDrawRequest) (*structpb.Struct, error) {
	reqs := make([]biz.DrawRequest, 0, len(req.Requests))
	for i, r := range req.Requests {
		if r == nil {
			return nil, errors.BadRequest(biz.ReasonInvalidDrawSpec, fmt.Sprintf("requests[%d] is null", i))
		}
		reqs = append(reqs, biz.DrawRequest{
			Stream: r.Stream,
			Spec:   toDrawSpec(r.Spec),
			Count:  drawCount(r.Count),
		})
	}

	results, err := s.uc.DrawBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	list := make([]interface{}, 0, len(results))
	for _, r := range results {
		list = append(list, drawResultMap(r))
	}
	return structpb.NewStruct(map[string]interface{}{
		"results": list,
	})
}

func drawCount(count int) int {
	if count == 0 {
		return 1
	}
	return count
}

func toDrawSpec(req *DrawSpecRequest) *biz.DrawSpec {
	if req == nil {
		return nil
	}
	return &biz.DrawSpec{
		Kind:       biz.DrawKind(req.Kind),
		Min:        req.Min,
		Max:        req.Max,
		Step:       req.Step,
		Bias:       req.Bias,
		Items:      req.Items,
		Weights:    req.Weights,
		Length:     req.Length,
		LengthSpec: toDrawSpec(req.LengthSpec),
		Item:       toDrawSpec(req.Item),
	}
}

func toStreamReply(stream *biz.Stream) *StreamReply {
	return &StreamReply{
		Name:      stream.Name,
		Seed:      stream.Seed,
		Draws:     stream.Draws,
		CreatedAt: stream.CreatedAt.Unix(),
	}
}

func toDrawReply(result *biz.DrawResult) (*structpb.Struct, error) {
	return structpb.NewStruct(drawResultMap(result))
}

// drawResultMap 抽样值可能是 float64、int64、bool、string 或嵌套的 []any，均可转换为 structpb.Value
func drawResultMap(result *biz.DrawResult) map[string]interface{} {
	return map[string]interface{}{
		"stream": result.Stream,
		"draws":  float64(result.Draws),
		"values": result.Values,
	}
}
