package server

import (
	"context"

	"randomizer/internal/conf"
	"randomizer/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// 操作名，供中间件与日志使用
const (
	OperationCreateStream = "/randomizer.v1.Streams/CreateStream"
	OperationGetStream    = "/randomizer.v1.Streams/GetStream"
	OperationResetStream  = "/randomizer.v1.Streams/ResetStream"
	OperationDraw         = "/randomizer.v1.Streams/Draw"
	OperationDrawBatch    = "/randomizer.v1.Streams/DrawBatch"
)

// NewHTTPServer 创建 HTTP 服务器并注册流接口
func NewHTTPServer(c *conf.Server, svc *service.StreamService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout.AsDuration() > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)
	registerStreamRoutes(srv, svc)
	return srv
}

func registerStreamRoutes(srv *http.Server, svc *service.StreamService) {
	r := srv.Route("/")
	r.POST("/v1/streams", createStreamHandler(svc))
	r.GET("/v1/streams/{name}", getStreamHandler(svc))
	r.POST("/v1/streams/{name}/reset", resetStreamHandler(svc))
	r.POST("/v1/streams/{name}/draws", drawHandler(svc))
	r.POST("/v1/draws", drawBatchHandler(svc))
}

func createStreamHandler(svc *service.StreamService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.CreateStreamRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreateStream)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.CreateStream(ctx, req.(*service.CreateStreamRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func getStreamHandler(svc *service.StreamService) http.HandlerFunc {
	return func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationGetStream)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.GetStream(ctx, req.(string))
		})
		out, err := h(ctx, name)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func resetStreamHandler(svc *service.StreamService) http.HandlerFunc {
	return func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationResetStream)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.ResetStream(ctx, req.(string))
		})
		out, err := h(ctx, name)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func drawHandler(svc *service.StreamService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.DrawRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Stream = ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationDraw)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			r := req.(*service.DrawRequest)
			return svc.Draw(ctx, r.Stream, r)
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func drawBatchHandler(svc *service.StreamService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.BatchDrawRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationDrawBatch)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.DrawBatch(ctx, req.(*service.BatchDrawRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
