// Package server exposes the scoring engine as a gRPC service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leoprotocol/leoscore/internal/bypass"
	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/logging"
	"github.com/leoprotocol/leoscore/internal/model"
)

// Config holds gRPC server configuration.
type Config struct {
	Port int
}

// Server implements ScoringServer on top of an engine.
type Server struct {
	engine *engine.Engine
	logger *zap.Logger
	cfg    Config

	grpcServer *grpc.Server
}

// New creates a gRPC server for eng. The engine stays owned by the caller.
func New(eng *engine.Engine, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		engine: eng,
		logger: logging.OrNop(logger),
		cfg:    cfg,
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	s.grpcServer.RegisterService(&ServiceDesc, s)
	return s
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.ServeOn(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("rpc failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("rpc", fields...)
	}
	return resp, err
}

// Score implements the Score RPC.
func (s *Server) Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ScoreRequest
	if err := Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if in.SubjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}

	a, err := s.engine.Score(ctx, in.SubjectID, in.Context)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(a)
}

// Suggest implements the Suggest RPC.
func (s *Server) Suggest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var pm model.PostMortem
	if err := Decode(req, &pm); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	suggestions, err := s.engine.Suggest(ctx, pm)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(SuggestResponse{PostMortemID: pm.ID, Suggestions: suggestions})
}

// EvaluateBypass implements the EvaluateBypass RPC.
func (s *Server) EvaluateBypass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var issue model.Issue
	if err := Decode(req, &issue); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	r, err := s.engine.EvaluateBypass(ctx, issue)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(r)
}

// ListPatterns implements the ListPatterns RPC.
func (s *Server) ListPatterns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ListPatternsRequest
	if err := Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp := ListPatternsResponse{
		Patterns:    []model.Pattern{},
		CatalogHash: s.engine.CatalogHash(),
	}
	if in.ID != "" {
		p, ok := s.engine.Pattern(in.ID)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "pattern %q not found", in.ID)
		}
		resp.Patterns = append(resp.Patterns, p)
		return encodeResponse(resp)
	}

	for _, p := range s.engine.Patterns() {
		if in.Category != "" && p.Category != in.Category {
			continue
		}
		if in.Severity != "" && p.Severity != in.Severity {
			continue
		}
		resp.Patterns = append(resp.Patterns, p)
	}
	return encodeResponse(resp)
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, bypass.ErrInvalidIssue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
