package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leoprotocol/leoscore/internal/model"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "leoscore.v1.ScoringService"

// Full method names, as used by clients.
const (
	MethodScore          = "/" + ServiceName + "/Score"
	MethodSuggest        = "/" + ServiceName + "/Suggest"
	MethodEvaluateBypass = "/" + ServiceName + "/EvaluateBypass"
	MethodListPatterns   = "/" + ServiceName + "/ListPatterns"
)

// ScoringServer is the server API for the scoring service. Requests and
// responses are google.protobuf.Struct documents carrying the JSON form of
// the model types.
type ScoringServer interface {
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Suggest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateBypass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPatterns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ScoringServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScoringServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScoringServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the scoring service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: unaryHandler(MethodScore, ScoringServer.Score)},
		{MethodName: "Suggest", Handler: unaryHandler(MethodSuggest, ScoringServer.Suggest)},
		{MethodName: "EvaluateBypass", Handler: unaryHandler(MethodEvaluateBypass, ScoringServer.EvaluateBypass)},
		{MethodName: "ListPatterns", Handler: unaryHandler(MethodListPatterns, ScoringServer.ListPatterns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leoscore/v1/scoring.proto",
}

// Encode converts v to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return out, nil
}

// Decode fills v from the JSON form of s.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ScoreRequest is the payload of the Score RPC.
type ScoreRequest struct {
	SubjectID string         `json:"subject_id"`
	Context   *model.Context `json:"context,omitempty"`
}

// SuggestResponse is the payload returned by the Suggest RPC.
type SuggestResponse struct {
	PostMortemID string        `json:"postmortem_id"`
	Suggestions  []model.Match `json:"suggestions"`
}

// ListPatternsRequest filters ListPatterns. Empty fields match everything.
type ListPatternsRequest struct {
	ID       string         `json:"id,omitempty"`
	Category model.Category `json:"category,omitempty"`
	Severity model.Severity `json:"severity,omitempty"`
}

// ListPatternsResponse is the payload returned by the ListPatterns RPC.
type ListPatternsResponse struct {
	Patterns    []model.Pattern `json:"patterns"`
	CatalogHash string          `json:"catalog_hash"`
}
