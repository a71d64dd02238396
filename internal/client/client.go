// Package client calls a remote leoscore gRPC server.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/server"
)

const callTimeout = 5 * time.Second

// Client connects to a leoscore gRPC server.
type Client struct {
	conn *grpc.ClientConn
}

// New creates a gRPC client connected to the given address.
// Fail-closed: if the server cannot be reached, EvaluateBypass returns FULL_SD.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scoring server: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	in, err := server.Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return server.Decode(out, resp)
}

// Score asks the server to assess a subject.
func (c *Client) Score(ctx context.Context, subjectID string, sc *model.Context) (model.Assessment, error) {
	var a model.Assessment
	err := c.call(ctx, server.MethodScore, server.ScoreRequest{SubjectID: subjectID, Context: sc}, &a)
	return a, err
}

// Suggest asks the server to map a post-mortem onto the catalog.
func (c *Client) Suggest(ctx context.Context, pm model.PostMortem) ([]model.Match, error) {
	var resp server.SuggestResponse
	if err := c.call(ctx, server.MethodSuggest, pm, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// EvaluateBypass asks the server for a governance pathway.
// Fail-closed: any RPC error yields FULL_SD without bypass.
func (c *Client) EvaluateBypass(ctx context.Context, issue model.Issue) model.BypassResult {
	var r model.BypassResult
	if err := c.call(ctx, server.MethodEvaluateBypass, issue, &r); err != nil {
		return model.BypassResult{
			Bypass:     false,
			Pathway:    model.PathwayFullSD,
			Confidence: 100,
			Reason:     fmt.Sprintf("scoring server unreachable: %v", err),
		}
	}
	return r
}

// ListPatterns returns the server's active patterns matching the filter.
func (c *Client) ListPatterns(ctx context.Context, filter server.ListPatternsRequest) ([]model.Pattern, error) {
	var resp server.ListPatternsResponse
	if err := c.call(ctx, server.MethodListPatterns, filter, &resp); err != nil {
		return nil, err
	}
	return resp.Patterns, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
