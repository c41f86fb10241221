package tools

import (
	"context"
	"encoding/json"

	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/rpc"
)

// RPC method names served by Bind.
const (
	MethodList = "tools/list"
	MethodCall = "tools/call"
	MethodInfo = "server/info"
)

// CallParams is the params object of a tools/call request.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ServerInfo answers server/info.
type ServerInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	ToolCount int    `json:"tool_count"`
}

// Bind registers the registry's tools on an RPC server.
func Bind(s *rpc.Server, r *Registry, name, version string) {
	s.Register(MethodList, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return r.Specs(), nil
	})
	s.Register(MethodCall, func(ctx context.Context, params json.RawMessage) (any, error) {
		var p CallParams
		if len(params) == 0 {
			return nil, apperrors.InvalidInputf("%s: missing params", MethodCall)
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, apperrors.InvalidInputf("%s: malformed params: %v", MethodCall, err)
		}
		if p.Name == "" {
			return nil, apperrors.InvalidInputf("%s: name is required", MethodCall)
		}
		return r.Call(ctx, p.Name, p.Arguments)
	})
	s.Register(MethodInfo, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return ServerInfo{Name: name, Version: version, ToolCount: r.Len()}, nil
	})
}
