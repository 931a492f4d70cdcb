package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * RuleService wire contract.
 *
 * Requests and responses are google.protobuf.Struct messages so the rule and
 * dataset shapes stay the JSON documents the engine already reads and
 * writes. Method set:
 *   ListRules            {standard?, version?}          -> {rules: [...]}
 *   GetRule              {core_id}                      -> {rule: {...}}
 *   ListDatasetMetadata  {}                             -> {datasets: [...]}
 *   Validate             {core_ids?, include_dataset?}  -> {outcomes: [...]}
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cdiscengine.rules.v1.RuleService"

const (
	methodListRules           = "/" + ServiceName + "/ListRules"
	methodGetRule             = "/" + ServiceName + "/GetRule"
	methodListDatasetMetadata = "/" + ServiceName + "/ListDatasetMetadata"
	methodValidate            = "/" + ServiceName + "/Validate"
)

// RuleServiceServer is the server API for RuleService.
type RuleServiceServer interface {
	ListRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDatasetMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRuleServiceServer registers srv on s.
func RegisterRuleServiceServer(s grpc.ServiceRegistrar, srv RuleServiceServer) {
	s.RegisterService(&ruleServiceDesc, srv)
}

func unaryHandler(method string, call func(RuleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RuleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RuleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ruleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RuleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRules", Handler: unaryHandler(methodListRules, RuleServiceServer.ListRules)},
		{MethodName: "GetRule", Handler: unaryHandler(methodGetRule, RuleServiceServer.GetRule)},
		{MethodName: "ListDatasetMetadata", Handler: unaryHandler(methodListDatasetMetadata, RuleServiceServer.ListDatasetMetadata)},
		{MethodName: "Validate", Handler: unaryHandler(methodValidate, RuleServiceServer.Validate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cdiscengine/rules/v1/rules.proto",
}

// RuleServiceClient is the client API for RuleService.
type RuleServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRuleServiceClient creates a client over cc.
func NewRuleServiceClient(cc grpc.ClientConnInterface) *RuleServiceClient {
	return &RuleServiceClient{cc: cc}
}

func (c *RuleServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRules calls RuleService.ListRules.
func (c *RuleServiceClient) ListRules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListRules, in, opts...)
}

// GetRule calls RuleService.GetRule.
func (c *RuleServiceClient) GetRule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetRule, in, opts...)
}

// ListDatasetMetadata calls RuleService.ListDatasetMetadata.
func (c *RuleServiceClient) ListDatasetMetadata(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListDatasetMetadata, in, opts...)
}

// Validate calls RuleService.Validate.
func (c *RuleServiceClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodValidate, in, opts...)
}
