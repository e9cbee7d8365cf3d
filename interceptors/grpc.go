package interceptors

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/provider"
)

// MethodFromFullMethod derives a Method from a gRPC full method name such as
// "/users.v1.UserService/GetUser". The request type is the only parameter,
// so every RPC has exactly one identity.
func MethodFromFullMethod(fullMethod string, req any) invocation.Method {
	svc, name := splitFullMethod(fullMethod)
	var params []string
	if req != nil {
		params = []string{reflect.TypeOf(req).String()}
	}
	return invocation.NewMethod(svc, name, params...)
}

func splitFullMethod(fullMethod string) (service, method string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndexByte(fullMethod, '/'); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "", fullMethod
}

// UnaryServerInterceptor adapts an invocation.Interceptor, typically a whole
// chain, to a gRPC unary server interceptor. The request message is the only
// call argument and the concrete server implementation is the target.
//
// Engine failures are mapped to gRPC status codes; handler errors pass
// through unchanged.
func UnaryServerInterceptor(ic invocation.Interceptor) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if ic == nil {
			return handler(ctx, req)
		}

		call := invocation.NewCall(MethodFromFullMethod(info.FullMethod, req), serverType(info.Server), req)

		var handlerErr error
		resp, err := ic(ctx, call, func(ctx context.Context, call *invocation.Call) (any, error) {
			resp, err := handler(ctx, call.Args[0])
			handlerErr = err
			return resp, err
		})
		if err != nil && (handlerErr == nil || !errors.Is(err, handlerErr)) {
			return resp, toStatus(err)
		}
		return resp, err
	}
}

func serverType(srv any) string {
	if srv == nil {
		return ""
	}
	return strings.TrimPrefix(reflect.TypeOf(srv).String(), "*")
}

// toStatus maps engine failures to gRPC status errors. Errors that already
// carry a status are returned as they are.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		return status.Error(codes.Internal, "internal server error")
	case errors.Is(err, provider.ErrCacheAccess):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, provider.ErrCacheNotFound), errors.Is(err, provider.ErrInvalidModel):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
