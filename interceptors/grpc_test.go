package interceptors_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Keksclan/goRawrCache/interceptors"
	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
)

type userServer struct{}

const getUserRPC = "/users.v1.UserService/GetUser"

func rpcCaching() *policy.Resolver[policy.CacheModel] {
	return cacheResolver(policy.Group[policy.CacheModel]("rpc").Exact("users.v1.UserService.GetUser").Model(usersModel))
}

func TestMethodFromFullMethod(t *testing.T) {
	m := interceptors.MethodFromFullMethod(getUserRPC, &wrapperspb.Int64Value{})
	assert.Equal(t, "users.v1.UserService", m.DeclaringType)
	assert.Equal(t, "GetUser", m.Name)
	assert.Equal(t, []string{"*wrapperspb.Int64Value"}, m.Params)

	bare := interceptors.MethodFromFullMethod("Ping", nil)
	assert.Equal(t, "Ping", bare.FullName())
	assert.Empty(t, bare.Params)
}

func TestUnaryServerInterceptor_CachesResponses(t *testing.T) {
	c := interceptors.NewCaching(rpcCaching(), memoryFacade(t, "users"))
	ic := interceptors.UnaryServerInterceptor(c.Interceptor())
	info := &grpc.UnaryServerInfo{FullMethod: getUserRPC, Server: &userServer{}}

	var calls atomic.Int32
	handler := func(_ context.Context, req any) (any, error) {
		calls.Add(1)
		return wrapperspb.String("user-" + req.(*wrapperspb.Int64Value).String()), nil
	}

	first, err := ic(t.Context(), wrapperspb.Int64(7), info, handler)
	require.NoError(t, err)
	second, err := ic(t.Context(), wrapperspb.Int64(7), info, handler)
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls.Load(), "equal requests share one entry")
	assert.Same(t, first, second)

	_, err = ic(t.Context(), wrapperspb.Int64(8), info, handler)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestUnaryServerInterceptor_HandlerErrorPassesThrough(t *testing.T) {
	c := interceptors.NewCaching(rpcCaching(), memoryFacade(t, "users"))
	ic := interceptors.UnaryServerInterceptor(c.Interceptor())
	info := &grpc.UnaryServerInfo{FullMethod: getUserRPC}

	notFound := status.Error(codes.NotFound, "no such user")
	_, err := ic(t.Context(), wrapperspb.Int64(7), info, func(context.Context, any) (any, error) {
		return nil, notFound
	})
	assert.Equal(t, notFound, err)
}

func TestUnaryServerInterceptor_ProviderFailureIsUnavailable(t *testing.T) {
	f := &mockFacade{}
	f.On("Get", mock.Anything, mock.Anything, usersModel).
		Return(nil, false, &provider.Error{Op: "get", Cache: "users", Kind: provider.ErrCacheAccess})

	c := interceptors.NewCaching(rpcCaching(), f)
	ic := interceptors.UnaryServerInterceptor(c.Interceptor())
	info := &grpc.UnaryServerInfo{FullMethod: getUserRPC}

	_, err := ic(t.Context(), wrapperspb.Int64(7), info, func(context.Context, any) (any, error) {
		return wrapperspb.String("x"), nil
	})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestUnaryServerInterceptor_PanicIsInternal(t *testing.T) {
	ic := interceptors.UnaryServerInterceptor(interceptors.Recovery(zerolog.Nop()))
	info := &grpc.UnaryServerInfo{FullMethod: getUserRPC}

	resp, err := ic(t.Context(), wrapperspb.Int64(7), info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryServerInterceptor_TargetIsServerType(t *testing.T) {
	var seen string
	ic := interceptors.UnaryServerInterceptor(func(ctx context.Context, call *invocation.Call, next invocation.Invoker) (any, error) {
		seen = call.Target
		return next(ctx, call)
	})
	info := &grpc.UnaryServerInfo{FullMethod: getUserRPC, Server: &userServer{}}

	_, err := ic(t.Context(), wrapperspb.Int64(7), info, func(context.Context, any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, "interceptors_test.userServer", seen)
}

func TestUnaryServerInterceptor_NilInterceptor(t *testing.T) {
	ic := interceptors.UnaryServerInterceptor(nil)
	resp, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{}, func(_ context.Context, req any) (any, error) {
		return req, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
}
