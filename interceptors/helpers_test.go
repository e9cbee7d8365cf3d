package interceptors_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/goRawrCache/invocation"
	"github.com/Keksclan/goRawrCache/key"
	"github.com/Keksclan/goRawrCache/policy"
	"github.com/Keksclan/goRawrCache/provider"
	"github.com/Keksclan/goRawrCache/provider/memory"
)

// mockFacade is a testify mock of provider.Facade.
type mockFacade struct{ mock.Mock }

func (m *mockFacade) Get(ctx context.Context, k key.Key, model policy.CacheModel) (any, bool, error) {
	args := m.Called(ctx, k, model)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *mockFacade) Put(ctx context.Context, k key.Key, model policy.CacheModel, v any) error {
	return m.Called(ctx, k, model, v).Error(0)
}

func (m *mockFacade) Remove(ctx context.Context, k key.Key, model policy.CacheModel) error {
	return m.Called(ctx, k, model).Error(0)
}

func (m *mockFacade) Flush(ctx context.Context, model policy.Model) error {
	return m.Called(ctx, model).Error(0)
}

func (m *mockFacade) Validate(model policy.Model) error {
	return m.Called(model).Error(0)
}

var (
	getUser    = invocation.NewMethod("users.Service", "Get", "int")
	listUsers  = invocation.NewMethod("users.Service", "List")
	updateUser = invocation.NewMethod("users.Service", "Update", "int", "string")
	usersModel = policy.CacheModel{Cache: "users"}
)

func cacheResolver(groups ...*policy.GroupBuilder[policy.CacheModel]) *policy.Resolver[policy.CacheModel] {
	return policy.NewResolver[policy.CacheModel](policy.NewRules(groups...))
}

func flushResolver(groups ...*policy.GroupBuilder[policy.FlushModel]) *policy.Resolver[policy.FlushModel] {
	return policy.NewResolver[policy.FlushModel](policy.NewRules(groups...))
}

func usersCaching() *policy.Resolver[policy.CacheModel] {
	return cacheResolver(policy.Group[policy.CacheModel]("users").Exact("users.Service.Get").Model(usersModel))
}

// target counts its invocations and returns result, err.
type target struct {
	calls  atomic.Int32
	result any
	err    error
}

func (tg *target) invoke(context.Context, *invocation.Call) (any, error) {
	tg.calls.Add(1)
	return tg.result, tg.err
}

func memoryFacade(t *testing.T, caches ...string) *provider.DriverFacade {
	t.Helper()
	d, err := memory.New(memory.Config{Caches: caches})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return provider.NewFacade(d)
}
