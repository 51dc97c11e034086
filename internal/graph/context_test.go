package graph_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/graph"
	"library-backend/pkg/jwt"
)

func TestBuildWithoutHeaderIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	ec := env.builder.Build(context.Background(), "")
	require.NotNil(t, ec)
	assert.Nil(t, ec.CurrentUser)
	assert.NotNil(t, ec.Loaders, "even anonymous contexts carry fresh loaders")
}

func TestBuildWithMalformedHeaderIsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.tokens.Generate(env.principal(t, "mluukkai").ID.String(), "mluukkai")
	require.NoError(t, err)

	headers := []string{
		"Bearer",
		"Bearer ",
		token,
		"Basic " + token,
	}
	for _, header := range headers {
		ec := env.builder.Build(context.Background(), header)
		assert.Nil(t, ec.CurrentUser, "header %q must not authenticate", header)
	}
}

func TestBuildWithInvalidTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	foreign, err := jwt.NewManager("other-secret").Generate(env.principal(t, "mluukkai").ID.String(), "mluukkai")
	require.NoError(t, err)

	for _, token := range []string{"garbage", foreign} {
		ec := env.builder.Build(context.Background(), "Bearer "+token)
		assert.Nil(t, ec.CurrentUser, "token %q must degrade to anonymous, not error", token)
	}
}

func TestBuildWithUnknownSubjectIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.tokens.Generate("0b7aa3dd-33c6-4a53-a9a3-0000deadbeef", "ghost")
	require.NoError(t, err)

	ec := env.builder.Build(context.Background(), "Bearer "+token)
	assert.Nil(t, ec.CurrentUser, "a token for a deleted account must not authenticate")
}

func TestBuildResolvesThePrincipal(t *testing.T) {
	env := newTestEnv(t)
	u := env.principal(t, "mluukkai")

	token, err := env.tokens.Generate(u.ID.String(), u.Username)
	require.NoError(t, err)

	ec := env.builder.Build(context.Background(), fmt.Sprintf("Bearer %s", token))
	require.NotNil(t, ec.CurrentUser)
	assert.Equal(t, u.ID, ec.CurrentUser.ID)
	assert.Equal(t, "mluukkai", ec.CurrentUser.Username)
}

func TestBuildAllocatesFreshLoadersPerCall(t *testing.T) {
	env := newTestEnv(t)

	first := env.builder.Build(context.Background(), "")
	second := env.builder.Build(context.Background(), "")
	assert.NotSame(t, first.Loaders, second.Loaders, "loader caches must never outlive a request")
	assert.NotSame(t, first.Loaders.BookCountByAuthor, second.Loaders.BookCountByAuthor)
}

func TestExecutionContextRoundTripsThroughContext(t *testing.T) {
	env := newTestEnv(t)

	ec := env.builder.Build(context.Background(), "")
	ctx := graph.WithExecutionContext(context.Background(), ec)
	assert.Same(t, ec, graph.FromContext(ctx))

	assert.Nil(t, graph.FromContext(context.Background()))
}
