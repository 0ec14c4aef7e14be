package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClientIDKeepsValidCookie(t *testing.T) {
	id := uuid.NewString()

	ctx := router.NewMockContext()
	ctx.CookiesM[auth.ClientIDCookie] = id
	ctx.On("Locals", auth.ClientIDLocalsKey, id).Return(nil)

	handler := auth.ClientID()(func(c router.Context) error { return nil })
	require.NoError(t, handler(ctx))

	assert.True(t, ctx.NextCalled)
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	ctx.AssertExpectations(t)
}

func TestClientIDIssuesCookie(t *testing.T) {
	var issued string

	ctx := router.NewMockContext()
	ctx.CookiesM[auth.ClientIDCookie] = "tampered"
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		issued = c.Value
		return c.Name == auth.ClientIDCookie && c.HTTPOnly
	})).Return()
	ctx.On("Locals", auth.ClientIDLocalsKey, mock.AnythingOfType("string")).Return(nil)

	handler := auth.ClientID()(func(c router.Context) error { return nil })
	require.NoError(t, handler(ctx))

	_, err := uuid.Parse(issued)
	assert.NoError(t, err)
	assert.True(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
}

func TestClientIDContext(t *testing.T) {
	ctx := auth.ContextWithClientID(context.Background(), "c1")
	assert.Equal(t, "c1", auth.ClientIDFromContext(ctx))
	assert.Empty(t, auth.ClientIDFromContext(context.Background()))
}
