package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("query failed: %w", NotFound("No items found for query: foo"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrRemote))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestRemoteUnwrapsCause(t *testing.T) {
	err := Remote(0, "GET /items", context.DeadlineExceeded)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrRemote))
	assert.Equal(t, "GET /items: context deadline exceeded", err.Error())
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, InvalidArgument("platform is required").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound("x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CacheIO("save", errors.New("disk")).HTTPStatus())
}
