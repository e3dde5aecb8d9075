package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestFromContext(t *testing.T) {
	logger, hook := test.NewNullLogger()

	FromContext(WithRequestID(context.Background(), "req-1"), logger).Info("tagged")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "req-1", hook.LastEntry().Data["request_id"])

	FromContext(context.Background(), logger).Info("untagged")
	_, ok := hook.LastEntry().Data["request_id"]
	assert.False(t, ok)
}
