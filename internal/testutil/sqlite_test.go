package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionsShareOnePool(t *testing.T) {
	f := NewFactory(t)
	for i := 0; i < MaxSessions; i++ {
		Session(t, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := f.OpenSession(ctx)
	assert.Error(t, err, "an exhausted pool reports an error instead of blocking")
}
