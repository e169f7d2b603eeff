package forgeerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enri312/forge/internal/forgeerrors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"driver failure", forgeerrors.ErrDriverFailure, 1},
		{"cyclic modules", forgeerrors.ErrCyclicModules, 2},
		{"cyclic tasks", forgeerrors.ErrCyclicTasks, 2},
		{"config", forgeerrors.ErrConfig, 2},
		{"cache corrupt", forgeerrors.ErrCacheCorrupt, 3},
		{"interrupted", forgeerrors.ErrInterrupted, 130},
		{"explicit wrap wins", forgeerrors.NewExitCoded(errors.New("boom"), 42), 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, forgeerrors.ExitCode(tc.err))
		})
	}
}

func TestWrapPreservesChain(t *testing.T) {
	wrapped := forgeerrors.Wrap(forgeerrors.ErrBadInputs, "hashing source tree")
	assert.True(t, errors.Is(wrapped, forgeerrors.ErrBadInputs))

	wrappedf := forgeerrors.Wrapf(forgeerrors.ErrTaskNotFound, "task %s", "api/compile")
	assert.True(t, errors.Is(wrappedf, forgeerrors.ErrTaskNotFound))
	assert.Contains(t, wrappedf.Error(), "api/compile")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, forgeerrors.Wrap(nil, "unused"))
	assert.NoError(t, forgeerrors.Wrapf(nil, "unused %d", 1))
}
