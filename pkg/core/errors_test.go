package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netopshub/nocmem-go/pkg/core"
)

func TestMemoryError_Format(t *testing.T) {
	err := core.NewMemoryError("ReinforceMemory", core.ErrNotFound)
	assert.Equal(t, "nocmem: ReinforceMemory: memory not found", err.Error())
}

func TestMemoryError_Unwrap(t *testing.T) {
	err := core.NewMemoryError("StartEpisode", core.ErrStorageOperation)
	assert.True(t, errors.Is(err, core.ErrStorageOperation))

	var memErr *core.MemoryError
	assert.True(t, errors.As(err, &memErr))
	assert.Equal(t, "StartEpisode", memErr.Op)
}

func TestNewMemoryError_NilIsNil(t *testing.T) {
	assert.Nil(t, core.NewMemoryError("Anything", nil))
}
