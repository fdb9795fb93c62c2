package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRepoContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryRepo() })
}

func TestMemoryRepoHasNoFullText(t *testing.T) {
	var s Store = NewMemoryRepo()
	_, ok := s.(FullTextSearcher)
	assert.False(t, ok)
	assert.NoError(t, s.Close(context.Background()))
}
