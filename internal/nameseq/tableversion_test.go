package nameseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableVersionMapMonotonicPut(t *testing.T) {
	m := NewTableVersionMap()

	m.ClaimExclusive()
	m.Put(1, 1)
	m.ReleaseExclusive()

	v, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	m.ClaimExclusive()
	m.Put(1, 1) // same version, ignored
	m.Put(1, 0) // lower version, ignored
	m.ReleaseExclusive()

	v, ok = m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	m.ClaimExclusive()
	m.Put(1, 2)
	m.ReleaseExclusive()

	v, ok = m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTableVersionMapGetUnknown(t *testing.T) {
	m := NewTableVersionMap()
	_, ok := m.Get(42)
	assert.False(t, ok)
}
