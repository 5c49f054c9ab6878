package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

func TestVersionParser(t *testing.T) {
	t.Parallel()

	t.Run("Should parse without a cache", func(t *testing.T) {
		t.Parallel()

		p, err := NewVersionParser(0)
		require.NoError(t, err)

		v, ok := p.Parse("1.2.3-beta")
		require.True(t, ok)
		assert.Equal(t, "1.2.3-beta", v.String())

		_, ok = p.Parse(123)
		assert.False(t, ok)
	})

	t.Run("Should return the same result from the cache", func(t *testing.T) {
		t.Parallel()

		// Arrange
		p, err := NewVersionParser(16)
		require.NoError(t, err)
		defer p.Close()

		// Act
		first, ok1 := p.Parse("2.0")
		var second model.Version
		var ok2 bool
		require.Eventually(t, func() bool {
			// otter applies writes asynchronously.
			second, ok2 = p.Parse("2.0")
			return p.cache.Len() == 1
		}, time.Second, 10*time.Millisecond)

		// Assert
		assert.True(t, ok1)
		assert.True(t, ok2)
		assert.True(t, first.Equal(second))
	})

	t.Run("Should cache failures too", func(t *testing.T) {
		t.Parallel()

		p, err := NewVersionParser(16)
		require.NoError(t, err)
		defer p.Close()

		_, ok := p.Parse("not-a-version")
		assert.False(t, ok)

		require.Eventually(t, func() bool {
			_, ok := p.Parse("not-a-version")
			return !ok && p.cache.Len() == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Should tolerate a nil parser", func(t *testing.T) {
		t.Parallel()

		var p *VersionParser
		_, ok := p.Parse("1.0.0")
		assert.True(t, ok)
		p.Close()
	})
}
