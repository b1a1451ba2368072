// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	t.Run("neutralizes the single-char wildcard", func(t *testing.T) {
		// Without escaping, a rename of "a_c" would also capture the
		// sibling subtree "abc/...".
		require.Equal(t, `a\_c`, escapeLike("a_c"))
	})

	t.Run("neutralizes the multi-char wildcard", func(t *testing.T) {
		require.Equal(t, `100\%`, escapeLike("100%"))
	})

	t.Run("escapes the escape character itself", func(t *testing.T) {
		require.Equal(t, `a\\b`, escapeLike(`a\b`))
	})

	t.Run("leaves plain paths untouched", func(t *testing.T) {
		require.Equal(t, "docs/2024", escapeLike("docs/2024"))
	})
}
