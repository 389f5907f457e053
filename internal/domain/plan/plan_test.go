package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCommandString quotes words that need it.
func TestCommandString(t *testing.T) {
	t.Parallel()

	cmd := Command{Name: "uvicorn", Args: []string{"main:app", "--port", "", "--root-path", "/a b"}}
	require.Equal(t, `uvicorn main:app --port "" --root-path "/a b"`, cmd.String())
	require.Equal(t, []string{"uvicorn", "main:app", "--port", "", "--root-path", "/a b"}, cmd.Argv())
}
