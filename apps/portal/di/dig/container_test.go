package dig_container

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoportal "github.com/trezcool/studentportal/apps/portal/echo"
)

func TestNew(t *testing.T) {
	require.NoError(t, os.Setenv("ENV", "TEST"))
	require.NoError(t, os.Setenv("TEST_STORAGE_ENGINE", "memory"))
	t.Cleanup(func() {
		_ = os.Unsetenv("ENV")
		_ = os.Unsetenv("TEST_STORAGE_ENGINE")
	})

	c := New()
	err := c.Invoke(func(server *echoportal.Server, param StorageParam) {
		assert.NotNil(t, server)
		assert.NoError(t, param.Close())
	})
	assert.NoError(t, err)
}
