package cloudinary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildImageURL(t *testing.T) {
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/outputs/output_1_top_a_0a1b2c3d.png",
		BuildImageURL("demo", "outputs", "output_1_top_a_0a1b2c3d"))
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/x.png", BuildImageURL("demo", "", "x"))
}

func TestNewClientFromParams(t *testing.T) {
	c, err := NewClientFromParams("demo", "key", "secret")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
