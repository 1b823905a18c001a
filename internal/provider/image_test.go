package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/cloudbroker/internal/cloud"
	cbtest "github.com/imamik/cloudbroker/internal/testing"
)

func TestImagesHidesInactiveAndClusterImages(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)

	images, err := s.Images(cbtest.TestContext(t))
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, cloud.Image{
		ID:       fx.Image.ID,
		Name:     "ubuntu-22.04",
		IsPublic: true,
		SizeMB:   2048,
		Metadata: map[string]string{"os": "linux"},
	}, images[0])
	assert.Equal(t, fx.BackdoorImage.ID, images[1].ID)
	assert.Equal(t, map[string]string{"private_if": "eth1"}, images[1].Metadata)
}

func TestImagesWithCustomPrefix(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx, WithMetadataPrefix("other_"))

	images, err := s.Images(cbtest.TestContext(t))
	require.NoError(t, err)
	// Without the prefix the cluster image marker is not recognized either.
	assert.Len(t, images, 3)
	for _, img := range images {
		assert.Empty(t, img.Metadata, img.Name)
	}
}

func TestFindImage(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)

	img, err := s.FindImage(cbtest.TestContext(t), fx.BackdoorImage.ID)
	require.NoError(t, err)
	assert.Equal(t, "ubuntu-22.04-backdoor", img.Name)

	_, err = s.FindImage(cbtest.TestContext(t), "missing")
	requireKind(t, err, cloud.KindObjectNotFound)
}

func TestSizes(t *testing.T) {
	t.Parallel()
	fx := cbtest.NewCloudFixture()
	s := newSession(t, fx)

	sizes, err := s.Sizes(cbtest.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, []cloud.Size{
		{ID: fx.Small.ID, Name: "small", CPUs: 1, RAMMB: 2048, DiskGB: 20},
		{ID: fx.Large.ID, Name: "large", CPUs: 8, RAMMB: 32768, DiskGB: 160},
	}, sizes)

	size, err := s.FindSize(cbtest.TestContext(t), fx.Large.ID)
	require.NoError(t, err)
	assert.Equal(t, "large", size.Name)
}
