package provider

import (
	"context"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/util/labels"
)

const imageStatusActive = "active"

// Images lists active images, excluding images reserved for clusters.
func (s *ScopedSession) Images(ctx context.Context) ([]cloud.Image, error) {
	return do(ctx, s.log, "images", func() ([]cloud.Image, error) {
		s.log.Info("Fetching available images")
		is, err := s.conn.Image()
		if err != nil {
			return nil, err
		}
		all, err := is.Images(ctx)
		if err != nil {
			return nil, err
		}
		images := make([]cloud.Image, 0, len(all))
		for _, img := range all {
			if img.Status != imageStatusActive {
				continue
			}
			image := s.toImage(img)
			if labels.Truthy(image.Metadata[labels.MetaClusterImage]) {
				continue
			}
			images = append(images, image)
		}
		s.log.Info("Found images", "count", len(images))
		return images, nil
	})
}

// FindImage returns one image.
func (s *ScopedSession) FindImage(ctx context.Context, id string) (cloud.Image, error) {
	return do(ctx, s.log, "find_image", func() (cloud.Image, error) {
		return s.findImage(ctx, id)
	})
}

func (s *ScopedSession) findImage(ctx context.Context, id string) (cloud.Image, error) {
	s.log.Info("Fetching image", "image", id)
	is, err := s.conn.Image()
	if err != nil {
		return cloud.Image{}, err
	}
	img, err := is.Image(ctx, id)
	if err != nil {
		return cloud.Image{}, err
	}
	return s.toImage(img), nil
}

// Sizes lists the enabled machine sizes.
func (s *ScopedSession) Sizes(ctx context.Context) ([]cloud.Size, error) {
	return do(ctx, s.log, "sizes", func() ([]cloud.Size, error) {
		s.log.Info("Fetching available flavors")
		compute, err := s.conn.Compute()
		if err != nil {
			return nil, err
		}
		flavors, err := compute.Flavors(ctx)
		if err != nil {
			return nil, err
		}
		sizes := make([]cloud.Size, 0, len(flavors))
		for _, f := range flavors {
			if !f.Disabled {
				sizes = append(sizes, toSize(f))
			}
		}
		s.log.Info("Found flavors", "count", len(sizes))
		return sizes, nil
	})
}

// FindSize returns one machine size.
func (s *ScopedSession) FindSize(ctx context.Context, id string) (cloud.Size, error) {
	return do(ctx, s.log, "find_size", func() (cloud.Size, error) {
		s.log.Info("Fetching flavor", "flavor", id)
		compute, err := s.conn.Compute()
		if err != nil {
			return cloud.Size{}, err
		}
		f, err := compute.Flavor(ctx, id)
		if err != nil {
			return cloud.Size{}, err
		}
		return toSize(f), nil
	})
}
