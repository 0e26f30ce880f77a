// Copyright 2024-2026 Aiku AI

package slackfmt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"golang.org/x/sync/singleflight"
)

// ErrNoPublicPermalink is returned when a file has no public permalink to
// take the public secret from.
var ErrNoPublicPermalink = errors.New("file has no public permalink")

// Image is an image file attached to a Slack message.
type Image struct {
	ID        string
	URL       string
	Permalink string
	Shared    bool
	// PublicURL is set once the image has been published.
	PublicURL string
}

// CollectImages returns the files whose mimetype has the primary type
// "image", in their original order.
func CollectImages(files []slack.File) []*Image {
	var images []*Image
	for _, f := range files {
		primary, _, _ := strings.Cut(f.Mimetype, "/")
		if primary != "image" {
			continue
		}
		images = append(images, &Image{
			ID:        f.ID,
			URL:       f.URLPrivate,
			Permalink: f.PermalinkPublic,
			Shared:    f.PublicURLShared,
		})
	}
	return images
}

// PublicURL builds the publicly resolvable form of a private file URL from
// the secret carried by the last "-" separated segment of its public
// permalink.
func PublicURL(privateURL, permalink string) (string, error) {
	if permalink == "" {
		return "", ErrNoPublicPermalink
	}
	secret := permalink[strings.LastIndexByte(permalink, '-')+1:]
	if secret == "" {
		return "", fmt.Errorf("%w: %q has no secret segment", ErrNoPublicPermalink, permalink)
	}
	return privateURL + "?pub_secret=" + secret, nil
}

// FileSharer makes a Slack file publicly accessible. Calling it for a file
// that is already public must have no further effect.
type FileSharer interface {
	EnsurePubliclyShared(ctx context.Context, fileID string) error
}

// Publisher shares images publicly. Concurrent publications of the same file
// ID are collapsed into one call.
type Publisher struct {
	sharer FileSharer
	group  singleflight.Group
}

// NewPublisher creates a Publisher backed by sharer.
func NewPublisher(sharer FileSharer) *Publisher {
	return &Publisher{sharer: sharer}
}

// Publish shares every image that is not yet shared and returns the public
// URLs in order. Images that cannot be shared are logged and left out.
func (p *Publisher) Publish(ctx context.Context, images []*Image) []string {
	log := zerolog.Ctx(ctx)
	urls := make([]string, 0, len(images))
	for _, img := range images {
		if err := p.publishOne(ctx, img); err != nil {
			log.Warn().Err(err).Str("file_id", img.ID).Msg("Dropping image that could not be published")
			continue
		}
		urls = append(urls, img.PublicURL)
	}
	return urls
}

func (p *Publisher) publishOne(ctx context.Context, img *Image) error {
	if img.PublicURL != "" {
		return nil
	}
	if !img.Shared {
		if p.sharer == nil {
			return errors.New("no file sharer configured")
		}
		_, err, _ := p.group.Do(img.ID, func() (any, error) {
			return nil, p.sharer.EnsurePubliclyShared(ctx, img.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to share file: %w", err)
		}
		img.Shared = true
	}
	public, err := PublicURL(img.URL, img.Permalink)
	if err != nil {
		return err
	}
	img.PublicURL = public
	return nil
}
