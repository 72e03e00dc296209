package xcache

import (
	"time"

	"github.com/eko/gocache/lib/v4/store"
)

type Option = store.Option

type InvalidateOption = store.InvalidateOption

func WithExpiration(expiration time.Duration) Option {
	return store.WithExpiration(expiration)
}

func WithTags(tags []string) Option {
	return store.WithTags(tags)
}

func WithInvalidateTags(tags []string) InvalidateOption {
	return store.WithInvalidateTags(tags)
}
