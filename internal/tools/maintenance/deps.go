package maintenance

import (
	"github.com/louisbranch/indogram/internal/services/social/storage"
)

// closableStore is every social collection behind one handle that the
// command closes when it is done.
type closableStore interface {
	storage.UserStore
	storage.FollowerStore
	storage.PostStore
	storage.GroupStore
	storage.NotificationStore
	Close() error
}
