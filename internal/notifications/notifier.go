package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
)

const previewLength = 50

// Notifier turns domain events into notification events. Every method is
// best-effort: lookup failures are logged and the event is skipped.
type Notifier struct {
	dispatcher Dispatcher
	users      repository.UserRepository
	posts      repository.PostRepository
}

func NewNotifier(d Dispatcher, users repository.UserRepository, posts repository.PostRepository) *Notifier {
	return &Notifier{dispatcher: d, users: users, posts: posts}
}

// postEvent addresses ev to the owner of postID. Owners are notified about
// their own actions too.
func (n *Notifier) postEvent(ctx context.Context, postID string, actor *models.User, ev Event) {
	owner, err := n.posts.GetPostOwner(ctx, postID)
	if err != nil {
		logger.Log.Debug("Skipping notification, post owner unresolved",
			zap.String("post_id", postID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
		return
	}

	ev.RecipientUsername = &owner.Username
	ev.ActorID = actor.ID
	ev.ActorUsername = actor.Username
	ev.Avatar = actor.ProfileImage
	ev.PostID = postID
	n.dispatcher.Dispatch(ctx, ev)
}

func (n *Notifier) PostLiked(ctx context.Context, postID string, actor *models.User) {
	n.postEvent(ctx, postID, actor, Event{
		Type:      models.NotificationLike,
		Message:   "liked your post",
		HasAction: true,
	})
}

func (n *Notifier) PostRated(ctx context.Context, postID string, actor *models.User, rating float64) {
	n.postEvent(ctx, postID, actor, Event{
		Type:      models.NotificationReview,
		Message:   RatingMessage(rating),
		HasAction: true,
		RelatedID: formatRating(rating),
	})
}

func (n *Notifier) PostCommented(ctx context.Context, postID string, actor *models.User, text string) {
	n.postEvent(ctx, postID, actor, Event{
		Type:      models.NotificationComment,
		Message:   fmt.Sprintf("commented: \"%s\"", util.Preview(text, previewLength)),
		HasAction: true,
	})
}

// Mentioned notifies each @username in a comment, skipping the author and
// names that match no user.
func (n *Notifier) Mentioned(ctx context.Context, postID string, actor *models.User, usernames []string) {
	for _, name := range usernames {
		if strings.EqualFold(name, actor.Username) {
			continue
		}
		user, err := n.users.GetUserByUsername(ctx, name)
		if err != nil {
			continue
		}
		recipient := user.Username
		n.dispatcher.Dispatch(ctx, Event{
			RecipientUsername: &recipient,
			ActorID:           actor.ID,
			ActorUsername:     actor.Username,
			Avatar:            actor.ProfileImage,
			Type:              models.NotificationMention,
			Message:           "mentioned you in a comment",
			HasAction:         true,
			PostID:            postID,
		})
	}
}

func (n *Notifier) MessageSent(ctx context.Context, sender, recipient *models.User, text, postID string) {
	to := recipient.Username
	n.dispatcher.Dispatch(ctx, Event{
		RecipientUsername: &to,
		ActorID:           sender.ID,
		ActorUsername:     sender.Username,
		Avatar:            sender.ProfileImage,
		Type:              TypeMessage,
		Message:           fmt.Sprintf("sent you a message: \"%s\"", util.Preview(text, previewLength)),
		HasAction:         true,
		PostID:            postID,
	})
}

// Followed never notifies a user about themselves
func (n *Notifier) Followed(ctx context.Context, follower, followee *models.User) {
	if follower.ID == followee.ID {
		return
	}
	to := followee.Username
	n.dispatcher.Dispatch(ctx, Event{
		RecipientUsername: &to,
		ActorID:           follower.ID,
		ActorUsername:     follower.Username,
		Avatar:            follower.ProfileImage,
		Type:              models.NotificationFollow,
		Message:           "started following you",
	})
}

// Broadcast sends a system notification to every user
func (n *Notifier) Broadcast(ctx context.Context, actor, message string) {
	n.dispatcher.Dispatch(ctx, Event{
		ActorUsername: actor,
		Type:          models.NotificationSystem,
		Message:       message,
	})
}

// RatingMessage renders "rated your post N star(s)"
func RatingMessage(rating float64) string {
	suffix := ""
	if rating > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("rated your post %s star%s", formatRating(rating), suffix)
}

func formatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64)
}
