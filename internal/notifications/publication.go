package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"bloh/internal/featureflags"
	"bloh/internal/mailer"
	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/observability"
)

const (
	excerptLimit    = 200
	dispatchTimeout = 2 * time.Minute
)

// SubscriberLister returns the users subscribed to an author.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context, authorID uint) ([]models.User, error)
}

// PublicationEvent is the Redis payload pushed to each subscriber.
type PublicationEvent struct {
	Type     string `json:"type"`
	PostID   uint   `json:"post_id"`
	PostType string `json:"post_type"`
	Title    string `json:"title"`
	AuthorID uint   `json:"author_id"`
	Author   string `json:"author"`
	Link     string `json:"link"`
}

// PublicationNotifier tells an author's subscribers that a post went live.
// Delivery runs in the background under its own deadline. Every failure is
// logged and swallowed; publishing never fails because of it.
type PublicationNotifier struct {
	subscribers  SubscriberLister
	mail         mailer.Mailer
	notifier     *Notifier
	flags        *featureflags.Manager
	frontendBase string
	timeout      time.Duration
	inflight     sync.WaitGroup
}

func NewPublicationNotifier(
	subscribers SubscriberLister,
	mail mailer.Mailer,
	notifier *Notifier,
	flags *featureflags.Manager,
	frontendBase string,
) *PublicationNotifier {
	return &PublicationNotifier{
		subscribers:  subscribers,
		mail:         mail,
		notifier:     notifier,
		flags:        flags,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		timeout:      dispatchTimeout,
	}
}

type notice struct {
	postID   uint
	authorID uint
	subject  string
	body     string
	event    []byte
}

// PostPublished schedules notices for the subscribers of post's author and
// returns immediately. post.Author must be loaded.
func (p *PublicationNotifier) PostPublished(ctx context.Context, post *models.Post) {
	if p == nil || post == nil {
		return
	}
	if p.flags != nil && !p.flags.Enabled(featureflags.PublishNotifications, post.AuthorID) {
		return
	}

	n := p.compose(ctx, post)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		p.deliver(ctx, n)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (p *PublicationNotifier) Wait() {
	if p != nil {
		p.inflight.Wait()
	}
}

func (p *PublicationNotifier) compose(ctx context.Context, post *models.Post) notice {
	author := AuthorName(&post.Author)
	link := PostLink(p.frontendBase, post.ID)
	subject, body := ComposeNotice(post, author, link)

	event, err := json.Marshal(PublicationEvent{
		Type:     "post_published",
		PostID:   post.ID,
		PostType: string(post.PostType),
		Title:    post.Title,
		AuthorID: post.AuthorID,
		Author:   author,
		Link:     link,
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "marshal publication event", slog.String("error", err.Error()))
	}
	return notice{postID: post.ID, authorID: post.AuthorID, subject: subject, body: body, event: event}
}

func (p *PublicationNotifier) deliver(ctx context.Context, n notice) {
	subs, err := p.subscribers.ListSubscribers(ctx, n.authorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "list subscribers for publication notice failed",
			slog.Uint64("post_id", uint64(n.postID)), slog.String("error", err.Error()))
		return
	}

	msgs := make([]mailer.Message, 0, len(subs))
	for _, sub := range subs {
		if n.event != nil {
			if err := p.notifier.PublishUser(ctx, sub.ID, string(n.event)); err != nil {
				middleware.Logger.WarnContext(ctx, "publish publication event failed",
					slog.Uint64("subscriber_id", uint64(sub.ID)), slog.String("error", err.Error()))
			}
		}
		if sub.Email != "" {
			msgs = append(msgs, mailer.Message{To: sub.Email, Subject: n.subject, Body: n.body})
		}
	}
	if len(msgs) == 0 || p.mail == nil {
		return
	}

	sent, err := p.mail.Send(ctx, msgs)
	observability.SubscriberMails.WithLabelValues("sent").Add(float64(sent))
	if failed := len(msgs) - sent; failed > 0 {
		observability.SubscriberMails.WithLabelValues("failed").Add(float64(failed))
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "publication mail failed",
			slog.Uint64("post_id", uint64(n.postID)),
			slog.Int("sent", sent),
			slog.Int("total", len(msgs)),
			slog.String("error", err.Error()))
	}
}

// AuthorName prefers the display name over the username.
func AuthorName(u *models.User) string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return u.Username
}

// PostLink is the frontend URL of a post.
func PostLink(base string, postID uint) string {
	return fmt.Sprintf("%s/posts/%d", strings.TrimRight(base, "/"), postID)
}

// ComposeNotice builds the plain-text subject and body of a publication mail.
func ComposeNotice(post *models.Post, author, link string) (string, string) {
	kind := "article"
	if post.PostType == models.PostTypeRecipe {
		kind = "recipe"
	}

	subject := fmt.Sprintf("New post: %s — %s", post.Title, author)

	var b strings.Builder
	b.WriteString("Hello!\n\n")
	fmt.Fprintf(&b, "%s has published a new %s.\n\n", author, kind)
	b.WriteString(post.Title)
	b.WriteString("\n")
	b.WriteString(truncateRunes(post.Excerpt, excerptLimit))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Read it here: %s\n\n", link)
	b.WriteString("You receive this mail because you subscribed to this author. Unsubscribe on their profile page to stop.\n")
	return subject, b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
