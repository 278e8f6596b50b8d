// Package notify decides, per accepted message, whether the recipient needs
// an out-of-band notification, and dispatches push and email independently
// of each other. A provider failure is degraded delivery, never an error
// surfaced to the message sender.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"craftlink-chat/internal/repository"
	chat_errors "craftlink-chat/pkg/errors"
)

// Reachability answers whether the recipient currently holds a live joined
// connection on the conversation. Implemented by the websocket hub.
type Reachability interface {
	IsReachable(conversationKey string, userID uuid.UUID) bool
}

// ChannelOutcome is the result of one delivery channel.
type ChannelOutcome struct {
	Attempted bool
	Err       error
}

func (o ChannelOutcome) Succeeded() bool {
	return o.Attempted && o.Err == nil
}

// Result aggregates the per-channel outcomes of one Notify call. Skipped is
// true when the recipient was reachable in real time, NoOp when neither
// channel was enabled or usable.
type Result struct {
	Skipped bool
	NoOp    bool
	Push    ChannelOutcome
	Email   ChannelOutcome
}

// Degraded reports whether at least one attempted channel failed.
func (r Result) Degraded() bool {
	return (r.Push.Attempted && r.Push.Err != nil) || (r.Email.Attempted && r.Email.Err != nil)
}

// Err folds a degraded result into the error domain for logging. Delivery
// degradation is never returned to the message sender.
func (r Result) Err() error {
	if !r.Degraded() {
		return nil
	}
	return chat_errors.ErrDeliveryDegraded
}

type Dispatcher struct {
	prefs  repository.PreferenceStore
	reach  Reachability
	push   PushProvider
	email  EmailProvider
	logger *zap.Logger
}

func NewDispatcher(prefs repository.PreferenceStore, reach Reachability, push PushProvider, email EmailProvider, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		prefs:  prefs,
		reach:  reach,
		push:   push,
		email:  email,
		logger: logger.With(zap.String("component", "notify")),
	}
}

// SetReachability binds the realtime hub after construction. The hub is
// built after the dispatcher because it also depends on the chat service.
func (d *Dispatcher) SetReachability(r Reachability) {
	d.reach = r
}

// Notify runs the per-channel decision for one message. It never returns an
// error: every failure mode is folded into the Result and logged, because
// the caller has already acknowledged the message to the sender.
func (d *Dispatcher) Notify(ctx context.Context, conversationKey string, recipientID uuid.UUID, senderName, preview string) Result {
	if d.reach != nil && d.reach.IsReachable(conversationKey, recipientID) {
		return Result{Skipped: true}
	}

	pref, err := d.prefs.GetPreference(ctx, recipientID)
	if err != nil {
		d.logger.Warn("preference lookup failed, notification dropped",
			zap.String("recipient_id", recipientID.String()),
			zap.Error(err))
		return Result{NoOp: true}
	}

	var result Result

	if pref.CanPush() && d.push != nil {
		result.Push.Attempted = true
		result.Push.Err = d.push.SendPush(ctx, pref.PushToken,
			fmt.Sprintf("New message from %s", senderName),
			preview,
			map[string]string{"conversation_key": conversationKey},
		)
		if result.Push.Err != nil {
			d.logger.Warn("push delivery degraded",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(result.Push.Err))
		}
	}

	if pref.CanEmail() && d.email != nil {
		subject := fmt.Sprintf("%s sent you a message", senderName)
		result.Email.Attempted = true
		result.Email.Err = d.email.SendEmail(ctx, pref.EmailAddress, subject,
			emailHTML(senderName, preview),
			fmt.Sprintf("%s: %s", senderName, preview),
		)
		if result.Email.Err != nil {
			d.logger.Warn("email delivery degraded",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(result.Email.Err))
		}
	}

	if !result.Push.Attempted && !result.Email.Attempted {
		result.NoOp = true
	}
	return result
}

func emailHTML(senderName, preview string) string {
	return fmt.Sprintf(
		"<p><strong>%s</strong> sent you a message:</p><blockquote>%s</blockquote>",
		senderName, preview)
}
