// Package mail implements the inter-agent messaging fabric: direct
// messages, rig-wide broadcasts, and the escalation/notification channel
// gates wait on. Messages persist as one JSON file per recipient mailbox
// under the town root; there is no external issue tracker underneath —
// delivery state (pending/acked) is tracked entirely in that file.
package mail

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/gtid"
	"github.com/gastown/gtr/internal/lock"
	"github.com/gastown/gtr/internal/tmux"
	"github.com/gastown/gtr/internal/util"
)

// Priority levels for a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel distinguishes a message queued for later reading from one
// meant to interrupt the recipient's session immediately, such as an
// escalation.
type Channel string

const (
	ChannelQueue  Channel = "queue"
	ChannelSignal Channel = "signal"
)

// DeliveryState tracks whether a message has been acknowledged.
type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliveryAcked   DeliveryState = "acked"
)

// Message is one piece of mail.
type Message struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Subject   string        `json:"subject"`
	Body      string        `json:"body,omitempty"`
	Priority  Priority      `json:"priority"`
	Channel   Channel       `json:"channel"`
	ThreadID  string        `json:"thread_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	State     DeliveryState `json:"state"`
	AckedBy   string        `json:"acked_by,omitempty"`
	AckedAt   *time.Time    `json:"acked_at,omitempty"`
}

func newMessage(from, to, subject, body string) *Message {
	return &Message{
		ID:        "msg-" + generateID(),
		From:      from,
		To:        to,
		Subject:   subject,
		Body:      body,
		Priority:  PriorityNormal,
		Channel:   ChannelQueue,
		Timestamp: time.Now(),
		State:     DeliveryPending,
	}
}

func generateID() string {
	return strings.TrimPrefix(gtid.WorkItemID(), "wi-")
}

// mailbox is the on-disk shape of one address's message store.
type mailbox struct {
	Messages []*Message `json:"messages"`
}

func mailboxPath(address string) string {
	safe := strings.ReplaceAll(address, "/", "_")
	return filepath.Join(gtdirs.ConfigDir(), "mail", safe+".json")
}

func loadMailbox(address string) (*mailbox, error) {
	mb := &mailbox{}
	path := mailboxPath(address)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return mb, nil
	}
	if err := util.ReadJSON(path, mb); err != nil {
		return nil, fmt.Errorf("reading mailbox %s: %w", address, err)
	}
	return mb, nil
}

func saveMailbox(address string, mb *mailbox) error {
	if err := os.MkdirAll(filepath.Dir(mailboxPath(address)), 0755); err != nil {
		return err
	}
	return util.AtomicWriteJSON(mailboxPath(address), mb)
}

// Router sends and delivers mail, notifying recipients' live tmux
// sessions on a best-effort basis.
type Router struct {
	tm *tmux.Tmux
}

// NewRouter creates a Router backed by the shared tmux server.
func NewRouter() *Router { return &Router{tm: tmux.NewTmux()} }

// Send delivers a message to a single recipient address, appending it to
// that recipient's mailbox under an exclusive lock so concurrent senders
// never interleave a partial write.
func (r *Router) Send(from, to, subject, body string, priority Priority, channel Channel) (*Message, error) {
	msg := newMessage(from, to, subject, body)
	msg.Priority = priority
	msg.Channel = channel

	release, err := lock.Acquire(mailboxPath(to))
	if err != nil {
		return nil, fmt.Errorf("locking mailbox %s: %w", to, err)
	}
	defer release()

	mb, err := loadMailbox(to)
	if err != nil {
		return nil, err
	}
	mb.Messages = append(mb.Messages, msg)
	if err := saveMailbox(to, mb); err != nil {
		return nil, err
	}

	if !isSelf(from, to) {
		r.notify(msg)
	}
	return msg, nil
}

// Nudge is Send with ChannelSignal and PriorityHigh: the common case of
// interrupting an agent rather than waiting for it to poll its inbox.
func (r *Router) Nudge(from, to, subject, body string) (*Message, error) {
	return r.Send(from, to, subject, body, PriorityHigh, ChannelSignal)
}

// Broadcast delivers the same message to every address in recipients.
func (r *Router) Broadcast(from string, recipients []string, subject, body string, priority Priority) ([]*Message, error) {
	var sent []*Message
	for _, to := range recipients {
		msg, err := r.Send(from, to, subject, body, priority, ChannelQueue)
		if err != nil {
			return sent, fmt.Errorf("broadcasting to %s: %w", to, err)
		}
		sent = append(sent, msg)
	}
	return sent, nil
}

// Escalate delivers a signal-channel notification, the form gates and
// the staleness watchdog use: always urgent, always interrupting.
func (r *Router) Escalate(from, to, subject, body string) (*Message, error) {
	return r.Send(from, to, subject, body, PriorityUrgent, ChannelSignal)
}

func isSelf(from, to string) bool {
	return strings.TrimSuffix(from, "/") == strings.TrimSuffix(to, "/")
}

func (r *Router) notify(msg *Message) {
	session := tmux.SessionNameForAgent(addressToAgentID(msg.To))
	has, err := r.tm.HasSession(session)
	if err != nil || !has {
		return
	}
	_ = r.tm.SendNotificationBanner(session, msg.From, msg.Subject)
}

// addressToAgentID maps a mail address to the agent id its tmux session
// is keyed on. Addresses already are agent ids in this implementation
// (there is no separate identity-translation layer), so this exists
// solely to keep the mapping named and in one place.
func addressToAgentID(address string) string { return strings.TrimSuffix(address, "/") }

// Inbox lists messages in address's mailbox, newest first.
func Inbox(address string) ([]*Message, error) {
	mb, err := loadMailbox(address)
	if err != nil {
		return nil, err
	}
	out := make([]*Message, len(mb.Messages))
	copy(out, mb.Messages)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Pending lists only address's unacknowledged messages.
func Pending(address string) ([]*Message, error) {
	all, err := Inbox(address)
	if err != nil {
		return nil, err
	}
	var pending []*Message
	for _, m := range all {
		if m.State == DeliveryPending {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Addresses lists every address with a mailbox on disk, derived from the
// mail directory's filenames rather than any registry, since an address
// only starts existing the moment something is sent to it.
func Addresses() ([]string, error) {
	dir := filepath.Join(gtdirs.ConfigDir(), "mail")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mail directory: %w", err)
	}
	var addresses []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		addresses = append(addresses, strings.TrimSuffix(e.Name(), ".json"))
	}
	return addresses, nil
}

// Recent returns the n most recent messages across every mailbox in the
// town, newest first. There is no town-wide log to read from directly,
// so this merges each address's own mailbox and re-sorts; fine at the
// message volumes this exercise's mail fabric ever reaches.
func Recent(n int) ([]*Message, error) {
	addresses, err := Addresses()
	if err != nil {
		return nil, err
	}
	var all []*Message
	for _, addr := range addresses {
		msgs, err := Inbox(addr)
		if err != nil {
			return nil, fmt.Errorf("reading mailbox %s: %w", addr, err)
		}
		all = append(all, msgs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Ack marks a message as acknowledged by recipientIdentity. Idempotent:
// acking an already-acked message is a no-op that preserves the original
// acker and timestamp.
func Ack(address, messageID, recipientIdentity string) error {
	release, err := lock.Acquire(mailboxPath(address))
	if err != nil {
		return fmt.Errorf("locking mailbox %s: %w", address, err)
	}
	defer release()

	mb, err := loadMailbox(address)
	if err != nil {
		return err
	}
	for _, m := range mb.Messages {
		if m.ID != messageID {
			continue
		}
		if m.State == DeliveryAcked {
			return nil
		}
		now := time.Now()
		m.State = DeliveryAcked
		m.AckedBy = recipientIdentity
		m.AckedAt = &now
		return saveMailbox(address, mb)
	}
	return fmt.Errorf("message %s not found in mailbox %s", messageID, address)
}
