package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"luca-backend/internal/gateway"
	"luca-backend/internal/i18n"
	"luca-backend/internal/imaging"
	"luca-backend/internal/model"
	"luca-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyTurn       = errors.New("turn has neither text nor image")
	ErrBusy            = errors.New("a turn is already in progress")
	ErrNotReady        = errors.New("chat session is not initialized")
	ErrTurnSuperseded  = errors.New("turn was discarded by a conversation reset")
	ErrUnknownReaction = errors.New("unknown reaction type")
)

// GreetingID identifies the greeting message; Clear keeps it.
const GreetingID = "greeting"

const (
	configErrorID = "init-error"
	initFailedID  = "init-fail"

	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ImageEncoder converts an uploaded file into transport and display encodings.
type ImageEncoder interface {
	Encode(f imaging.File) (*imaging.Encoded, error)
}

type UpdateKind string

const (
	UpdateAppend UpdateKind = "append"
	UpdateChange UpdateKind = "change"
	UpdateReset  UpdateKind = "reset"
	UpdateNotice UpdateKind = "notice"
)

// Update is published after every log mutation. Append and Change carry the
// full current state of one message, so a subscriber that misses intermediate
// updates still converges on the final text.
type Update struct {
	Kind    UpdateKind
	Message model.Message
}

type ReactionRecord struct {
	MessageID string
	Reaction  model.Reaction
	At        time.Time
}

type ControllerOptions struct {
	ID          string
	Credential  string
	Language    i18n.Language
	Encoder     ImageEncoder
	TurnTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// Controller owns one conversation: the message log, the provider session and
// the busy gate that serializes turns. All methods are safe for concurrent use;
// provider calls are made without holding the lock.
type Controller struct {
	id          string
	gateway     gateway.Gateway
	encoder     ImageEncoder
	credential  string
	turnTimeout time.Duration
	now         func() time.Time
	newID       func() string
	log         *logrus.Entry

	mu         sync.Mutex
	lang       i18n.Language
	messages   []model.Message
	session    gateway.Session
	current    *Turn
	epoch      uint64
	notice     string
	reactions  []ReactionRecord
	subs       map[int]chan Update
	nextSub    int
	lastActive time.Time
	closed     bool
}

func NewController(gw gateway.Gateway, opts ControllerOptions) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ID == "" {
		opts.ID = opts.NewID()
	}
	if opts.Encoder == nil {
		opts.Encoder = imaging.NewEncoder(imaging.DefaultMaxBytes)
	}
	if !opts.Language.Valid() {
		opts.Language = i18n.EN
	}

	return &Controller{
		id:          opts.ID,
		gateway:     gw,
		encoder:     opts.Encoder,
		credential:  strings.TrimSpace(opts.Credential),
		turnTimeout: opts.TurnTimeout,
		now:         opts.Now,
		newID:       opts.NewID,
		log:         logger.WithFields(logrus.Fields{"conversation_id": opts.ID}),
		lang:        opts.Language,
		subs:        make(map[int]chan Update),
		lastActive:  opts.Now(),
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Language() i18n.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Initialize (re)creates the provider session for the current language. Any
// in-flight turn is cancelled and its results discarded. Failures are recorded
// as a single system error message; the controller stays not-ready.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	c.resetLocked()
	epoch := c.epoch
	tr := i18n.Bundle(c.lang)

	if c.credential == "" {
		c.messages = []model.Message{c.systemErrorLocked(configErrorID, tr.APIKeyError)}
		c.notice = tr.APIKeyError
		c.publishLocked(Update{Kind: UpdateReset})
		c.mu.Unlock()
		c.log.Error("no API credential configured; conversation disabled")
		return
	}
	c.notice = ""
	c.mu.Unlock()

	session, err := c.gateway.CreateSession(ctx, c.credential, tr.SystemInstruction)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.closed {
		// a later reset owns the log now
		return
	}
	if err != nil {
		text := tr.InitializationFailed + err.Error()
		c.messages = []model.Message{c.systemErrorLocked(initFailedID, text)}
		c.notice = text
		c.publishLocked(Update{Kind: UpdateReset})
		c.log.Errorf("failed to initialize chat session: %v", err)
		return
	}

	c.session = session
	c.notice = ""
	c.messages = []model.Message{{
		ID:        GreetingID,
		Text:      tr.Greeting,
		Sender:    model.SenderAI,
		Timestamp: c.now(),
	}}
	c.publishLocked(Update{Kind: UpdateReset})
	c.log.WithField("language", c.lang).Info("chat session initialized")
}

// SetLanguage switches the UI language and re-initializes the session with the
// new system instruction. Selecting the active language is a no-op.
func (c *Controller) SetLanguage(ctx context.Context, lang i18n.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	c.mu.Lock()
	if c.lang == lang {
		c.mu.Unlock()
		return nil
	}
	c.lang = lang
	c.mu.Unlock()

	c.Initialize(ctx)
	return nil
}

// Clear truncates the log to the greeting (when present) and re-initializes
// the session.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	c.resetLocked()
	var kept []model.Message
	for _, m := range c.messages {
		if m.ID == GreetingID {
			kept = append(kept, m)
			break
		}
	}
	c.messages = kept
	c.publishLocked(Update{Kind: UpdateReset})
	c.mu.Unlock()

	c.Initialize(ctx)
}

// resetLocked cancels the in-flight turn and drops the session. The turn's
// later fragments see a different current turn and are discarded.
func (c *Controller) resetLocked() {
	c.epoch++
	if c.current != nil {
		c.current.cancel()
		c.log.WithField("message_id", c.current.aiID).Info("in-flight turn cancelled by reset")
		c.current = nil
	}
	c.session = nil
	c.lastActive = c.now()
}

// SendTurn submits one user turn and blocks until it resolves. Rejected turns
// (empty, busy, not ready) return an error and leave the log untouched.
// Ingestion and provider failures are recorded in the log and return nil.
func (c *Controller) SendTurn(ctx context.Context, text string, image *imaging.File) error {
	t, err := c.BeginTurn(ctx, text, image)
	if err != nil {
		return err
	}
	return t.Run()
}

// Turn is an accepted turn holding the busy gate until Run returns.
type Turn struct {
	c       *Controller
	ctx     context.Context
	cancel  context.CancelFunc
	text    string
	image   *imaging.File
	session gateway.Session
	tr      i18n.Translations
	aiID    string
	log     *logrus.Entry
}

// BeginTurn checks the preconditions and acquires the busy gate. The caller
// must call Run on the returned turn.
func (c *Controller) BeginTurn(ctx context.Context, text string, image *imaging.File) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A missing session is reported even for an empty or overlapping send.
	if c.session == nil {
		if c.credential != "" {
			c.notice = i18n.Bundle(c.lang).ChatInitializationError
			c.publishLocked(Update{Kind: UpdateNotice})
		}
		return nil, ErrNotReady
	}
	if strings.TrimSpace(text) == "" && image == nil {
		return nil, ErrEmptyTurn
	}
	if c.current != nil {
		return nil, ErrBusy
	}

	// The turn outlives the request that started it; only a reset or the
	// turn timeout stops it.
	base := context.WithoutCancel(ctx)
	var (
		turnCtx context.Context
		cancel  context.CancelFunc
	)
	if c.turnTimeout > 0 {
		turnCtx, cancel = context.WithTimeout(base, c.turnTimeout)
	} else {
		turnCtx, cancel = context.WithCancel(base)
	}

	t := &Turn{
		c:       c,
		ctx:     turnCtx,
		cancel:  cancel,
		text:    text,
		image:   image,
		session: c.session,
		tr:      i18n.Bundle(c.lang),
		log:     c.log,
	}
	c.current = t
	c.notice = ""
	c.lastActive = c.now()
	return t, nil
}

// Run executes the turn: ingest the image, append the user message and the
// streaming placeholder, then merge provider fragments in arrival order.
func (t *Turn) Run() error {
	c := t.c
	defer t.release()

	var (
		part    *imaging.Part
		display *model.Image
	)
	if t.image != nil {
		enc, err := c.encoder.Encode(*t.image)
		if err != nil {
			t.log.Warnf("image ingestion failed: %v", err)
			return t.recordIngestionFailure(err)
		}
		part = &enc.Part
		display = &model.Image{DataURL: enc.DataURL, Name: enc.Name}
	}

	if !t.start(display) {
		return ErrTurnSuperseded
	}

	submitText := t.text
	if strings.TrimSpace(submitText) == "" {
		submitText = ""
	}

	stream, err := t.session.Submit(t.ctx, submitText, part)
	if err != nil {
		return t.fail(err)
	}
	defer stream.Close()

	var acc strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t.fail(err)
		}
		acc.WriteString(chunk)
		if !t.merge(acc.String()) {
			return ErrTurnSuperseded
		}
	}

	return t.complete()
}

func (t *Turn) release() {
	t.cancel()
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == t {
		c.current = nil
	}
	c.lastActive = c.now()
}

func (t *Turn) recordIngestionFailure(err error) error {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != t {
		return ErrTurnSuperseded
	}
	text := t.tr.ImageUploadError + " " + err.Error()
	msg := c.systemErrorLocked("img-err-"+c.newID(), text)
	c.messages = append(c.messages, msg)
	c.notice = t.tr.ImageUploadError
	c.publishLocked(Update{Kind: UpdateAppend, Message: msg})
	return nil
}

// start appends the user message and the empty streaming placeholder.
func (t *Turn) start(display *model.Image) bool {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != t {
		return false
	}

	now := c.now()
	user := model.Message{
		ID:        "user-" + c.newID(),
		Text:      t.text,
		Sender:    model.SenderUser,
		Timestamp: now,
		Image:     display,
	}
	t.aiID = "ai-" + c.newID()
	placeholder := model.Message{
		ID:        t.aiID,
		Sender:    model.SenderAI,
		Timestamp: now,
		Streaming: true,
	}
	c.messages = append(c.messages, user, placeholder)
	c.publishLocked(Update{Kind: UpdateAppend, Message: user.Clone()})
	c.publishLocked(Update{Kind: UpdateAppend, Message: placeholder})

	t.log = t.log.WithField("message_id", t.aiID)
	t.log.Debug("turn started")
	return true
}

// merge replaces the placeholder text with the accumulated reply.
func (t *Turn) merge(text string) bool {
	return t.update(func(m *model.Message) {
		m.Text = text
		m.Streaming = true
	})
}

func (t *Turn) complete() error {
	if !t.update(func(m *model.Message) { m.Streaming = false }) {
		return ErrTurnSuperseded
	}
	t.log.Debug("turn completed")
	return nil
}

// fail overwrites any partial reply with the error notice.
func (t *Turn) fail(err error) error {
	text := t.tr.AIResponseError + err.Error()
	if !t.update(func(m *model.Message) {
		m.Text = text
		m.Streaming = false
		m.Error = true
	}) {
		t.log.Debugf("discarding failure of superseded turn: %v", err)
		return ErrTurnSuperseded
	}

	c := t.c
	c.mu.Lock()
	c.notice = text
	c.mu.Unlock()

	t.log.Errorf("error sending message to AI: %v", err)
	return nil
}

func (t *Turn) update(fn func(m *model.Message)) bool {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != t {
		return false
	}
	i := c.indexLocked(t.aiID)
	if i < 0 {
		return false
	}
	fn(&c.messages[i])
	c.publishLocked(Update{Kind: UpdateChange, Message: c.messages[i]})
	return true
}

// React applies a reaction to a message. Only retry changes the conversation:
// it resends the nearest preceding user message and blocks like SendTurn.
// Unknown ids and a missing preceding user message are no-ops.
func (c *Controller) React(ctx context.Context, messageID string, reaction model.Reaction) error {
	t, err := c.BeginRetry(ctx, messageID, reaction)
	if err != nil || t == nil {
		return err
	}
	return t.Run()
}

// BeginRetry records the reaction and, for retry, begins the regenerated turn.
// A nil turn with a nil error means there is nothing to run.
func (c *Controller) BeginRetry(ctx context.Context, messageID string, reaction model.Reaction) (*Turn, error) {
	if !reaction.Valid() {
		return nil, ErrUnknownReaction
	}

	c.mu.Lock()
	idx := c.indexLocked(messageID)
	if idx < 0 {
		c.mu.Unlock()
		return nil, nil
	}
	c.reactions = append(c.reactions, ReactionRecord{MessageID: messageID, Reaction: reaction, At: c.now()})
	if reaction != model.ReactionRetry {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"message_id": messageID, "reaction": reaction}).Info("reaction recorded")
		return nil, nil
	}

	var source *model.Message
	for i := idx - 1; i >= 0; i-- {
		if c.messages[i].Sender == model.SenderUser {
			m := c.messages[i].Clone()
			source = &m
			break
		}
	}
	c.mu.Unlock()

	if source == nil {
		return nil, nil
	}

	var file *imaging.File
	if source.Image != nil {
		f, err := imaging.DecodeDataURL(source.Image.DataURL, source.Image.Name)
		if err != nil {
			c.log.Warnf("cannot rebuild image of %s for retry: %v", source.ID, err)
		} else {
			file = &f
		}
	}

	return c.BeginTurn(ctx, source.Text, file)
}

func (c *Controller) Reactions() []ReactionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReactionRecord, len(c.reactions))
	copy(out, c.reactions)
	return out
}

// Export snapshots the log without image data.
func (c *Controller) Export() model.Export {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := model.Export{
		ExportedAt: c.now().UTC().Format(isoLayout),
		Messages:   make([]model.ExportedMessage, 0, len(c.messages)),
	}
	for _, m := range c.messages {
		doc.Messages = append(doc.Messages, model.ExportedMessage{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			Timestamp: m.Timestamp.UTC().Format(isoLayout),
			Error:     m.Error,
			HadImage:  m.Image != nil,
		})
	}
	return doc
}

func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]model.Message, len(c.messages))
	for i, m := range c.messages {
		msgs[i] = m.Clone()
	}
	return model.Snapshot{
		ConversationID: c.id,
		Language:       string(c.lang),
		Ready:          c.session != nil,
		Busy:           c.current != nil,
		Notice:         c.notice,
		Messages:       msgs,
	}
}

// Subscribe returns a channel of log updates and a function that ends the
// subscription. Updates are dropped for a subscriber whose buffer is full.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Update, 128)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels any in-flight turn and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) publishLocked(u Update) {
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
			c.log.Debug("subscriber buffer full, dropping update")
		}
	}
}

func (c *Controller) indexLocked(id string) int {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) systemErrorLocked(id, text string) model.Message {
	return model.Message{
		ID:        id,
		Text:      text,
		Sender:    model.SenderSystem,
		Timestamp: c.now(),
		Error:     true,
	}
}
