package opinion

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/sheets"
	"github.com/peacoop/campaign-site/internal/types"
)

// State is a step of the opinion form.
type State int

// Form states. Every submission ends back in Idle.
const (
	Idle State = iota
	Validating
	Invalid
	Submitting
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// FeedbackKind classifies form feedback.
type FeedbackKind string

// Feedback kinds.
const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Feedback is the inline message shown under the form.
type Feedback struct {
	Kind         FeedbackKind  `json:"kind"`
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"dismissAfter"`
	Outcome      State         `json:"-"` // Invalid, Success or Failure
}

// Messages are the user-visible form messages.
type Messages struct {
	Incomplete string
	Success    string
	Failure    string
}

var messages = map[string]Messages{
	"th": {
		Incomplete: "กรุณากรอกหัวข้อ เลือกแท็กอย่างน้อยหนึ่งแท็ก และกรอกรายละเอียด",
		Success:    "ขอบคุณสำหรับความคิดเห็นของคุณ",
		Failure:    "เกิดข้อผิดพลาดในการส่งความคิดเห็น กรุณาลองใหม่อีกครั้ง",
	},
	"en": {
		Incomplete: "Please enter a title and details and pick at least one tag.",
		Success:    "Thank you for your opinion!",
		Failure:    "Your opinion could not be sent. Please try again.",
	},
}

// MessagesFor returns the messages of locale, falling back to Thai.
func MessagesFor(locale string) Messages {
	if m, ok := messages[locale]; ok {
		return m
	}
	return messages["th"]
}

// Submitter sends an opinion to the store.
type Submitter interface {
	SubmitOpinion(ctx context.Context, sub types.OpinionSubmission, token string) (*types.SubmitResult, error)
}

// FormOptions configures a Form.
type FormOptions struct {
	Submitter        Submitter
	Aggregator       *Aggregator
	ReaggregateDelay time.Duration
	FeedbackDuration time.Duration
	Locale           string
	Now              func() time.Time
	Logger           *zap.Logger
	OnTransition     func(from, to State)
}

// Form drives a submission from input to feedback.
type Form struct {
	submitter        Submitter
	aggregator       *Aggregator
	reaggregateDelay time.Duration
	feedbackDuration time.Duration
	messages         Messages
	now              func() time.Time
	logger           *zap.Logger
	onTransition     func(from, to State)

	mu     sync.Mutex
	seq    uint64
	active map[uint64]State
}

// NewForm creates a form in the Idle state.
func NewForm(opts FormOptions) *Form {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		submitter:        opts.Submitter,
		aggregator:       opts.Aggregator,
		reaggregateDelay: opts.ReaggregateDelay,
		feedbackDuration: opts.FeedbackDuration,
		messages:         MessagesFor(opts.Locale),
		now:              now,
		logger:           logger.Named("opinion"),
		onTransition:     opts.OnTransition,
		active:           make(map[uint64]State),
	}
}

// State returns the state of the most recently started submission that is
// still in flight, or Idle when none is. Each submission moves through its
// own states; OnTransition reports them per submission.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest uint64
	state := Idle
	for id, st := range f.active {
		if id > latest {
			latest, state = id, st
		}
	}
	return state
}

// InFlight returns the number of submissions not yet back in Idle.
func (f *Form) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// begin registers a new submission in the Idle state.
func (f *Form) begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.active[f.seq] = Idle
	return f.seq
}

func (f *Form) transition(id uint64, to State) {
	f.mu.Lock()
	from := f.active[id]
	if to == Idle {
		delete(f.active, id)
	} else {
		f.active[id] = to
	}
	f.mu.Unlock()

	if f.onTransition != nil {
		f.onTransition(from, to)
	}
}

// Submit validates input and sends it. Invalid input never reaches the store.
// On success a re-aggregation of the tag cloud is scheduled after the
// configured delay, since the store may not show the new row right away.
func (f *Form) Submit(ctx context.Context, input types.OpinionForm) Feedback {
	id := f.begin()
	f.transition(id, Validating)
	if err := input.Validate(); err != nil {
		f.transition(id, Invalid)
		f.transition(id, Idle)
		return f.feedback(Invalid, FeedbackError, f.messages.Incomplete)
	}

	form := input.Trimmed()
	sub := types.OpinionSubmission{
		Timestamp: f.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Title:     form.Title,
		Tags:      strings.Join(form.Tags, ","),
		Details:   form.Details,
	}

	f.transition(id, Submitting)
	result, err := f.submitter.SubmitOpinion(ctx, sub, sheets.NewToken())
	if err == nil && (result == nil || !result.Success) {
		err = &sheets.StoreError{Table: types.TableOpinions}
	}
	if err != nil {
		f.logger.Warn("Opinion submission failed", zap.String("title", sub.Title), zap.Error(err))
		f.transition(id, Failure)
		f.transition(id, Idle)
		return f.feedback(Failure, FeedbackError, f.failureMessage(result))
	}

	f.logger.Info("Opinion submitted", zap.String("title", sub.Title), zap.String("tags", sub.Tags))
	f.transition(id, Success)
	if f.aggregator != nil {
		f.aggregator.ReloadAfter(f.reaggregateDelay)
	}
	f.transition(id, Idle)
	return f.feedback(Success, FeedbackSuccess, f.messages.Success)
}

// failureMessage surfaces the store's own text when it gave one.
func (f *Form) failureMessage(result *types.SubmitResult) string {
	if result != nil && strings.TrimSpace(result.Error) != "" {
		return result.Error
	}
	return f.messages.Failure
}

func (f *Form) feedback(outcome State, kind FeedbackKind, msg string) Feedback {
	return Feedback{Kind: kind, Message: msg, DismissAfter: f.feedbackDuration, Outcome: outcome}
}
