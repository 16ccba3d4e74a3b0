package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/zoofam/mchili/internal/history"
	"github.com/zoofam/mchili/internal/llm"
	"github.com/zoofam/mchili/internal/logger"
	"github.com/zoofam/mchili/internal/sms"
)

// FSM states, one per pipeline step.
type FSMState stateless.State

var (
	StatePersistHuman FSMState = "PersistHuman"
	StateLoadHistory  FSMState = "LoadHistory"
	StateComplete     FSMState = "Complete"
	StatePersistReply FSMState = "PersistReply"
	StateRelay        FSMState = "Relay"
	StateDone         FSMState = "Done"  // Terminal: full pipeline ran, relay outcome captured
	StateError        FSMState = "Error" // Terminal: early termination with a PipelineError
)

// FSM triggers.
type FSMTrigger stateless.Trigger

var (
	TriggerStart          FSMTrigger = "Start"
	TriggerHumanPersisted FSMTrigger = "HumanPersisted"
	TriggerHistoryLoaded  FSMTrigger = "HistoryLoaded"
	TriggerReplyReceived  FSMTrigger = "ReplyReceived"
	TriggerReplyPersisted FSMTrigger = "ReplyPersisted"
	TriggerRelayAttempted FSMTrigger = "RelayAttempted"
	TriggerErrorOccurred  FSMTrigger = "ErrorOccurred"
)

// Result is the combined outcome of one fully processed inbound event.
// SMSStatus and SMSResponse report the relay outcome, which may itself
// describe a downstream problem without affecting the outer success.
type Result struct {
	To          string `json:"to"`
	Human       string `json:"human"`
	AI          string `json:"ai"`
	SMSStatus   int    `json:"smsStatus"`
	SMSResponse string `json:"smsResponse"`
}

// PipelineError is an early termination of the pipeline. Status is the
// HTTP status the webhook must answer with: 500 for persistence
// failures, 502 for upstream completion failures.
type PipelineError struct {
	Status int
	Err    error
}

func (e *PipelineError) Error() string {
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Agent sequences one inbound SMS event through the pipeline:
// persist human turn, load history, complete, persist assistant turn,
// relay. Steps are strictly sequential; each depends on the committed
// effect of the previous one.
type Agent struct {
	store history.Store
	llm   llm.Client
	sms   sms.Sender
}

// New creates the orchestrator over its three collaborators.
func New(store history.Store, llmClient llm.Client, smsClient sms.Sender) *Agent {
	return &Agent{
		store: store,
		llm:   llmClient,
		sms:   smsClient,
	}
}

// Process runs the pipeline for one inbound event. On success the
// returned Result always carries a relay status, even when the relay
// itself failed (transport failure becomes a synthetic 502 pair).
func (a *Agent) Process(ctx context.Context, phone, message string) (Result, error) {
	phone = strings.TrimSpace(phone)
	message = strings.TrimSpace(message)

	type fsmContext struct {
		turns       []history.Turn
		reply       string
		smsStatus   int
		smsResponse string
		lastError   *PipelineError
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StatePersistHuman)

	fail := func(ctx context.Context, status int, err error) error {
		fsmCtx.lastError = &PipelineError{Status: status, Err: err}
		return fsm.FireCtx(ctx, TriggerErrorOccurred)
	}

	fsm.Configure(StatePersistHuman).
		PermitReentry(TriggerStart).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if err := a.store.Append(ctx, phone, history.RoleHuman, message); err != nil {
				return fail(ctx, http.StatusInternalServerError, fmt.Errorf("persist human turn: %w", err))
			}
			return fsm.FireCtx(ctx, TriggerHumanPersisted)
		}).
		Permit(TriggerHumanPersisted, StateLoadHistory).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateLoadHistory).
		OnEntry(func(ctx context.Context, _ ...any) error {
			// Loaded after the append above, so the history already
			// contains the just-persisted human turn.
			turns, err := a.store.Load(ctx, phone)
			if err != nil {
				return fail(ctx, http.StatusInternalServerError, fmt.Errorf("load history: %w", err))
			}
			fsmCtx.turns = turns
			return fsm.FireCtx(ctx, TriggerHistoryLoaded)
		}).
		Permit(TriggerHistoryLoaded, StateComplete).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateComplete).
		OnEntry(func(ctx context.Context, _ ...any) error {
			reply, err := a.llm.Complete(ctx, message, fsmCtx.turns)
			if err != nil {
				return fail(ctx, http.StatusBadGateway, fmt.Errorf("completion: %w", err))
			}
			fsmCtx.reply = reply
			return fsm.FireCtx(ctx, TriggerReplyReceived)
		}).
		Permit(TriggerReplyReceived, StatePersistReply).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StatePersistReply).
		OnEntry(func(ctx context.Context, _ ...any) error {
			// The reply is stored verbatim; formatting happens only at
			// the relay boundary.
			if err := a.store.Append(ctx, phone, history.RoleAssistant, fsmCtx.reply); err != nil {
				return fail(ctx, http.StatusInternalServerError, fmt.Errorf("persist assistant turn: %w", err))
			}
			return fsm.FireCtx(ctx, TriggerReplyPersisted)
		}).
		Permit(TriggerReplyPersisted, StateRelay).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateRelay).
		OnEntry(func(ctx context.Context, _ ...any) error {
			status, body, err := a.sms.Send(ctx, fsmCtx.reply, phone)
			if err != nil {
				// Relay failure is never fatal to the request.
				logger.L.Warn("sms relay transport failure", "error", err)
				status, body = http.StatusBadGateway, err.Error()
			}
			fsmCtx.smsStatus = status
			fsmCtx.smsResponse = body
			return fsm.FireCtx(ctx, TriggerRelayAttempted)
		}).
		Permit(TriggerRelayAttempted, StateDone)

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerStart); err != nil {
		if fsmCtx.lastError != nil {
			return Result{}, fsmCtx.lastError
		}
		return Result{}, fmt.Errorf("pipeline fire: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline state: %w", err)
	}
	switch state {
	case StateDone:
		return Result{
			To:          phone,
			Human:       message,
			AI:          fsmCtx.reply,
			SMSStatus:   fsmCtx.smsStatus,
			SMSResponse: fsmCtx.smsResponse,
		}, nil
	case StateError:
		return Result{}, fsmCtx.lastError
	default:
		return Result{}, fmt.Errorf("pipeline ended in unexpected state: %v", state)
	}
}
